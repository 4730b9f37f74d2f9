package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/infrastructure/persistence/mappers"
	"github.com/lumina-dash/lumina/internal/infrastructure/persistence/models"
)

// ConnectionRepository implements the connection.Repository interface using
// GORM with Model/Mapper separation.
type ConnectionRepository struct {
	db     *gorm.DB
	mapper mappers.ConnectionMapper
}

// NewConnectionRepository creates a new ConnectionRepository.
func NewConnectionRepository(db *gorm.DB) connection.Repository {
	return &ConnectionRepository{
		db:     db,
		mapper: mappers.NewConnectionMapper(),
	}
}

// Upsert inserts or replaces the credential for (subject_id, platform).
// Last-writer-wins: the refresh scheduler and a user-triggered reconnect both
// converge on provider-issued truth, so no optimistic locking is needed.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *connection.PlatformConnection) error {
	model := r.mapper.ToModel(conn)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token_enc",
			"refresh_token_enc",
			"key_version",
			"access_expires_at",
			"last_refreshed_at",
			"status",
			"updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}
	conn.ID = model.ID
	return nil
}

func (r *ConnectionRepository) GetBySubjectAndPlatform(ctx context.Context, subjectID, platform string) (*connection.PlatformConnection, error) {
	var model models.PlatformConnectionModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND platform = ?", subjectID, platform).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *ConnectionRepository) ListBySubject(ctx context.Context, subjectID string) ([]*connection.PlatformConnection, error) {
	var connectionModels []*models.PlatformConnectionModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("platform ASC").
		Find(&connectionModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections by subject: %w", err)
	}
	return r.mapper.ToDomainList(connectionModels), nil
}

func (r *ConnectionRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*connection.PlatformConnection, error) {
	var connectionModels []*models.PlatformConnectionModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND refresh_token_enc IS NOT NULL AND access_expires_at < ?",
			string(connection.StatusConnected), before).
		Order("access_expires_at ASC").
		Limit(limit).
		Find(&connectionModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring connections: %w", err)
	}
	return r.mapper.ToDomainList(connectionModels), nil
}

func (r *ConnectionRepository) UpdateStatus(ctx context.Context, subjectID, platform string, status connection.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.PlatformConnectionModel{}).
		Where("subject_id = ? AND platform = ?", subjectID, platform).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update connection status: %w", result.Error)
	}
	return nil
}

// Delete removes the pair. Missing rows are a no-op so disconnect stays
// idempotent.
func (r *ConnectionRepository) Delete(ctx context.Context, subjectID, platform string) error {
	result := r.db.WithContext(ctx).
		Where("subject_id = ? AND platform = ?", subjectID, platform).
		Delete(&models.PlatformConnectionModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	return nil
}
