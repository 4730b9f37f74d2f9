package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/infrastructure/persistence/models"
)

// StateLedgerRepository implements authflow.StateLedger on GORM.
type StateLedgerRepository struct {
	db *gorm.DB
}

// NewStateLedgerRepository creates a new StateLedgerRepository.
func NewStateLedgerRepository(db *gorm.DB) authflow.StateLedger {
	return &StateLedgerRepository{db: db}
}

func (r *StateLedgerRepository) Register(ctx context.Context, token, subjectID, platform string, ttl time.Duration) error {
	now := time.Now().UTC()
	model := &models.AuthStateModel{
		TokenHash: hashToken(token),
		SubjectID: subjectID,
		Platform:  platform,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to register state: %w", err)
	}
	return nil
}

// ConsumeOnce flips consumed_at from null exactly once. The mutation is a
// single conditional UPDATE judged by rows affected; two concurrent callers
// presenting the same token can never both succeed. The follow-up read exists
// only to classify the failure for logging.
func (r *StateLedgerRepository) ConsumeOnce(ctx context.Context, token string) error {
	now := time.Now().UTC()
	hash := hashToken(token)

	result := r.db.WithContext(ctx).
		Model(&models.AuthStateModel{}).
		Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", hash, now).
		Update("consumed_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to consume state: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var model models.AuthStateModel
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authflow.ErrStateNotFound
		}
		return fmt.Errorf("failed to inspect state: %w", err)
	}
	if model.ConsumedAt != nil {
		return authflow.ErrStateAlreadyConsumed
	}
	return authflow.ErrStateExpired
}

func (r *StateLedgerRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.AuthStateModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired states: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
