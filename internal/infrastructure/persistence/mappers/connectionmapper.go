package mappers

import (
	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/infrastructure/persistence/models"
)

// ConnectionMapper handles the conversion between domain entities and
// persistence models.
type ConnectionMapper interface {
	ToModel(entity *connection.PlatformConnection) *models.PlatformConnectionModel
	ToDomain(model *models.PlatformConnectionModel) *connection.PlatformConnection
	ToDomainList(models []*models.PlatformConnectionModel) []*connection.PlatformConnection
}

type connectionMapper struct{}

// NewConnectionMapper creates a new ConnectionMapper.
func NewConnectionMapper() ConnectionMapper {
	return &connectionMapper{}
}

func (m *connectionMapper) ToModel(entity *connection.PlatformConnection) *models.PlatformConnectionModel {
	if entity == nil {
		return nil
	}
	return &models.PlatformConnectionModel{
		ID:              entity.ID,
		SubjectID:       entity.SubjectID,
		Platform:        entity.Platform,
		AccessTokenEnc:  entity.EncryptedAccessToken,
		RefreshTokenEnc: entity.EncryptedRefreshToken,
		KeyVersion:      entity.KeyVersion,
		AccessExpiresAt: entity.AccessExpiresAt,
		LastRefreshedAt: entity.LastRefreshedAt,
		Status:          string(entity.Status),
		ConnectedAt:     entity.ConnectedAt,
		CreatedAt:       entity.CreatedAt,
		UpdatedAt:       entity.UpdatedAt,
	}
}

func (m *connectionMapper) ToDomain(model *models.PlatformConnectionModel) *connection.PlatformConnection {
	if model == nil {
		return nil
	}
	return &connection.PlatformConnection{
		ID:                    model.ID,
		SubjectID:             model.SubjectID,
		Platform:              model.Platform,
		EncryptedAccessToken:  model.AccessTokenEnc,
		EncryptedRefreshToken: model.RefreshTokenEnc,
		KeyVersion:            model.KeyVersion,
		AccessExpiresAt:       model.AccessExpiresAt,
		LastRefreshedAt:       model.LastRefreshedAt,
		Status:                connection.Status(model.Status),
		ConnectedAt:           model.ConnectedAt,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func (m *connectionMapper) ToDomainList(items []*models.PlatformConnectionModel) []*connection.PlatformConnection {
	result := make([]*connection.PlatformConnection, 0, len(items))
	for _, item := range items {
		result = append(result, m.ToDomain(item))
	}
	return result
}
