package usecases

import (
	"context"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// ConnectionStatus is the metadata view of a connection. Token material is
// never included.
type ConnectionStatus struct {
	Platform        string     `json:"platform"`
	Status          string     `json:"status"`
	ConnectedAt     time.Time  `json:"connected_at"`
	AccessExpiresAt time.Time  `json:"access_expires_at"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
}

// GetConnectionStatusUseCase reports one subject/platform connection.
type GetConnectionStatusUseCase struct {
	repo   connection.Repository
	logger logger.Interface
}

// NewGetConnectionStatusUseCase creates a new get connection status use case
func NewGetConnectionStatusUseCase(repo connection.Repository, logger logger.Interface) *GetConnectionStatusUseCase {
	return &GetConnectionStatusUseCase{repo: repo, logger: logger}
}

// Execute returns the status for the pair, or nil when never connected.
func (uc *GetConnectionStatusUseCase) Execute(ctx context.Context, subjectID, platform string) (*ConnectionStatus, error) {
	conn, err := uc.repo.GetBySubjectAndPlatform(ctx, subjectID, platform)
	if err != nil {
		uc.logger.Errorw("failed to load connection", "subject_id", subjectID, "platform", platform, "error", err)
		return nil, err
	}
	if conn == nil {
		return nil, nil
	}
	return toConnectionStatus(conn), nil
}

func toConnectionStatus(conn *connection.PlatformConnection) *ConnectionStatus {
	return &ConnectionStatus{
		Platform:        conn.Platform,
		Status:          string(conn.Status),
		ConnectedAt:     conn.ConnectedAt,
		AccessExpiresAt: conn.AccessExpiresAt,
		LastRefreshedAt: conn.LastRefreshedAt,
	}
}
