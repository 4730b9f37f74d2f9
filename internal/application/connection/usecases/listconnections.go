package usecases

import (
	"context"

	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// ListConnectionsUseCase reports all of a subject's connections.
type ListConnectionsUseCase struct {
	repo   connection.Repository
	logger logger.Interface
}

// NewListConnectionsUseCase creates a new list connections use case
func NewListConnectionsUseCase(repo connection.Repository, logger logger.Interface) *ListConnectionsUseCase {
	return &ListConnectionsUseCase{repo: repo, logger: logger}
}

// Execute returns connection statuses for the subject, possibly empty.
func (uc *ListConnectionsUseCase) Execute(ctx context.Context, subjectID string) ([]*ConnectionStatus, error) {
	conns, err := uc.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		uc.logger.Errorw("failed to list connections", "subject_id", subjectID, "error", err)
		return nil, err
	}

	statuses := make([]*ConnectionStatus, 0, len(conns))
	for _, conn := range conns {
		statuses = append(statuses, toConnectionStatus(conn))
	}
	return statuses, nil
}
