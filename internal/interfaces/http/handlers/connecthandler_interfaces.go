package handlers

import (
	"context"

	"github.com/lumina-dash/lumina/internal/application/connection/usecases"
)

// Use case interfaces for ConnectHandler - enables unit testing with mocks.

type initiateAuthorizationUseCase interface {
	Execute(ctx context.Context, cmd usecases.InitiateAuthorizationCommand) (*usecases.InitiateAuthorizationResult, error)
}

type handleCallbackUseCase interface {
	Execute(ctx context.Context, cmd usecases.HandleCallbackCommand) (*usecases.HandleCallbackResult, error)
}

type disconnectPlatformUseCase interface {
	Execute(ctx context.Context, cmd usecases.DisconnectPlatformCommand) error
}

type getConnectionStatusUseCase interface {
	Execute(ctx context.Context, subjectID, platform string) (*usecases.ConnectionStatus, error)
}

type listConnectionsUseCase interface {
	Execute(ctx context.Context, subjectID string) ([]*usecases.ConnectionStatus, error)
}
