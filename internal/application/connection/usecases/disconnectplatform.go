package usecases

import (
	"context"

	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// DisconnectPlatformCommand contains data for removing a connection
type DisconnectPlatformCommand struct {
	SubjectID string
	Platform  string
}

// DisconnectPlatformUseCase removes stored credentials for a platform.
// Disconnecting an unconnected platform succeeds.
type DisconnectPlatformUseCase struct {
	vault  CredentialStore
	logger logger.Interface
}

// NewDisconnectPlatformUseCase creates a new disconnect platform use case
func NewDisconnectPlatformUseCase(vault CredentialStore, logger logger.Interface) *DisconnectPlatformUseCase {
	return &DisconnectPlatformUseCase{vault: vault, logger: logger}
}

// Execute executes the disconnect platform use case
func (uc *DisconnectPlatformUseCase) Execute(ctx context.Context, cmd DisconnectPlatformCommand) error {
	if err := uc.vault.Delete(ctx, cmd.SubjectID, cmd.Platform); err != nil {
		uc.logger.Errorw("failed to delete credential",
			"subject_id", cmd.SubjectID,
			"platform", cmd.Platform,
			"error", err,
		)
		return err
	}

	uc.logger.Infow("platform disconnected", "subject_id", cmd.SubjectID, "platform", cmd.Platform)
	return nil
}
