package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/shared/errors"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// InitiateAuthorizationCommand contains data for starting an authorization flow
type InitiateAuthorizationCommand struct {
	SubjectID string
	Platform  string
}

// InitiateAuthorizationResult carries the provider redirect target
type InitiateAuthorizationResult struct {
	AuthorizationURL string
	Platform         string
}

// InitiateAuthorizationUseCase builds the provider authorization URL for a
// subject: fresh PKCE pair, sealed state, ledger registration.
type InitiateAuthorizationUseCase struct {
	clients  ClientResolver
	codec    StateCodec
	ledger   authflow.StateLedger
	stateTTL time.Duration
	logger   logger.Interface
}

// NewInitiateAuthorizationUseCase creates a new initiate authorization use case
func NewInitiateAuthorizationUseCase(
	clients ClientResolver,
	codec StateCodec,
	ledger authflow.StateLedger,
	stateTTL time.Duration,
	logger logger.Interface,
) *InitiateAuthorizationUseCase {
	return &InitiateAuthorizationUseCase{
		clients:  clients,
		codec:    codec,
		ledger:   ledger,
		stateTTL: stateTTL,
		logger:   logger,
	}
}

// Execute executes the initiate authorization use case
func (uc *InitiateAuthorizationUseCase) Execute(ctx context.Context, cmd InitiateAuthorizationCommand) (*InitiateAuthorizationResult, error) {
	uc.logger.Infow("initiating authorization", "subject_id", cmd.SubjectID, "platform", cmd.Platform)

	client := uc.clients.Get(cmd.Platform)
	if client == nil {
		uc.logger.Warnw("authorization requested for unconfigured platform", "platform", cmd.Platform)
		return nil, errors.NewConfigurationError(cmd.Platform)
	}

	codeVerifier, codeChallenge, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE pair: %w", err)
	}

	attempt, err := authflow.NewAuthorizationAttempt(cmd.SubjectID, cmd.Platform, codeVerifier)
	if err != nil {
		return nil, errors.NewValidationError("invalid authorization request", err.Error())
	}

	state, err := uc.codec.Encode(attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	if err := uc.ledger.Register(ctx, state, cmd.SubjectID, cmd.Platform, uc.stateTTL); err != nil {
		return nil, fmt.Errorf("failed to register state: %w", err)
	}

	return &InitiateAuthorizationResult{
		AuthorizationURL: client.AuthCodeURL(state, codeChallenge),
		Platform:         cmd.Platform,
	}, nil
}
