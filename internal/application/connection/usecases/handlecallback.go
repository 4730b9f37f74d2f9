package usecases

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/shared/errors"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// HandleCallbackCommand contains the provider redirect parameters
type HandleCallbackCommand struct {
	State            string
	Code             string
	ErrorCode        string
	ErrorDescription string
}

// HandleCallbackResult identifies the completed connection
type HandleCallbackResult struct {
	SubjectID string
	Platform  string
}

// HandleCallbackUseCase validates the returned state, consumes it exactly
// once, exchanges the code, and stores the resulting credential.
type HandleCallbackUseCase struct {
	clients  ClientResolver
	codec    StateCodec
	ledger   authflow.StateLedger
	vault    CredentialStore
	stateTTL time.Duration
	logger   logger.Interface
}

// NewHandleCallbackUseCase creates a new handle callback use case
func NewHandleCallbackUseCase(
	clients ClientResolver,
	codec StateCodec,
	ledger authflow.StateLedger,
	vault CredentialStore,
	stateTTL time.Duration,
	logger logger.Interface,
) *HandleCallbackUseCase {
	return &HandleCallbackUseCase{
		clients:  clients,
		codec:    codec,
		ledger:   ledger,
		vault:    vault,
		stateTTL: stateTTL,
		logger:   logger,
	}
}

// Execute executes the handle callback use case
func (uc *HandleCallbackUseCase) Execute(ctx context.Context, cmd HandleCallbackCommand) (*HandleCallbackResult, error) {
	// A provider-reported error arrives before any state was consumed, so
	// the attempt stays usable only in the sense that nothing is mutated
	// here. The platform name, when recoverable from the state, improves
	// the message; the state itself is not marked used.
	if cmd.ErrorCode != "" {
		platform := "unknown"
		if attempt, err := uc.codec.Decode(cmd.State, uc.stateTTL); err == nil {
			platform = attempt.Platform
		}
		uc.logger.Warnw("provider returned callback error",
			"platform", platform,
			"error_code", cmd.ErrorCode,
			"error_description", cmd.ErrorDescription,
		)
		if cmd.ErrorCode == "access_denied" {
			return nil, errors.NewProviderDeniedError(platform)
		}
		return nil, errors.NewStateError(stderrors.New("provider callback error: " + cmd.ErrorCode))
	}

	attempt, err := uc.codec.Decode(cmd.State, uc.stateTTL)
	if err != nil {
		uc.logger.Warnw("state validation failed", "error", err)
		return nil, errors.NewStateError(err)
	}

	// The single mutation deciding the winner. Everything after this line
	// runs at most once per state token.
	if err := uc.ledger.ConsumeOnce(ctx, cmd.State); err != nil {
		uc.logger.Warnw("state consumption rejected",
			"subject_id", attempt.SubjectID,
			"platform", attempt.Platform,
			"error", err,
		)
		return nil, errors.NewStateError(err)
	}

	client := uc.clients.Get(attempt.Platform)
	if client == nil {
		return nil, errors.NewConfigurationError(attempt.Platform)
	}

	token, err := client.ExchangeCode(ctx, cmd.Code, attempt.CodeVerifier)
	if err != nil {
		var provErr *oauth.ProviderError
		if stderrors.As(err, &provErr) {
			uc.logger.Warnw("provider rejected code exchange",
				"platform", attempt.Platform,
				"provider_code", provErr.Code,
			)
			return nil, errors.NewExchangeRejectedError(attempt.Platform, err)
		}
		uc.logger.Errorw("code exchange failed after retries",
			"platform", attempt.Platform,
			"error", err,
		)
		return nil, errors.NewExchangeUnavailableError(attempt.Platform, err)
	}

	var refreshToken *string
	if token.RefreshToken != "" {
		refreshToken = &token.RefreshToken
	}

	if err := uc.vault.Put(ctx, attempt.SubjectID, attempt.Platform, token.AccessToken, refreshToken, token.ExpiresAt); err != nil {
		uc.logger.Errorw("failed to store credential",
			"subject_id", attempt.SubjectID,
			"platform", attempt.Platform,
			"error", err,
		)
		return nil, err
	}

	uc.logger.Infow("platform connected",
		"subject_id", attempt.SubjectID,
		"platform", attempt.Platform,
	)

	return &HandleCallbackResult{
		SubjectID: attempt.SubjectID,
		Platform:  attempt.Platform,
	}, nil
}
