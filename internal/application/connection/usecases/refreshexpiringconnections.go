package usecases

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// RefreshSummary counts the outcomes of one refresh pass
type RefreshSummary struct {
	Scanned      int64
	Refreshed    int64
	MarkedReauth int64
	Deferred     int64
	Failed       int64
}

// RefreshExpiringConnectionsUseCase refreshes access tokens that expire
// within the lookahead window. One failing credential never aborts the pass:
// unrecoverable rejections flag the connection for re-authorization, transient
// failures are retried on the next pass.
type RefreshExpiringConnectionsUseCase struct {
	clients   ClientResolver
	vault     CredentialStore
	governor  RateGovernor
	lookahead time.Duration
	batchSize int
	workers   int
	logger    logger.Interface
}

// NewRefreshExpiringConnectionsUseCase creates a new refresh expiring connections use case
func NewRefreshExpiringConnectionsUseCase(
	clients ClientResolver,
	vault CredentialStore,
	governor RateGovernor,
	lookahead time.Duration,
	batchSize int,
	workers int,
	logger logger.Interface,
) *RefreshExpiringConnectionsUseCase {
	if workers < 1 {
		workers = 1
	}
	return &RefreshExpiringConnectionsUseCase{
		clients:   clients,
		vault:     vault,
		governor:  governor,
		lookahead: lookahead,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Execute runs one refresh pass over credentials nearing expiry.
func (uc *RefreshExpiringConnectionsUseCase) Execute(ctx context.Context) (*RefreshSummary, error) {
	creds, err := uc.vault.ListExpiring(ctx, uc.lookahead, uc.batchSize)
	if err != nil {
		return nil, err
	}

	summary := &RefreshSummary{Scanned: int64(len(creds))}
	if len(creds) == 0 {
		return summary, nil
	}

	work := make(chan *vault.Credential)
	var wg sync.WaitGroup
	for i := 0; i < uc.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cred := range work {
				uc.refreshOne(ctx, cred, summary)
			}
		}()
	}

	for _, cred := range creds {
		work <- cred
	}
	close(work)
	wg.Wait()

	return summary, nil
}

func (uc *RefreshExpiringConnectionsUseCase) refreshOne(ctx context.Context, cred *vault.Credential, summary *RefreshSummary) {
	subjectID := cred.Connection.SubjectID
	platform := cred.Connection.Platform

	client := uc.clients.Get(platform)
	if client == nil {
		uc.logger.Warnw("skipping refresh for unconfigured platform", "platform", platform)
		atomic.AddInt64(&summary.Failed, 1)
		return
	}

	// A subject burning through its refresh budget means something is
	// looping; defer the credential to a later pass rather than hammering
	// the provider. Admission errors don't block the pass.
	decision, err := uc.governor.Admit(ctx, ratelimit.BucketRefresh, subjectID)
	if err != nil {
		uc.logger.Warnw("refresh admission check failed, proceeding", "subject_id", subjectID, "error", err)
	} else if !decision.Allowed {
		uc.logger.Warnw("refresh rate limited, deferring to a later pass",
			"subject_id", subjectID,
			"platform", platform,
			"retry_after", decision.RetryAfter,
		)
		atomic.AddInt64(&summary.Deferred, 1)
		return
	}

	token, err := client.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		var provErr *oauth.ProviderError
		if stderrors.As(err, &provErr) && provErr.Unrecoverable() {
			uc.logger.Warnw("refresh token no longer accepted, flagging for re-authorization",
				"subject_id", subjectID,
				"platform", platform,
				"provider_code", provErr.Code,
			)
			if err := uc.vault.MarkNeedsReauth(ctx, subjectID, platform); err != nil {
				uc.logger.Errorw("failed to flag connection", "subject_id", subjectID, "platform", platform, "error", err)
			}
			atomic.AddInt64(&summary.MarkedReauth, 1)
			return
		}

		uc.logger.Warnw("transient refresh failure, will retry next pass",
			"subject_id", subjectID,
			"platform", platform,
			"error", err,
		)
		atomic.AddInt64(&summary.Failed, 1)
		return
	}

	// Providers that rotate refresh tokens return a new one; Put keeps the
	// stored token when none is returned.
	var refreshToken *string
	if token.RefreshToken != "" {
		refreshToken = &token.RefreshToken
	}

	if err := uc.vault.Put(ctx, subjectID, platform, token.AccessToken, refreshToken, token.ExpiresAt); err != nil {
		uc.logger.Errorw("failed to store refreshed credential",
			"subject_id", subjectID,
			"platform", platform,
			"error", err,
		)
		atomic.AddInt64(&summary.Failed, 1)
		return
	}

	atomic.AddInt64(&summary.Refreshed, 1)
}
