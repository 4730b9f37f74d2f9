package usecases

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
)

func TestRefreshExpiring_Success(t *testing.T) {
	client := &mockProviderClient{
		platform: "spotify",
		refreshToken: &oauth.Token{
			AccessToken:  "new-access",
			RefreshToken: "rotated-refresh",
			ExpiresAt:    time.Now().UTC().Add(time.Hour),
		},
	}
	store := &mockCredentialStore{
		expiring: []*vault.Credential{expiringCredential(t, "user-1", "spotify")},
	}
	resolver := &mockResolver{clients: map[string]*mockProviderClient{"spotify": client}}

	uc := NewRefreshExpiringConnectionsUseCase(resolver, store, &mockGovernor{}, 72*time.Hour, 100, 4, testLogger())

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Scanned)
	assert.Equal(t, int64(1), summary.Refreshed)
	assert.Zero(t, summary.MarkedReauth)
	assert.Zero(t, summary.Failed)

	assert.Equal(t, "plain-refresh-spotify", client.gotRefresh)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "new-access", store.puts[0].accessToken)
	require.NotNil(t, store.puts[0].refreshToken)
	assert.Equal(t, "rotated-refresh", *store.puts[0].refreshToken)
}

func TestRefreshExpiring_InvalidGrantFlagsReauth(t *testing.T) {
	client := &mockProviderClient{
		platform:   "spotify",
		refreshErr: &oauth.ProviderError{Platform: "spotify", Code: "invalid_grant", Status: 400},
	}
	store := &mockCredentialStore{
		expiring: []*vault.Credential{expiringCredential(t, "user-1", "spotify")},
	}
	resolver := &mockResolver{clients: map[string]*mockProviderClient{"spotify": client}}

	uc := NewRefreshExpiringConnectionsUseCase(resolver, store, &mockGovernor{}, 72*time.Hour, 100, 2, testLogger())

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.MarkedReauth)
	assert.Zero(t, summary.Refreshed)

	assert.Equal(t, []string{"user-1/spotify"}, store.reauthCalls)
	assert.Empty(t, store.puts)
}

func TestRefreshExpiring_TransientFailureSkipped(t *testing.T) {
	client := &mockProviderClient{
		platform:   "spotify",
		refreshErr: stderrors.New("connection reset by peer"),
	}
	store := &mockCredentialStore{
		expiring: []*vault.Credential{expiringCredential(t, "user-1", "spotify")},
	}
	resolver := &mockResolver{clients: map[string]*mockProviderClient{"spotify": client}}

	uc := NewRefreshExpiringConnectionsUseCase(resolver, store, &mockGovernor{}, 72*time.Hour, 100, 2, testLogger())

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Failed)
	assert.Zero(t, summary.MarkedReauth)

	// Transient errors do not flag the connection; next pass retries.
	assert.Empty(t, store.reauthCalls)
}

// One bad credential in the batch must not stop the others.
func TestRefreshExpiring_BatchSurvivesMixedOutcomes(t *testing.T) {
	good := &mockProviderClient{
		platform: "spotify",
		refreshToken: &oauth.Token{
			AccessToken: "new-access",
			ExpiresAt:   time.Now().UTC().Add(time.Hour),
		},
	}
	revoked := &mockProviderClient{
		platform:   "github",
		refreshErr: &oauth.ProviderError{Platform: "github", Code: "invalid_grant", Status: 400},
	}
	flaky := &mockProviderClient{
		platform:   "discord",
		refreshErr: stderrors.New("i/o timeout"),
	}

	store := &mockCredentialStore{
		expiring: []*vault.Credential{
			expiringCredential(t, "user-1", "spotify"),
			expiringCredential(t, "user-2", "github"),
			expiringCredential(t, "user-3", "discord"),
		},
	}
	resolver := &mockResolver{clients: map[string]*mockProviderClient{
		"spotify": good,
		"github":  revoked,
		"discord": flaky,
	}}

	uc := NewRefreshExpiringConnectionsUseCase(resolver, store, &mockGovernor{}, 72*time.Hour, 100, 2, testLogger())

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Scanned)
	assert.Equal(t, int64(1), summary.Refreshed)
	assert.Equal(t, int64(1), summary.MarkedReauth)
	assert.Equal(t, int64(1), summary.Failed)
}

// A subject over its refresh budget is deferred without touching the
// provider or the stored credential.
func TestRefreshExpiring_RateLimitedSubjectDeferred(t *testing.T) {
	client := &mockProviderClient{
		platform: "spotify",
		refreshToken: &oauth.Token{
			AccessToken: "new-access",
			ExpiresAt:   time.Now().UTC().Add(time.Hour),
		},
	}
	store := &mockCredentialStore{
		expiring: []*vault.Credential{
			expiringCredential(t, "user-1", "spotify"),
			expiringCredential(t, "user-2", "spotify"),
		},
	}
	resolver := &mockResolver{clients: map[string]*mockProviderClient{"spotify": client}}
	governor := &mockGovernor{denyKeys: map[string]bool{"user-1": true}}

	uc := NewRefreshExpiringConnectionsUseCase(resolver, store, governor, 72*time.Hour, 100, 1, testLogger())

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Scanned)
	assert.Equal(t, int64(1), summary.Deferred)
	assert.Equal(t, int64(1), summary.Refreshed)
	assert.Zero(t, summary.Failed)

	// Only the admitted subject reached the provider and the store.
	assert.Equal(t, 1, client.refreshCalls)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "user-2", store.puts[0].subjectID)
	assert.Contains(t, governor.admits, "refresh/user-1")
	assert.Contains(t, governor.admits, "refresh/user-2")
}

func TestRefreshExpiring_EmptyBatch(t *testing.T) {
	uc := NewRefreshExpiringConnectionsUseCase(
		&mockResolver{clients: map[string]*mockProviderClient{}},
		&mockCredentialStore{}, &mockGovernor{}, 72*time.Hour, 100, 4, testLogger(),
	)

	summary, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}
