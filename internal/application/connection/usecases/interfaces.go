package usecases

import (
	"context"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
)

// ProviderClient is the slice of a platform OAuth client the use cases need.
type ProviderClient interface {
	Platform() string
	AuthCodeURL(state, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth.Token, error)
}

// ClientResolver resolves a platform name to its client. Returns nil for an
// unconfigured platform.
type ClientResolver interface {
	Get(platform string) ProviderClient
}

// StateCodec seals and unseals authorization attempts into opaque state
// tokens.
type StateCodec interface {
	Encode(attempt *authflow.AuthorizationAttempt) (string, error)
	Decode(token string, maxAge time.Duration) (*authflow.AuthorizationAttempt, error)
}

// RateGovernor admits or defers work per bucket and caller key.
type RateGovernor interface {
	Admit(ctx context.Context, bucket ratelimit.Bucket, key string) (ratelimit.Decision, error)
}

// CredentialStore is the vault surface the use cases depend on.
type CredentialStore interface {
	Put(ctx context.Context, subjectID, platform, accessToken string, refreshToken *string, expiresAt time.Time) error
	Get(ctx context.Context, subjectID, platform string) (*vault.Credential, error)
	MarkNeedsReauth(ctx context.Context, subjectID, platform string) error
	Delete(ctx context.Context, subjectID, platform string) error
	ListExpiring(ctx context.Context, within time.Duration, limit int) ([]*vault.Credential, error)
}
