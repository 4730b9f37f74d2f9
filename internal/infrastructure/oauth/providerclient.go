package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	sharedConfig "github.com/lumina-dash/lumina/internal/shared/config"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// Token is the provider-issued credential pair handed to the vault.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ProviderError is a provider-reported token endpoint rejection (as opposed
// to a transport failure, which is retried).
type ProviderError struct {
	Platform string
	Code     string
	Status   int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s rejected request: %s (status %d)", e.Platform, e.Code, e.Status)
}

// Unrecoverable reports whether retrying the same grant could ever succeed.
// An invalid or revoked grant stays invalid; the subject must re-authorize.
func (e *ProviderError) Unrecoverable() bool {
	switch e.Code {
	case "invalid_grant", "unauthorized_client", "access_denied":
		return true
	}
	return false
}

// ProviderClient performs the outbound OAuth calls for one platform. The
// coordinator and scheduler stay platform-agnostic; everything
// platform-specific arrives as configuration.
type ProviderClient struct {
	platform   string
	config     *oauth2.Config
	timeout    time.Duration
	maxRetries int
	logger     logger.Interface
}

func NewProviderClient(pc sharedConfig.PlatformConfig, redirectURL string, timeout time.Duration, maxRetries int, log logger.Interface) *ProviderClient {
	authStyle := oauth2.AuthStyleInParams
	if pc.AuthStyle == "header" {
		authStyle = oauth2.AuthStyleInHeader
	}

	return &ProviderClient{
		platform: pc.Name,
		config: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       pc.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   pc.AuthURL,
				TokenURL:  pc.TokenURL,
				AuthStyle: authStyle,
			},
		},
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     log,
	}
}

func (c *ProviderClient) Platform() string {
	return c.platform
}

// AuthCodeURL builds the provider authorization URL with the PKCE challenge
// and encoded state embedded. Only the challenge travels; the verifier stays
// inside the encrypted state.
func (c *ProviderClient) AuthCodeURL(state, codeChallenge string) string {
	return c.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethodS256),
	)
}

// ExchangeCode trades an authorization code plus the original PKCE verifier
// for tokens. Transport-level failures are retried with backoff; provider
// rejections are returned as *ProviderError and never retried.
func (c *ProviderClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error) {
	return c.withRetry(ctx, "exchange", func(callCtx context.Context) (*oauth2.Token, error) {
		return c.config.Exchange(callCtx, code,
			oauth2.SetAuthURLParam("code_verifier", codeVerifier),
		)
	})
}

// RefreshToken trades a refresh token for a fresh access token. Providers may
// rotate the refresh token; the returned Token carries whichever is current.
func (c *ProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	return c.withRetry(ctx, "refresh", func(callCtx context.Context) (*oauth2.Token, error) {
		src := c.config.TokenSource(callCtx, &oauth2.Token{RefreshToken: refreshToken})
		return src.Token()
	})
}

func (c *ProviderClient) withRetry(ctx context.Context, op string, call func(context.Context) (*oauth2.Token, error)) (*Token, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			c.logger.Debugw("retrying provider call",
				"platform", c.platform,
				"op", op,
				"attempt", attempt,
			)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		tok, err := call(callCtx)
		cancel()

		if err == nil {
			return c.toToken(tok), nil
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			code := retrieveErr.ErrorCode
			if code == "" {
				code = "unknown_error"
			}
			return nil, &ProviderError{
				Platform: c.platform,
				Code:     code,
				Status:   retrieveErr.Response.StatusCode,
			}
		}

		// Timeout, connection failure or 5xx: worth another attempt.
		lastErr = err
	}

	return nil, fmt.Errorf("provider %s %s unavailable after %d attempts: %w", c.platform, op, c.maxRetries+1, lastErr)
}

func (c *ProviderClient) toToken(tok *oauth2.Token) *Token {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		// Providers that omit expires_in; pick a conservative default so the
		// refresh scheduler still has a horizon to work with.
		expiresAt = time.Now().UTC().Add(time.Hour)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
	}
}

// Registry holds one client per configured platform.
type Registry struct {
	clients map[string]*ProviderClient
}

// NewRegistry builds clients for every configured platform. The callback URL
// is shared: the encrypted state carries which platform a callback belongs to.
func NewRegistry(platforms map[string]sharedConfig.PlatformConfig, baseURL string, flowCfg sharedConfig.AuthFlowConfig, log logger.Interface) (*Registry, error) {
	redirectURL, err := url.JoinPath(baseURL, "/auth/callback")
	if err != nil {
		return nil, fmt.Errorf("failed to build redirect URL: %w", err)
	}

	clients := make(map[string]*ProviderClient, len(platforms))
	for name, pc := range platforms {
		clients[name] = NewProviderClient(pc, redirectURL, flowCfg.ExchangeTimeout(), flowCfg.ExchangeMaxRetries, log)
		log.Infow("platform client initialized", "platform", name, "scopes", pc.Scopes)
	}

	return &Registry{clients: clients}, nil
}

// Get returns the client for a platform, or nil when not configured.
func (r *Registry) Get(platform string) *ProviderClient {
	return r.clients[platform]
}

// Platforms lists configured platform names.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
