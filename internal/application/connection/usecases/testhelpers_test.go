package usecases

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/infrastructure/crypto"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/infrastructure/vault"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// =====================================================================
// Mock provider client and resolver
// =====================================================================

type mockProviderClient struct {
	platform string

	exchangeToken *oauth.Token
	exchangeErr   error
	exchangeCalls int
	gotCode       string
	gotVerifier   string

	refreshToken *oauth.Token
	refreshErr   error
	refreshCalls int
	gotRefresh   string
}

func (m *mockProviderClient) Platform() string { return m.platform }

func (m *mockProviderClient) AuthCodeURL(state, codeChallenge string) string {
	return "https://provider.example.com/authorize?state=" + state + "&code_challenge=" + codeChallenge
}

func (m *mockProviderClient) ExchangeCode(_ context.Context, code, codeVerifier string) (*oauth.Token, error) {
	m.exchangeCalls++
	m.gotCode = code
	m.gotVerifier = codeVerifier
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return m.exchangeToken, nil
}

func (m *mockProviderClient) RefreshToken(_ context.Context, refreshToken string) (*oauth.Token, error) {
	m.refreshCalls++
	m.gotRefresh = refreshToken
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refreshToken, nil
}

type mockResolver struct {
	clients map[string]*mockProviderClient
}

func (m *mockResolver) Get(platform string) ProviderClient {
	client, ok := m.clients[platform]
	if !ok {
		return nil
	}
	return client
}

// =====================================================================
// In-memory state ledger
// =====================================================================

type memLedger struct {
	mu       sync.Mutex
	expiry   map[string]time.Time
	consumed map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		expiry:   make(map[string]time.Time),
		consumed: make(map[string]bool),
	}
}

func (l *memLedger) Register(_ context.Context, token, _, _ string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expiry[token] = time.Now().Add(ttl)
	return nil
}

func (l *memLedger) ConsumeOnce(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.expiry[token]
	if !ok {
		return authflow.ErrStateNotFound
	}
	if l.consumed[token] {
		return authflow.ErrStateAlreadyConsumed
	}
	if time.Now().After(exp) {
		return authflow.ErrStateExpired
	}
	l.consumed[token] = true
	return nil
}

func (l *memLedger) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for token, exp := range l.expiry {
		if exp.Before(before) {
			delete(l.expiry, token)
			delete(l.consumed, token)
			n++
		}
	}
	return n, nil
}

func (l *memLedger) isConsumed(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consumed[token]
}

// =====================================================================
// Mock credential store
// =====================================================================

type putCall struct {
	subjectID    string
	platform     string
	accessToken  string
	refreshToken *string
	expiresAt    time.Time
}

type mockCredentialStore struct {
	mu           sync.Mutex
	puts         []putCall
	putErr       error
	reauthCalls  []string
	deleteCalls  []string
	expiring     []*vault.Credential
	expiringErr  error
}

func (m *mockCredentialStore) Put(_ context.Context, subjectID, platform, accessToken string, refreshToken *string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, putCall{subjectID, platform, accessToken, refreshToken, expiresAt})
	return nil
}

func (m *mockCredentialStore) Get(context.Context, string, string) (*vault.Credential, error) {
	return nil, nil
}

func (m *mockCredentialStore) MarkNeedsReauth(_ context.Context, subjectID, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reauthCalls = append(m.reauthCalls, subjectID+"/"+platform)
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, subjectID, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, subjectID+"/"+platform)
	return nil
}

func (m *mockCredentialStore) ListExpiring(context.Context, time.Duration, int) ([]*vault.Credential, error) {
	return m.expiring, m.expiringErr
}

// =====================================================================
// Mock rate governor
// =====================================================================

type mockGovernor struct {
	mu       sync.Mutex
	denyKeys map[string]bool
	admits   []string
}

func (m *mockGovernor) Admit(_ context.Context, bucket ratelimit.Bucket, key string) (ratelimit.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admits = append(m.admits, string(bucket)+"/"+key)
	if m.denyKeys[key] {
		return ratelimit.Decision{Allowed: false, RetryAfter: 30 * time.Second}, nil
	}
	return ratelimit.Decision{Allowed: true}, nil
}

// =====================================================================
// Shared fixtures
// =====================================================================

func newTestCodec(t *testing.T) *oauth.StateCodec {
	t.Helper()
	cipher, err := crypto.NewCipher(bytes.Repeat([]byte{0x55}, 32))
	require.NoError(t, err)
	return oauth.NewStateCodec(cipher)
}

func testLogger() logger.Interface {
	return logger.NewLogger()
}

func expiringCredential(t *testing.T, subjectID, platform string) *vault.Credential {
	t.Helper()
	refresh := "enc-refresh"
	conn, err := connection.NewPlatformConnection(subjectID, platform, "enc-access", &refresh, 1, time.Now().UTC().Add(30*time.Minute))
	require.NoError(t, err)
	return &vault.Credential{
		Connection:   conn,
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh-" + platform,
	}
}
