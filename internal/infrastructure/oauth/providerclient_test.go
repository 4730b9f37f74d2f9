package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "github.com/lumina-dash/lumina/internal/shared/config"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

func newTestClient(tokenURL string, maxRetries int) *ProviderClient {
	pc := sharedConfig.PlatformConfig{
		Name:         "spotify",
		AuthURL:      "https://accounts.example.com/authorize",
		TokenURL:     tokenURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"user-read-recently-played"},
		AuthStyle:    "params",
	}
	return NewProviderClient(pc, "https://lumina.example.com/auth/callback", 5*time.Second, maxRetries, logger.NewLogger())
}

func TestAuthCodeURL_CarriesPKCEAndState(t *testing.T) {
	client := newTestClient("https://accounts.example.com/token", 0)

	rawURL := client.AuthCodeURL("sealed-state-token", "challenge-value")

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "sealed-state-token", q.Get("state"))
	assert.Equal(t, "challenge-value", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://lumina.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Empty(t, q.Get("code_verifier"), "verifier must never appear in the authorization URL")
}

func TestExchangeCode_Success(t *testing.T) {
	var gotVerifier, gotGrantType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotVerifier = r.FormValue("code_verifier")
		gotGrantType = r.FormValue("grant_type")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)

	token, err := client.ExchangeCode(context.Background(), "auth-code", "the-verifier")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotGrantType)
	assert.Equal(t, "the-verifier", gotVerifier)
	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)
}

func TestExchangeCode_ProviderRejectionNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.ExchangeCode(context.Background(), "bad-code", "verifier")
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "invalid_grant", provErr.Code)
	assert.Equal(t, http.StatusBadRequest, provErr.Status)
	assert.True(t, provErr.Unrecoverable())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestExchangeCode_TransportFailureRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	token, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "at-2", token.AccessToken)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExchangeCode_RetriesBounded(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	_, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
	require.Error(t, err)

	var provErr *ProviderError
	assert.NotErrorAs(t, err, &provErr, "exhausted transport failure is not a provider rejection")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "maxRetries=2 means 3 attempts total")
}

func TestRefreshToken_Success(t *testing.T) {
	var gotGrantType, gotRefreshToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrantType = r.FormValue("grant_type")
		gotRefreshToken = r.FormValue("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-rotated","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)

	token, err := client.RefreshToken(context.Background(), "rt-old")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotGrantType)
	assert.Equal(t, "rt-old", gotRefreshToken)
	assert.Equal(t, "at-new", token.AccessToken)
	assert.Equal(t, "rt-rotated", token.RefreshToken)
}

func TestRefreshToken_InvalidGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	_, err := client.RefreshToken(context.Background(), "revoked-rt")
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.Unrecoverable())
}

func TestExchangeCode_MissingExpiryGetsDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-3","token_type":"Bearer"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)

	token, err := client.ExchangeCode(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)
}
