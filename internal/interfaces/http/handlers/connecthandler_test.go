package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/shared/errors"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// =====================================================================
// Mock use cases
// =====================================================================

type mockInitiateUC struct {
	result  *usecases.InitiateAuthorizationResult
	err     error
	gotCmd  usecases.InitiateAuthorizationCommand
}

func (m *mockInitiateUC) Execute(_ context.Context, cmd usecases.InitiateAuthorizationCommand) (*usecases.InitiateAuthorizationResult, error) {
	m.gotCmd = cmd
	return m.result, m.err
}

type mockCallbackUC struct {
	result *usecases.HandleCallbackResult
	err    error
	gotCmd usecases.HandleCallbackCommand
}

func (m *mockCallbackUC) Execute(_ context.Context, cmd usecases.HandleCallbackCommand) (*usecases.HandleCallbackResult, error) {
	m.gotCmd = cmd
	return m.result, m.err
}

type mockDisconnectUC struct {
	err    error
	gotCmd usecases.DisconnectPlatformCommand
}

func (m *mockDisconnectUC) Execute(_ context.Context, cmd usecases.DisconnectPlatformCommand) error {
	m.gotCmd = cmd
	return m.err
}

type mockStatusUC struct {
	result *usecases.ConnectionStatus
	err    error
}

func (m *mockStatusUC) Execute(_ context.Context, subjectID, platform string) (*usecases.ConnectionStatus, error) {
	return m.result, m.err
}

type mockListUC struct {
	result []*usecases.ConnectionStatus
	err    error
}

func (m *mockListUC) Execute(_ context.Context, subjectID string) ([]*usecases.ConnectionStatus, error) {
	return m.result, m.err
}

// =====================================================================
// Helpers
// =====================================================================

const testFrontendURL = "http://dash.example.com/connections/callback"

type handlerMocks struct {
	initiate   *mockInitiateUC
	callback   *mockCallbackUC
	disconnect *mockDisconnectUC
	status     *mockStatusUC
	list       *mockListUC
}

func newTestHandler() (*ConnectHandler, *handlerMocks) {
	gin.SetMode(gin.TestMode)
	mocks := &handlerMocks{
		initiate:   &mockInitiateUC{},
		callback:   &mockCallbackUC{},
		disconnect: &mockDisconnectUC{},
		status:     &mockStatusUC{},
		list:       &mockListUC{},
	}
	handler := NewConnectHandler(
		mocks.initiate, mocks.callback, mocks.disconnect, mocks.status, mocks.list,
		testFrontendURL, logger.NewLogger(),
	)
	return handler, mocks
}

func performRequest(handler *ConnectHandler, subjectID, method, target string) *httptest.ResponseRecorder {
	engine := gin.New()
	withSubject := func(c *gin.Context) {
		if subjectID != "" {
			c.Set("subject_id", subjectID)
		}
	}
	engine.GET("/auth/callback", handler.Callback)
	engine.GET("/auth/status", withSubject, handler.ListStatus)
	engine.POST("/auth/:platform/initiate", withSubject, handler.Initiate)
	engine.POST("/auth/:platform/disconnect", withSubject, handler.Disconnect)
	engine.GET("/auth/:platform/status", withSubject, handler.GetStatus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

// =====================================================================
// Tests
// =====================================================================

func TestConnectHandler_Initiate(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.initiate.result = &usecases.InitiateAuthorizationResult{
		AuthorizationURL: "https://accounts.spotify.com/authorize?state=abc",
		Platform:         "spotify",
	}

	w := performRequest(handler, "user-1", http.MethodPost, "/auth/spotify/initiate")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", mocks.initiate.gotCmd.SubjectID)
	assert.Equal(t, "spotify", mocks.initiate.gotCmd.Platform)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://accounts.spotify.com/authorize?state=abc", resp.Data.AuthorizationURL)
}

func TestConnectHandler_Initiate_UnknownPlatform(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.initiate.err = errors.NewConfigurationError("myspace")

	w := performRequest(handler, "user-1", http.MethodPost, "/auth/myspace/initiate")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectHandler_Callback_SuccessRedirect(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.callback.result = &usecases.HandleCallbackResult{SubjectID: "user-1", Platform: "spotify"}

	w := performRequest(handler, "", http.MethodGet, "/auth/callback?state=sealed&code=auth-code")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "sealed", mocks.callback.gotCmd.State)
	assert.Equal(t, "auth-code", mocks.callback.gotCmd.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "dash.example.com", location.Host)
	assert.Equal(t, "connected", location.Query().Get("status"))
	assert.Equal(t, "spotify", location.Query().Get("platform"))
}

func TestConnectHandler_Callback_StateErrorRedirect(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.callback.err = errors.NewStateError(nil)

	w := performRequest(handler, "", http.MethodGet, "/auth/callback?state=bad&code=auth-code")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "error", location.Query().Get("status"))
	assert.Equal(t, "state_error", location.Query().Get("reason"))
	// The generic message, never the internal cause.
	assert.Equal(t, "authorization could not be completed, please retry", location.Query().Get("message"))
}

func TestConnectHandler_Callback_MissingState(t *testing.T) {
	handler, mocks := newTestHandler()

	w := performRequest(handler, "", http.MethodGet, "/auth/callback?code=auth-code")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Empty(t, mocks.callback.gotCmd.State, "use case never invoked")

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "error", location.Query().Get("status"))
}

func TestConnectHandler_Callback_ProviderErrorForwarded(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.callback.err = errors.NewProviderDeniedError("spotify")

	w := performRequest(handler, "", http.MethodGet, "/auth/callback?state=sealed&error=access_denied")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "access_denied", mocks.callback.gotCmd.ErrorCode)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider_denied", location.Query().Get("reason"))
}

func TestConnectHandler_Disconnect(t *testing.T) {
	handler, mocks := newTestHandler()

	w := performRequest(handler, "user-1", http.MethodPost, "/auth/spotify/disconnect")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", mocks.disconnect.gotCmd.SubjectID)
	assert.Equal(t, "spotify", mocks.disconnect.gotCmd.Platform)
}

func TestConnectHandler_GetStatus(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.status.result = &usecases.ConnectionStatus{
		Platform:        "spotify",
		Status:          "connected",
		ConnectedAt:     time.Now().UTC(),
		AccessExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	w := performRequest(handler, "user-1", http.MethodGet, "/auth/spotify/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"platform":"spotify"`)
	assert.Contains(t, w.Body.String(), `"status":"connected"`)
}

func TestConnectHandler_GetStatus_NotConnected(t *testing.T) {
	handler, _ := newTestHandler()

	w := performRequest(handler, "user-1", http.MethodGet, "/auth/spotify/status")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectHandler_ListStatus(t *testing.T) {
	handler, mocks := newTestHandler()
	mocks.list.result = []*usecases.ConnectionStatus{
		{Platform: "github", Status: "connected"},
		{Platform: "spotify", Status: "needs_reauth"},
	}

	w := performRequest(handler, "user-1", http.MethodGet, "/auth/status")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"github"`)
	assert.Contains(t, w.Body.String(), `"needs_reauth"`)
}
