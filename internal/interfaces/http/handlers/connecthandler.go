package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/shared/errors"
	"github.com/lumina-dash/lumina/internal/shared/logger"
	"github.com/lumina-dash/lumina/internal/shared/utils"
)

// ConnectHandler serves the platform connection endpoints: starting an
// authorization, receiving the provider callback, and managing stored
// connections.
type ConnectHandler struct {
	initiateUC          initiateAuthorizationUseCase
	callbackUC          handleCallbackUseCase
	disconnectUC        disconnectPlatformUseCase
	statusUC            getConnectionStatusUseCase
	listUC              listConnectionsUseCase
	frontendCallbackURL string
	logger              logger.Interface
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(
	initiateUC initiateAuthorizationUseCase,
	callbackUC handleCallbackUseCase,
	disconnectUC disconnectPlatformUseCase,
	statusUC getConnectionStatusUseCase,
	listUC listConnectionsUseCase,
	frontendCallbackURL string,
	logger logger.Interface,
) *ConnectHandler {
	return &ConnectHandler{
		initiateUC:          initiateUC,
		callbackUC:          callbackUC,
		disconnectUC:        disconnectUC,
		statusUC:            statusUC,
		listUC:              listUC,
		frontendCallbackURL: frontendCallbackURL,
		logger:              logger,
	}
}

// Initiate starts an authorization flow and returns the provider URL the
// client should redirect the user to.
func (h *ConnectHandler) Initiate(c *gin.Context) {
	subjectID := c.GetString("subject_id")
	platform := c.Param("platform")

	cmd := usecases.InitiateAuthorizationCommand{
		SubjectID: subjectID,
		Platform:  platform,
	}

	result, err := h.initiateUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		if errors.ShouldLogFlowError(err) {
			h.logger.Errorw("authorization initiation failed", "platform", platform, "error", err)
		}
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "authorization started", gin.H{
		"authorization_url": result.AuthorizationURL,
		"platform":          result.Platform,
	})
}

// Callback receives the provider redirect. The browser lands here, so the
// outcome is delivered as a redirect to the frontend rather than JSON.
func (h *ConnectHandler) Callback(c *gin.Context) {
	cmd := usecases.HandleCallbackCommand{
		State:            c.Query("state"),
		Code:             c.Query("code"),
		ErrorCode:        c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	if cmd.State == "" {
		h.logger.Warnw("callback missing state parameter")
		h.redirectFrontend(c, "", errors.NewStateError(nil))
		return
	}
	if cmd.Code == "" && cmd.ErrorCode == "" {
		h.logger.Warnw("callback missing code parameter")
		h.redirectFrontend(c, "", errors.NewStateError(nil))
		return
	}

	result, err := h.callbackUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		if errors.ShouldLogFlowError(err) {
			cause := err
			if flowErr := errors.GetFlowError(err); flowErr != nil {
				cause = flowErr.Cause()
			}
			h.logger.Errorw("callback handling failed", "error", cause)
		}
		h.redirectFrontend(c, "", err)
		return
	}

	h.redirectFrontend(c, result.Platform, nil)
}

// Disconnect removes the stored connection. Succeeds whether or not one exists.
func (h *ConnectHandler) Disconnect(c *gin.Context) {
	cmd := usecases.DisconnectPlatformCommand{
		SubjectID: c.GetString("subject_id"),
		Platform:  c.Param("platform"),
	}

	if err := h.disconnectUC.Execute(c.Request.Context(), cmd); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "platform disconnected", nil)
}

// GetStatus reports one platform connection for the authenticated subject.
func (h *ConnectHandler) GetStatus(c *gin.Context) {
	subjectID := c.GetString("subject_id")
	platform := c.Param("platform")

	status, err := h.statusUC.Execute(c.Request.Context(), subjectID, platform)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if status == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "platform is not connected")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", status)
}

// ListStatus reports all platform connections for the authenticated subject.
func (h *ConnectHandler) ListStatus(c *gin.Context) {
	statuses, err := h.listUC.Execute(c.Request.Context(), c.GetString("subject_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"connections": statuses})
}

// redirectFrontend sends the browser back to the frontend with the flow
// outcome in query parameters. Internal causes never appear in the URL.
func (h *ConnectHandler) redirectFrontend(c *gin.Context, platform string, flowErr error) {
	params := url.Values{}
	if flowErr == nil {
		params.Set("status", "connected")
		params.Set("platform", platform)
	} else {
		params.Set("status", "error")
		if appErr := errors.GetAppError(flowErr); appErr != nil {
			params.Set("reason", string(appErr.Type))
			params.Set("message", appErr.Message)
		} else {
			params.Set("reason", string(errors.ErrorTypeState))
			params.Set("message", "authorization could not be completed, please retry")
		}
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendCallbackURL+"?"+params.Encode())
}
