package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Authorization-flow error types
const (
	ErrorTypeConfiguration       ErrorType = "configuration_error"
	ErrorTypeState               ErrorType = "state_error"
	ErrorTypeProviderDenied      ErrorType = "provider_denied"
	ErrorTypeExchangeRejected    ErrorType = "exchange_rejected"
	ErrorTypeExchangeUnavailable ErrorType = "exchange_unavailable"
)

// FlowError represents authorization-flow errors with security context.
// The external Message is deliberately coarse for state failures; the
// specific cause is carried internally for logging only.
type FlowError struct {
	*AppError
	// ShouldLog determines if this error warrants error-level logging.
	// Expected outcomes (user denied consent) don't need to clutter logs.
	ShouldLog bool
	// SecurityEvent marks errors worth tracking for abuse detection.
	SecurityEvent bool
	// cause holds the precise internal reason, never surfaced to callers.
	cause error
}

func (e *FlowError) Error() string {
	return e.AppError.Error()
}

func (e *FlowError) Unwrap() error {
	return e.AppError
}

// Cause returns the internal reason for logging. Never include it in a response.
func (e *FlowError) Cause() error {
	if e.cause != nil {
		return e.cause
	}
	return e.AppError
}

// NewConfigurationError reports an unknown or misconfigured platform. Fatal
// for the request, never retried.
func NewConfigurationError(platform string) *FlowError {
	return &FlowError{
		AppError: &AppError{
			Type:    ErrorTypeConfiguration,
			Message: fmt.Sprintf("platform %q is not supported", platform),
			Code:    http.StatusNotFound,
		},
		ShouldLog: false,
	}
}

// NewStateError wraps any state validation failure (expired, tampered,
// malformed, replayed, unknown) behind one generic message so callers cannot
// distinguish which check failed.
func NewStateError(cause error) *FlowError {
	return &FlowError{
		AppError: &AppError{
			Type:    ErrorTypeState,
			Message: "authorization could not be completed, please retry",
			Code:    http.StatusBadRequest,
		},
		ShouldLog:     true,
		SecurityEvent: true,
		cause:         cause,
	}
}

// NewProviderDeniedError reports that the user declined consent. A legitimate
// outcome, surfaced distinctly so the UI can handle it gracefully.
func NewProviderDeniedError(platform string) *FlowError {
	return &FlowError{
		AppError: &AppError{
			Type:    ErrorTypeProviderDenied,
			Message: fmt.Sprintf("authorization for %s was declined", platform),
			Code:    http.StatusForbidden,
		},
		ShouldLog: false,
	}
}

// NewExchangeRejectedError reports that the provider rejected the code or
// verifier. Terminal: the caller must restart the flow.
func NewExchangeRejectedError(platform string, cause error) *FlowError {
	return &FlowError{
		AppError: &AppError{
			Type:    ErrorTypeExchangeRejected,
			Message: fmt.Sprintf("%s rejected the authorization, please reconnect", platform),
			Code:    http.StatusBadGateway,
		},
		ShouldLog:     true,
		SecurityEvent: true,
		cause:         cause,
	}
}

// NewExchangeUnavailableError reports a transport-level exchange failure that
// survived bounded retries.
func NewExchangeUnavailableError(platform string, cause error) *FlowError {
	return &FlowError{
		AppError: &AppError{
			Type:    ErrorTypeExchangeUnavailable,
			Message: fmt.Sprintf("%s is temporarily unavailable, please retry", platform),
			Code:    http.StatusBadGateway,
		},
		ShouldLog: true,
		cause:     cause,
	}
}

// GetFlowError extracts a FlowError from the error chain, or nil.
func GetFlowError(err error) *FlowError {
	var flowErr *FlowError
	if stderrors.As(err, &flowErr) {
		return flowErr
	}
	return nil
}

// ShouldLogFlowError reports whether the error warrants error-level logging.
func ShouldLogFlowError(err error) bool {
	if flowErr := GetFlowError(err); flowErr != nil {
		return flowErr.ShouldLog
	}
	return true
}
