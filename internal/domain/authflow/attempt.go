package authflow

import (
	"fmt"
	"time"
)

// AuthorizationAttempt is the context bound to one authorization round trip.
// It only ever exists inside the encrypted state parameter; it is never
// persisted in the clear.
type AuthorizationAttempt struct {
	SubjectID    string    `json:"sub"`
	Platform     string    `json:"platform"`
	CodeVerifier string    `json:"code_verifier"`
	IssuedAt     time.Time `json:"issued_at"`
}

func NewAuthorizationAttempt(subjectID, platform, codeVerifier string) (*AuthorizationAttempt, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}
	if platform == "" {
		return nil, fmt.Errorf("platform is required")
	}
	if codeVerifier == "" {
		return nil, fmt.Errorf("code verifier is required")
	}
	return &AuthorizationAttempt{
		SubjectID:    subjectID,
		Platform:     platform,
		CodeVerifier: codeVerifier,
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// Age returns how long ago the attempt was issued.
func (a *AuthorizationAttempt) Age() time.Duration {
	return time.Since(a.IssuedAt)
}
