package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/authflow"
	"github.com/lumina-dash/lumina/internal/infrastructure/crypto"
)

// StateCodec turns an AuthorizationAttempt into an authenticated, encrypted,
// URL-safe state parameter and back. Validation order on decode is fixed:
// structural shape, then authentication tag, then age. Attacker-supplied data
// is never interpreted before its authenticity is proven.
type StateCodec struct {
	cipher *crypto.Cipher
}

func NewStateCodec(cipher *crypto.Cipher) *StateCodec {
	return &StateCodec{cipher: cipher}
}

// Encode serializes and encrypts the attempt.
func (c *StateCodec) Encode(attempt *authflow.AuthorizationAttempt) (string, error) {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attempt: %w", err)
	}

	token, err := c.cipher.Seal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to seal attempt: %w", err)
	}

	return token, nil
}

// Decode reverses Encode. It fails with ErrStateMalformed when the token does
// not parse, ErrStateTampered when the tag fails, and ErrStateExpired when
// issued-at plus maxAge has elapsed.
func (c *StateCodec) Decode(token string, maxAge time.Duration) (*authflow.AuthorizationAttempt, error) {
	payload, err := c.cipher.Open(token)
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrCiphertextMalformed):
			return nil, authflow.ErrStateMalformed
		case errors.Is(err, crypto.ErrCiphertextTampered):
			return nil, authflow.ErrStateTampered
		default:
			return nil, fmt.Errorf("failed to open state token: %w", err)
		}
	}

	var attempt authflow.AuthorizationAttempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, authflow.ErrStateMalformed
	}
	if attempt.SubjectID == "" || attempt.Platform == "" || attempt.CodeVerifier == "" || attempt.IssuedAt.IsZero() {
		return nil, authflow.ErrStateMalformed
	}

	if attempt.Age() > maxAge {
		return nil, authflow.ErrStateExpired
	}

	return &attempt, nil
}
