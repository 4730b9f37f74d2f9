package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethodS256 is the only challenge method this service offers.
// OAuth 2.1 drops the "plain" method entirely.
const ChallengeMethodS256 = "S256"

// pkceVerifierBytes gives 256 bits of entropy; the base64url encoding is
// 43 characters, the RFC 7636 minimum verifier length.
const pkceVerifierBytes = 32

// GeneratePKCE generates a code_verifier and its S256 code_challenge for one
// authorization attempt.
func GeneratePKCE() (codeVerifier, codeChallenge string, err error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	codeVerifier = base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(codeVerifier))
	codeChallenge = base64.RawURLEncoding.EncodeToString(hash[:])

	return codeVerifier, codeChallenge, nil
}
