// Package vault encrypts credential material before it reaches the store and
// decrypts it only at the point of use.
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/lumina-dash/lumina/internal/domain/connection"
	"github.com/lumina-dash/lumina/internal/infrastructure/crypto"
	"github.com/lumina-dash/lumina/internal/shared/errors"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

// Credential pairs connection metadata with its decrypted token material.
// Instances live for one request or one refresh pass, never longer.
type Credential struct {
	Connection   *connection.PlatformConnection
	AccessToken  string
	RefreshToken string
}

// CredentialVault stores and retrieves encrypted credentials keyed by
// (subject, platform). The key is process-wide configuration; each stored
// blob carries the key version it was sealed with so a rotation pass can
// find and re-encrypt old blobs.
type CredentialVault struct {
	cipher     *crypto.Cipher
	keyVersion int
	repo       connection.Repository
	logger     logger.Interface
}

func NewCredentialVault(cipher *crypto.Cipher, keyVersion int, repo connection.Repository, log logger.Interface) *CredentialVault {
	return &CredentialVault{
		cipher:     cipher,
		keyVersion: keyVersion,
		repo:       repo,
		logger:     log,
	}
}

// Put encrypts and stores tokens for the pair. First write creates the
// connection; later writes (reconnects, refreshes) replace token material
// and advance last-refreshed-at while keeping the original connected-at.
func (v *CredentialVault) Put(ctx context.Context, subjectID, platform, accessToken string, refreshToken *string, expiresAt time.Time) error {
	encAccess, err := v.cipher.Seal([]byte(accessToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var encRefresh *string
	if refreshToken != nil && *refreshToken != "" {
		sealed, err := v.cipher.Seal([]byte(*refreshToken))
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		encRefresh = &sealed
	}

	existing, err := v.repo.GetBySubjectAndPlatform(ctx, subjectID, platform)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.ApplyRefresh(encAccess, encRefresh, expiresAt.UTC())
		existing.KeyVersion = v.keyVersion
		return v.repo.Upsert(ctx, existing)
	}

	conn, err := connection.NewPlatformConnection(subjectID, platform, encAccess, encRefresh, v.keyVersion, expiresAt.UTC())
	if err != nil {
		return err
	}
	return v.repo.Upsert(ctx, conn)
}

// Get returns the credential with decrypted tokens.
func (v *CredentialVault) Get(ctx context.Context, subjectID, platform string) (*Credential, error) {
	conn, err := v.repo.GetBySubjectAndPlatform(ctx, subjectID, platform)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.NewNotFoundError("no credential stored for this platform")
	}
	return v.decrypt(conn)
}

// MarkNeedsReauth moves the credential out of the refresh pool until the
// subject re-authorizes.
func (v *CredentialVault) MarkNeedsReauth(ctx context.Context, subjectID, platform string) error {
	return v.repo.UpdateStatus(ctx, subjectID, platform, connection.StatusNeedsReauth)
}

// Delete removes the credential. Idempotent.
func (v *CredentialVault) Delete(ctx context.Context, subjectID, platform string) error {
	return v.repo.Delete(ctx, subjectID, platform)
}

// ListExpiring returns decrypted credentials whose access token expires
// within the window. Entries that fail to decrypt are skipped and logged;
// one bad row must not abort a refresh batch.
func (v *CredentialVault) ListExpiring(ctx context.Context, within time.Duration, limit int) ([]*Credential, error) {
	conns, err := v.repo.ListExpiring(ctx, time.Now().UTC().Add(within), limit)
	if err != nil {
		return nil, err
	}

	creds := make([]*Credential, 0, len(conns))
	for _, conn := range conns {
		cred, err := v.decrypt(conn)
		if err != nil {
			v.logger.Errorw("skipping credential that failed to decrypt",
				"subject_id", conn.SubjectID,
				"platform", conn.Platform,
				"key_version", conn.KeyVersion,
				"error", err,
			)
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func (v *CredentialVault) decrypt(conn *connection.PlatformConnection) (*Credential, error) {
	if conn.KeyVersion != v.keyVersion {
		return nil, fmt.Errorf("credential sealed with key version %d, vault holds version %d", conn.KeyVersion, v.keyVersion)
	}

	access, err := v.cipher.Open(conn.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	cred := &Credential{
		Connection:  conn,
		AccessToken: string(access),
	}

	if conn.HasRefreshToken() {
		refresh, err := v.cipher.Open(*conn.EncryptedRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		cred.RefreshToken = string(refresh)
	}

	return cred, nil
}
