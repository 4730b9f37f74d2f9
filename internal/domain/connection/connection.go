package connection

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of a stored platform connection. A
// disconnected pair has no row at all, so absence is the third state.
type Status string

const (
	// StatusConnected means valid credentials are stored and refreshable.
	StatusConnected Status = "connected"
	// StatusNeedsReauth means the provider no longer accepts our refresh
	// token; the subject must go through authorization again.
	StatusNeedsReauth Status = "needs_reauth"
)

// PlatformConnection is the stored credential for one (subject, platform)
// pair. Token material is always encrypted before it reaches this struct;
// plaintext tokens exist only transiently inside the vault.
type PlatformConnection struct {
	ID                    uint
	SubjectID             string
	Platform              string
	EncryptedAccessToken  string
	EncryptedRefreshToken *string
	KeyVersion            int
	AccessExpiresAt       time.Time
	LastRefreshedAt       *time.Time
	Status                Status
	ConnectedAt           time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewPlatformConnection(subjectID, platform, encryptedAccessToken string, encryptedRefreshToken *string, keyVersion int, accessExpiresAt time.Time) (*PlatformConnection, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}
	if platform == "" {
		return nil, fmt.Errorf("platform is required")
	}
	if encryptedAccessToken == "" {
		return nil, fmt.Errorf("encrypted access token is required")
	}

	now := time.Now().UTC()
	return &PlatformConnection{
		SubjectID:             subjectID,
		Platform:              platform,
		EncryptedAccessToken:  encryptedAccessToken,
		EncryptedRefreshToken: encryptedRefreshToken,
		KeyVersion:            keyVersion,
		AccessExpiresAt:       accessExpiresAt,
		Status:                StatusConnected,
		ConnectedAt:           now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// ApplyRefresh records a successful provider refresh. The stored expiry is
// replaced together with the token so the two never drift apart. A nil
// encryptedRefreshToken keeps the existing one (providers that do not rotate).
func (c *PlatformConnection) ApplyRefresh(encryptedAccessToken string, encryptedRefreshToken *string, accessExpiresAt time.Time) {
	now := time.Now().UTC()
	c.EncryptedAccessToken = encryptedAccessToken
	if encryptedRefreshToken != nil {
		c.EncryptedRefreshToken = encryptedRefreshToken
	}
	c.AccessExpiresAt = accessExpiresAt
	c.LastRefreshedAt = &now
	c.Status = StatusConnected
	c.UpdatedAt = now
}

func (c *PlatformConnection) MarkNeedsReauth() {
	c.Status = StatusNeedsReauth
	c.UpdatedAt = time.Now().UTC()
}

func (c *PlatformConnection) HasRefreshToken() bool {
	return c.EncryptedRefreshToken != nil && *c.EncryptedRefreshToken != ""
}

// Repository persists platform connections. Upsert is last-writer-wins on
// (subject_id, platform): the refresh scheduler and a user-triggered reconnect
// converge on the same provider-issued truth, so neither needs to win.
type Repository interface {
	Upsert(ctx context.Context, conn *PlatformConnection) error
	GetBySubjectAndPlatform(ctx context.Context, subjectID, platform string) (*PlatformConnection, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*PlatformConnection, error)
	// ListExpiring returns connected credentials with a refresh token whose
	// access token expires before the given time.
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*PlatformConnection, error)
	UpdateStatus(ctx context.Context, subjectID, platform string, status Status) error
	// Delete removes the pair. Deleting a missing pair is a no-op.
	Delete(ctx context.Context, subjectID, platform string) error
}
