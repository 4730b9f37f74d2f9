package models

import "time"

// PlatformConnectionModel is the persistence model for stored credentials.
// Token columns only ever hold ciphertext.
type PlatformConnectionModel struct {
	ID                    uint       `gorm:"primarykey"`
	SubjectID             string     `gorm:"not null;size:64;uniqueIndex:idx_connections_subject_platform"`
	Platform              string     `gorm:"not null;size:50;uniqueIndex:idx_connections_subject_platform"`
	AccessTokenEnc        string     `gorm:"not null;type:text;column:access_token_enc"`
	RefreshTokenEnc       *string    `gorm:"type:text;column:refresh_token_enc"`
	KeyVersion            int        `gorm:"not null;default:1"`
	AccessExpiresAt       time.Time  `gorm:"not null;index:idx_connections_expires"`
	LastRefreshedAt       *time.Time
	Status                string     `gorm:"not null;size:20;index:idx_connections_status"`
	ConnectedAt           time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName specifies the table name for GORM
func (PlatformConnectionModel) TableName() string {
	return "platform_connections"
}
