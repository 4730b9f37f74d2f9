package models

import "time"

// AuthStateModel is the persistence model for issued state tokens. The token
// itself is stored only as a SHA-256 hash; the encrypted blob round-trips
// through the provider, not through us.
type AuthStateModel struct {
	ID         uint       `gorm:"primarykey"`
	TokenHash  string     `gorm:"not null;size:64;uniqueIndex:idx_auth_states_token_hash"`
	SubjectID  string     `gorm:"not null;size:64;index:idx_auth_states_subject"`
	Platform   string     `gorm:"not null;size:50"`
	ExpiresAt  time.Time  `gorm:"not null;index:idx_auth_states_expires"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// TableName specifies the table name for GORM
func (AuthStateModel) TableName() string {
	return "auth_states"
}
