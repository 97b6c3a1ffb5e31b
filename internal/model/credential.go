package model

import "time"

// Credential holds the opaque vendor API token stored for a user. An
// expired or missing token is a routine condition reported back through
// failed actions rather than an error that can take the process down.
type Credential struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Token     string    `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
