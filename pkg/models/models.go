package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is created lazily on the first successful OAuth callback. ExternalID
// is the subject of the external auth provider's session token.
type User struct {
	ID         string `gorm:"primaryKey"`
	ExternalID string `gorm:"uniqueIndex;not null"`
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	CalendarTokens []CalendarToken
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// CalendarToken holds one Google Calendar credential per user. The unique
// index on UserID enforces the one-credential invariant at the write path.
type CalendarToken struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"uniqueIndex;not null"`

	AccessToken string `gorm:"not null"`
	// RefreshToken may be empty when the provider omits it on reconnect.
	RefreshToken string
	Expiry       time.Time `gorm:"not null"`
	// CalendarID is the provider-side calendar key, here the connected
	// account's email.
	CalendarID string `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
