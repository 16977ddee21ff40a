package token

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ottoassistant/pkg/models"
)

// ErrNoCredential is returned when a user has no calendar connection.
// Callers branch on it with errors.Is and degrade instead of failing the
// request.
var ErrNoCredential = errors.New("no calendar credential")

// Store persists CalendarToken records in Postgres.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ByExternalID returns the credential for the user identified by the
// external auth subject id.
func (s *Store) ByExternalID(externalID string) (*models.CalendarToken, error) {
	var tok models.CalendarToken
	err := s.db.
		Joins("JOIN users ON users.id = calendar_tokens.user_id").
		Where("users.external_id = ?", externalID).
		First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return &tok, nil
}

// Upsert writes the credential keyed by user id: the existing row is
// updated in place, otherwise one is created. This is where the
// one-credential-per-user invariant is enforced.
func (s *Store) Upsert(userID, accessToken, refreshToken string, expiry time.Time, calendarID string) error {
	tok := models.CalendarToken{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       expiry,
		CalendarID:   calendarID,
	}
	err := s.db.
		Where(models.CalendarToken{UserID: userID}).
		Assign(map[string]any{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expiry":        expiry,
			"calendar_id":   calendarID,
		}).
		FirstOrCreate(&tok).Error
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// UpdateAccess persists a refreshed access token and its expiry. The stored
// refresh token is deliberately left untouched: silent refresh never
// rotates it.
func (s *Store) UpdateAccess(id uint, accessToken string, expiry time.Time) error {
	err := s.db.Model(&models.CalendarToken{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_token": accessToken,
			"expiry":       expiry,
		}).Error
	if err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}
