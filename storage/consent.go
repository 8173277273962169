package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterUser records a user on first observation. The insert is
// insert-or-ignore: an existing record, including its consent state, is
// never touched. Bot accounts are created already opted in since there is
// nobody to ask. Returns whether a new record was created so the caller
// can decide to send a consent prompt.
func (s *Storage) RegisterUser(userID int64, isBot bool) (bool, error) {
	user := User{
		UserID:  userID,
		Consent: ConsentPending,
	}
	if isBot {
		user.Consent = ConsentOptedIn
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if result.Error != nil {
		slog.Error("storage: Failed to register user", "error", result.Error, "user_id", userID)
		return false, fmt.Errorf("failed to register user: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetConsent returns the consent state of a registered user.
func (s *Storage) GetConsent(userID int64) (ConsentState, error) {
	var user User
	result := s.db.First(&user, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		slog.Error("storage: Failed to get consent", "error", result.Error, "user_id", userID)
		return "", fmt.Errorf("failed to get consent: %w", result.Error)
	}

	return user.Consent, nil
}

// SetConsent records a user's answer to the consent prompt. The user must
// already be registered.
func (s *Storage) SetConsent(userID int64, state ConsentState) error {
	result := s.db.Model(&User{}).Where("user_id = ?", userID).Update("consent", state)
	if result.Error != nil {
		slog.Error("storage: Failed to set consent", "error", result.Error,
			"user_id", userID, "consent", state)
		return fmt.Errorf("failed to set consent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetAnonymous records the "use my messages but not my name" choice.
// Anonymity is separate from consent: an anonymous user's messages are
// archived with no author name attached.
func (s *Storage) SetAnonymous(userID int64, anonymous bool) error {
	result := s.db.Model(&User{}).Where("user_id = ?", userID).Update("anonymous", anonymous)
	if result.Error != nil {
		slog.Error("storage: Failed to set anonymity", "error", result.Error, "user_id", userID)
		return fmt.Errorf("failed to set anonymity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetUser returns the full user record.
func (s *Storage) GetUser(userID int64) (*User, error) {
	var user User
	result := s.db.First(&user, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("storage: Failed to get user", "error", result.Error, "user_id", userID)
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}

	return &user, nil
}
