package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"acrevista-api/models"

	"gorm.io/gorm"
)

const (
	DefaultTokenBytes     = 32
	MaxTokenBytes         = 64
	DefaultLoginTokenDays = 10
)

// GenerateSecurityToken returns size random bytes as unpadded base64url text.
// A size of zero or less means DefaultTokenBytes.
func GenerateSecurityToken(size int) (string, error) {
	if size <= 0 {
		size = DefaultTokenBytes
	}
	if size > MaxTokenBytes {
		return "", ErrTokenTooLarge
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DaysFrom returns now shifted by days; days <= 0 falls back to the default window.
func DaysFrom(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultLoginTokenDays
	}
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

type LoginTokenService struct {
	db   *gorm.DB
	days int
	now  func() time.Time

	notifier Notifier
	siteName string
	baseURL  string
}

func NewLoginTokenService(db *gorm.DB, days int) *LoginTokenService {
	return &LoginTokenService{db: db, days: days, now: time.Now}
}

// Issue replaces any token the user holds with a fresh one.
func (s *LoginTokenService) Issue(ctx context.Context, userID int) (*models.LoginToken, error) {
	var token *models.LoginToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = s.issueTx(tx, userID)
		return err
	})
	return token, err
}

func (s *LoginTokenService) issueTx(tx *gorm.DB, userID int) (*models.LoginToken, error) {
	raw, err := GenerateSecurityToken(DefaultTokenBytes)
	if err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.LoginToken{}).Error; err != nil {
		return nil, fmt.Errorf("delete previous login token: %w", err)
	}

	token := &models.LoginToken{
		UserID:     userID,
		Token:      raw,
		ExpiryDate: DaysFrom(s.now(), s.days),
	}
	if err := tx.Create(token).Error; err != nil {
		return nil, fmt.Errorf("create login token: %w", err)
	}
	return token, nil
}

// IssueAndSend mints a token for user and mails them a sign-in link. A mail
// failure rolls the new token back.
func (s *LoginTokenService) IssueAndSend(ctx context.Context, user *models.User) (*models.LoginToken, error) {
	var token *models.LoginToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = s.issueTx(tx, user.UserID)
		if err != nil {
			return err
		}
		loginURL, err := withToken(s.baseURL+"/account/login", token.Token)
		if err != nil {
			return err
		}
		return direct(ctx, s.notifier, loginTokenNotice(s.siteName, user.Email, loginURL))
	})
	return token, err
}

// Lookup resolves a presented token to its owner. The token stays valid until it
// expires or is replaced.
func (s *LoginTokenService) Lookup(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	var token models.LoginToken
	if err := s.db.WithContext(ctx).Preload("User").Where("token = ?", raw).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if token.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	if token.User == nil || !token.User.IsActive {
		return nil, ErrTokenInvalid
	}
	return token.User, nil
}

// ForUser returns the user's current token, if any.
func (s *LoginTokenService) ForUser(ctx context.Context, userID int) (*models.LoginToken, error) {
	var token models.LoginToken
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &token, nil
}

// PurgeExpired deletes every expired token and reports how many were removed.
func (s *LoginTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expiry_date < ?", s.now()).Delete(&models.LoginToken{})
	return res.RowsAffected, res.Error
}
