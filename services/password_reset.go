package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"acrevista-api/models"
	"acrevista-api/utils"

	"gorm.io/gorm"
)

const passwordResetTTL = 10 * time.Minute

type passwordResetRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	RevokePasswordResetTokens(tx *gorm.DB, userID int, now time.Time) error
	CreateToken(tx *gorm.DB, token *models.PasswordResetToken) error
	FindActiveTokens(ctx context.Context, now time.Time) ([]models.PasswordResetToken, error)
	UpdateUserPassword(tx *gorm.DB, userID int, hashedPassword string, now time.Time) error
}

type gormPasswordResetRepository struct {
	db *gorm.DB
}

func (r *gormPasswordResetRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormPasswordResetRepository) RevokePasswordResetTokens(tx *gorm.DB, userID int, now time.Time) error {
	if userID == 0 {
		return nil
	}
	return tx.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"is_revoked": true,
			"updated_at": now,
			"expires_at": now,
		}).Error
}

func (r *gormPasswordResetRepository) CreateToken(tx *gorm.DB, token *models.PasswordResetToken) error {
	return tx.Create(token).Error
}

func (r *gormPasswordResetRepository) FindActiveTokens(ctx context.Context, now time.Time) ([]models.PasswordResetToken, error) {
	var tokens []models.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("is_revoked = ? AND expires_at > ?", false, now).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *gormPasswordResetRepository) UpdateUserPassword(tx *gorm.DB, userID int, hashedPassword string, now time.Time) error {
	return tx.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"password":  hashedPassword,
			"update_at": now,
		}).Error
}

// PasswordResetService mails single-use reset links and applies new passwords.
type PasswordResetService struct {
	db       *gorm.DB
	repo     passwordResetRepository
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

func NewPasswordResetService(db *gorm.DB, notifier Notifier, baseURL string) *PasswordResetService {
	return &PasswordResetService{
		db:       db,
		repo:     &gormPasswordResetRepository{db: db},
		notifier: notifier,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// RequestReset mails a reset link to email. Unknown addresses succeed silently
// so the endpoint cannot be used to probe for accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, clientIP, userAgent string) error {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return fieldError("email", "Enter a valid email address.")
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	rawToken, err := GenerateSecurityToken(DefaultTokenBytes)
	if err != nil {
		return err
	}
	hashedToken, err := utils.HashPassword(rawToken)
	if err != nil {
		return fmt.Errorf("hash reset token: %w", err)
	}
	resetURL, err := buildResetURL(s.baseURL, rawToken)
	if err != nil {
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.RevokePasswordResetTokens(tx, user.UserID, now); err != nil {
			return fmt.Errorf("revoke reset tokens: %w", err)
		}
		token := &models.PasswordResetToken{
			UserID:    user.UserID,
			Token:     hashedToken,
			ExpiresAt: now.Add(passwordResetTTL),
			IPAddress: clientIP,
			UserAgent: truncate(userAgent, 255),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateToken(tx, token); err != nil {
			return fmt.Errorf("store reset token: %w", err)
		}
		return direct(ctx, s.notifier, passwordResetNotice(user.Email, user.FullName(), resetURL, "10 minutes"))
	})
}

// Reset sets a new password for the owner of rawToken and revokes every
// outstanding reset token of that user.
func (s *PasswordResetService) Reset(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	rawToken = utils.SanitizeInput(rawToken)
	if rawToken == "" {
		return fieldError("token", "This field is required.")
	}
	if newPassword != confirmPassword {
		return fieldError("confirm_password", "The two password fields didn't match.")
	}
	if ok, msg := utils.ValidatePassword(newPassword); !ok {
		return fieldError("new_password", msg)
	}

	now := s.now()
	record, err := s.findActiveToken(ctx, rawToken, now)
	if err != nil {
		return err
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateUserPassword(tx, record.UserID, hashed, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return s.repo.RevokePasswordResetTokens(tx, record.UserID, now)
	})
}

func (s *PasswordResetService) findActiveToken(ctx context.Context, rawToken string, now time.Time) (*models.PasswordResetToken, error) {
	tokens, err := s.repo.FindActiveTokens(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		if utils.CheckPasswordHash(rawToken, tokens[i].Token) {
			return &tokens[i], nil
		}
	}
	return nil, ErrTokenInvalid
}

func buildResetURL(baseURL, token string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/account/password-reset/confirm"
	query := parsed.Query()
	query.Set("key", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// truncate keeps at most n characters of s, cutting between runes.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
