package models

import "time"

// LoginToken lets its owner sign in without a password until ExpiryDate.
// A user holds at most one.
type LoginToken struct {
	TokenID    int       `gorm:"primaryKey;column:token_id" json:"-"`
	UserID     int       `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Token      string    `gorm:"column:token;size:128;uniqueIndex;not null" json:"token"`
	ExpiryDate time.Time `gorm:"column:expiry_date;not null" json:"expiry_date"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

func (LoginToken) TableName() string {
	return "login_tokens"
}

func (t *LoginToken) Expired(now time.Time) bool {
	return t.ExpiryDate.Before(now)
}

// PasswordResetToken stores the bcrypt hash of a mailed reset token.
type PasswordResetToken struct {
	TokenID   int       `gorm:"primaryKey;column:token_id"`
	UserID    int       `gorm:"column:user_id;index;not null"`
	Token     string    `gorm:"column:token;size:255;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	IsRevoked bool      `gorm:"column:is_revoked;not null"`
	IPAddress string    `gorm:"column:ip_address;size:64"`
	UserAgent string    `gorm:"column:user_agent;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
