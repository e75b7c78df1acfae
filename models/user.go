package models

import (
	"strings"
	"time"
)

// User is an account on the site. Username always mirrors Email.
type User struct {
	UserID    int       `gorm:"primaryKey;column:user_id" json:"id"`
	Username  string    `gorm:"column:username;size:254;uniqueIndex;not null" json:"-"`
	Email     string    `gorm:"column:email;size:254;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"column:password;size:128" json:"-"`
	FirstName string    `gorm:"column:first_name;size:30" json:"first_name"`
	LastName  string    `gorm:"column:last_name;size:30" json:"last_name"`
	IsStaff   bool      `gorm:"column:is_staff;not null" json:"is_staff"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreateAt  time.Time `gorm:"column:create_at;autoCreateTime" json:"-"`
	UpdateAt  time.Time `gorm:"column:update_at;autoUpdateTime" json:"-"`

	// Relations
	Profile *Profile `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

// FullName returns "First Last", falling back to the email address.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func (u User) String() string {
	return u.Email
}

// Profile carries the personal details attached to every User.
type Profile struct {
	ProfileID   int       `gorm:"primaryKey;column:profile_id" json:"-"`
	UserID      int       `gorm:"column:user_id;uniqueIndex;not null" json:"-"`
	Title       Title     `gorm:"column:title;size:64" json:"title"`
	Phone       string    `gorm:"column:phone;size:64" json:"phone"`
	Country     Country   `gorm:"column:country;size:64" json:"country"`
	Affiliation string    `gorm:"column:affiliation;size:64" json:"affiliation"`
	UpdateAt    time.Time `gorm:"column:update_at;autoUpdateTime" json:"-"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// NewProfile returns the default profile for a freshly created user.
func NewProfile(userID int) *Profile {
	return &Profile{
		UserID:  userID,
		Title:   DefaultTitle,
		Country: DefaultCountry,
	}
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Profile) TableName() string {
	return "profiles"
}
