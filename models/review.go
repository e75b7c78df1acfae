package models

import "time"

// Review is one reviewer's evaluation of a Paper. A (user, paper) pair has at most one.
type Review struct {
	ReviewID            int             `gorm:"primaryKey;column:review_id" json:"id"`
	UserID              int             `gorm:"column:user_id;not null;uniqueIndex:idx_reviews_user_paper" json:"user_id"`
	PaperID             int             `gorm:"column:paper_id;not null;uniqueIndex:idx_reviews_user_paper;index" json:"paper_id"`
	Created             time.Time       `gorm:"column:created;autoCreateTime" json:"created"`
	UpdateAt            time.Time       `gorm:"column:update_at;autoUpdateTime" json:"-"`
	EditorReview        bool            `gorm:"column:editor_review;not null" json:"editor_review"`
	Appropriate         Appropriateness `gorm:"column:appropriate;size:32;not null" json:"appropriate"`
	Recommendation      Recommendation  `gorm:"column:recommendation;size:8;not null" json:"recommendation"`
	Comment             string          `gorm:"column:comment;type:text" json:"comment"`
	ConfidentialComment string          `gorm:"column:confidential_comment;type:text" json:"confidential_comment"`
	AdditionalFile      *string         `gorm:"column:additional_file;size:255" json:"-"`

	User  *User  `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Paper *Paper `gorm:"foreignKey:PaperID;references:PaperID" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}
