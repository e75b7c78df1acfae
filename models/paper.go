package models

import "time"

// FileKind names one of the attachments carried by a Paper.
type FileKind string

const (
	FileManuscript    FileKind = "manuscript"
	FileCoverLetter   FileKind = "cover_letter"
	FileSupplementary FileKind = "supplementary"
)

type Paper struct {
	PaperID       int         `gorm:"primaryKey;column:paper_id" json:"id"`
	UserID        int         `gorm:"column:user_id;index;not null" json:"user_id"`
	EditorID      *int        `gorm:"column:editor_id;index" json:"editor_id"`
	Title         string      `gorm:"column:title;size:64;not null" json:"title"`
	Description   string      `gorm:"column:description;type:text;not null" json:"description"`
	Authors       string      `gorm:"column:authors;type:text" json:"authors"`
	Status        PaperStatus `gorm:"column:status;size:32;index;not null" json:"status"`
	Manuscript    string      `gorm:"column:manuscript;size:255;not null" json:"-"`
	CoverLetter   string      `gorm:"column:cover_letter;size:255;not null" json:"-"`
	Supplementary *string     `gorm:"column:supplementary;size:255" json:"-"`
	Created       time.Time   `gorm:"column:created;autoCreateTime" json:"created"`

	// Relations
	User      *User  `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Editor    *User  `gorm:"foreignKey:EditorID;references:UserID" json:"editor,omitempty"`
	Reviewers []User `gorm:"many2many:paper_reviewers;joinForeignKey:PaperID;joinReferences:UserID" json:"reviewers,omitempty"`
}

func (Paper) TableName() string {
	return "papers"
}

func (p *Paper) HasEditor() bool {
	return p.EditorID != nil
}

func (p *Paper) IsEditor(userID int) bool {
	return p.EditorID != nil && *p.EditorID == userID
}

// HasReviewer requires Reviewers to be preloaded.
func (p *Paper) HasReviewer(userID int) bool {
	for _, r := range p.Reviewers {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// FileKey returns the storage key of the requested attachment, or "" when absent.
func (p *Paper) FileKey(kind FileKind) string {
	switch kind {
	case FileManuscript:
		return p.Manuscript
	case FileCoverLetter:
		return p.CoverLetter
	case FileSupplementary:
		if p.Supplementary != nil {
			return *p.Supplementary
		}
	}
	return ""
}
