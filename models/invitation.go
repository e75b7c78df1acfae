package models

import (
	"strconv"
	"time"
)

type InvitationState string

const (
	InvitationPending  InvitationState = "pending"
	InvitationAccepted InvitationState = "accepted"
	InvitationRejected InvitationState = "rejected"
)

// Invitation asks Email to review a paper. Accepted is nil while pending.
// Name keeps the paper id as text for older links; PaperID is authoritative.
type Invitation struct {
	InvitationID int       `gorm:"primaryKey;column:invitation_id" json:"id"`
	Email        string    `gorm:"column:email;size:254;index;not null" json:"email"`
	Name         string    `gorm:"column:name;size:64;not null" json:"name"`
	PaperID      int       `gorm:"column:paper_id;index;not null" json:"paper_id"`
	URL          string    `gorm:"column:url;size:512" json:"url"`
	Token        string    `gorm:"column:token;size:128;uniqueIndex;not null" json:"-"`
	Accepted     *bool     `gorm:"column:accepted" json:"accepted"`
	CreateAt     time.Time `gorm:"column:create_at;autoCreateTime" json:"created"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) State() InvitationState {
	switch {
	case i.Accepted == nil:
		return InvitationPending
	case *i.Accepted:
		return InvitationAccepted
	default:
		return InvitationRejected
	}
}

// PaperName is the value stored in Name for a paper id.
func PaperName(paperID int) string {
	return strconv.Itoa(paperID)
}
