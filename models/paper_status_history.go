package models

import "time"

// PaperStatusHistory records every status transition applied to a paper.
type PaperStatusHistory struct {
	HistoryID int         `gorm:"primaryKey;column:history_id" json:"id"`
	PaperID   int         `gorm:"column:paper_id;index;not null" json:"paper_id"`
	OldStatus PaperStatus `gorm:"column:old_status;size:32" json:"old_status"`
	NewStatus PaperStatus `gorm:"column:new_status;size:32;not null" json:"new_status"`
	ChangedBy *int        `gorm:"column:changed_by" json:"changed_by"`
	Reason    string      `gorm:"column:reason;size:255" json:"reason"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table for PaperStatusHistory.
func (PaperStatusHistory) TableName() string {
	return "paper_status_history"
}
