package models

import (
	"time"
)

// Report is an abuse report against either a post or a user, never
// both. It is write-only from the client's perspective.
type Report struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReporterID     uint      `gorm:"not null;index" json:"reporter_id"`
	ReportedPostID *uint     `gorm:"index" json:"reported_post_id,omitempty"`
	ReportedUserID *uint     `gorm:"index" json:"reported_user_id,omitempty"`
	Reason         string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Report) TableName() string {
	return "reports"
}
