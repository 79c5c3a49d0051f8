package models

import (
	"time"
)

// MaxPostContentLen is the longest post body accepted by the write path.
const MaxPostContentLen = 500

// Post is a single wendle. Posts are immutable once created; the only
// mutation is deletion by the author.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      Profile   `gorm:"foreignKey:UserID" json:"user"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}
