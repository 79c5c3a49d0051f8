package models

import (
	"time"
)

// MaxCommentContentLen is the longest comment body accepted by the write path.
const MaxCommentContentLen = 300

// Comment is a reply to a post. ParentID, when set, references a
// top-level comment on the same post; the thread is capped at two
// levels and the write path rejects replies to replies.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      Profile   `gorm:"foreignKey:UserID" json:"user"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment has a parent.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
