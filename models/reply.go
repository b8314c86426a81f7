package models

import "time"

// Reply answers a post. OriginalPostID is not enforced by a constraint and
// may outlive the post it points at.
type Reply struct {
	ReplyID        uint      `gorm:"column:replyId;primaryKey" json:"reply_id"`
	OriginalPostID uint      `gorm:"column:originalPostId;index" json:"original_post_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Username       string    `gorm:"size:64;not null" json:"username"`
	Timestamp      time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	Likes          int       `gorm:"not null" json:"likes"`
}

// TableName pins the table to "replies".
func (Reply) TableName() string { return "replies" }
