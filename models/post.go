package models

import "time"

// Post is a titled entry owned by the user named in Username.
// Username is a denormalised copy of the owner's display name, not a foreign key.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Username  string    `gorm:"size:64;not null;index" json:"username"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Edited    bool      `gorm:"not null;default:false" json:"edited"`
}
