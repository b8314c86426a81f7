package models

import "time"

// User is a local account bound to one external identity.
// Username and HashedExternalID are each unique; Username never changes after creation.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"size:64;not null;unique" json:"username"`
	HashedExternalID string    `gorm:"column:hashedExternalId;size:64;not null;unique" json:"-"`
	AvatarURL        string    `gorm:"column:avatar_url;size:512" json:"avatar_url"`
	MemberSince      time.Time `gorm:"column:memberSince;not null" json:"member_since"`
}
