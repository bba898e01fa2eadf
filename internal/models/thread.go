package models

import (
	"time"

	"gorm.io/gorm"
)

type Thread struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	CreatorID uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator  User           `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Members  []ThreadMember `gorm:"foreignKey:ThreadID" json:"members,omitempty"`
	Messages []Message      `gorm:"foreignKey:ThreadID" json:"messages,omitempty"`
}

type ThreadMember struct {
	ThreadID uint64    `gorm:"primarykey" json:"thread_id"`
	UserID   uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
