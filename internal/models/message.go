package models

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	ThreadID  uint64         `gorm:"not null;index" json:"thread_id"`
	AuthorID  uint64         `gorm:"not null" json:"author_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
