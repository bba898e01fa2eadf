package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskGroup assigns a task to every member of a group.
type TaskGroup struct {
	TaskID    uint64         `gorm:"primarykey" json:"task_id"`
	GroupID   uint64         `gorm:"primarykey" json:"group_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task  Task  `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
