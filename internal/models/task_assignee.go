package models

import (
	"time"

	"gorm.io/gorm"
)

type AssigneeStatus string

const (
	StatusInProgress AssigneeStatus = "in_progress"
	StatusSubmitted  AssigneeStatus = "submitted"
	StatusDone       AssigneeStatus = "done"
)

// TaskAssignee tracks one user's progress against one task.
type TaskAssignee struct {
	ID     uint64         `gorm:"primarykey" json:"id"`
	TaskID uint64         `gorm:"not null;uniqueIndex:idx_task_user" json:"task_id"`
	UserID uint64         `gorm:"not null;uniqueIndex:idx_task_user" json:"user_id"`
	Status AssigneeStatus `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`

	SubmittedAt  *time.Time `json:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ReviewedByID *uint64    `json:"reviewed_by_id"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task        Task         `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User        User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReviewedBy  *User        `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	Submissions []Submission `gorm:"foreignKey:TaskAssigneeID" json:"submissions,omitempty"`
}
