package models

import "time"

// Submission is one attempt record in the review workflow. Rejection closes
// the open submission and creates a fresh one carrying the reason; prior
// submissions are never mutated beyond being closed.
type Submission struct {
	ID              uint64    `gorm:"primarykey" json:"id"`
	TaskAssigneeID  uint64    `gorm:"not null;index" json:"task_assignee_id"`
	Open            bool      `gorm:"not null;default:true" json:"open"`
	Comment         string    `gorm:"type:text" json:"comment"`
	ReviewerComment string    `gorm:"type:text" json:"reviewer_comment"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	TaskAssignee TaskAssignee `gorm:"foreignKey:TaskAssigneeID" json:"-"`
	Attachments  []Attachment `gorm:"foreignKey:SubmissionID" json:"attachments,omitempty"`
}
