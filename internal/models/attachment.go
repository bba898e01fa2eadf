package models

import "time"

// Attachment is immutable blob metadata linked to a submission or directly
// to a task. The content hash is computed once at upload time.
type Attachment struct {
	ID           uint64  `gorm:"primarykey" json:"id"`
	SubmissionID *uint64 `gorm:"index" json:"submission_id"`
	TaskID       *uint64 `gorm:"index" json:"task_id"`

	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	OriginalName string `gorm:"type:varchar(255);not null" json:"original_name"`
	Mime         string `gorm:"type:varchar(255)" json:"mime"`
	Size         int64  `gorm:"not null" json:"size"`
	SHA256       string `gorm:"type:char(64);not null;index" json:"sha256"`

	UploadedByID uint64    `gorm:"not null" json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}
