package models

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	CreatorID   uint64     `gorm:"not null" json:"creator_id"`

	// Hidden tasks are visible only to assignees, members of assigned
	// groups, and users whose role power reaches the threshold below.
	Hidden                  bool `gorm:"not null;default:false" json:"hidden"`
	MinRolePowerToSeeHidden int  `gorm:"not null;default:0" json:"min_role_power_to_see_hidden"`

	// ReviewRequired gates the submit/approve/reject workflow; tasks
	// without it are completed directly by their assignees.
	ReviewRequired bool `gorm:"not null;default:false" json:"review_required"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator     User           `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignees   []TaskAssignee `gorm:"foreignKey:TaskID" json:"assignees,omitempty"`
	Groups      []TaskGroup    `gorm:"foreignKey:TaskID" json:"groups,omitempty"`
	Attachments []Attachment   `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}
