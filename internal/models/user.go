package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/roles"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	FullName     string         `gorm:"type:varchar(255)" json:"full_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         roles.Role     `gorm:"type:varchar(32)" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedTasks []Task         `gorm:"foreignKey:CreatorID" json:"-"`
	Assignments  []TaskAssignee `gorm:"foreignKey:UserID" json:"-"`
	Groups       []GroupMember  `gorm:"foreignKey:UserID" json:"-"`
}
