package dto

import (
	"time"

	"github.com/mektebli/school-crm/internal/models"
)

// AttachmentDTO represents attachment metadata in API responses
type AttachmentDTO struct {
	ID           uint64    `json:"id"`
	OriginalName string    `json:"original_name"`
	Mime         string    `json:"mime"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskAssigneeDTO represents an assignee in API responses
type TaskAssigneeDTO struct {
	ID          uint64                `json:"id"`
	User        UserDTO               `json:"user"`
	Status      models.AssigneeStatus `json:"status"`
	SubmittedAt *time.Time            `json:"submitted_at"`
	ReviewedAt  *time.Time            `json:"reviewed_at"`
	CompletedAt *time.Time            `json:"completed_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                      uint64            `json:"id"`
	Title                   string            `json:"title"`
	Description             string            `json:"description"`
	DueDate                 *time.Time        `json:"due_date"`
	Hidden                  bool              `json:"hidden"`
	MinRolePowerToSeeHidden int               `json:"min_role_power_to_see_hidden"`
	ReviewRequired          bool              `json:"review_required"`
	CreatorID               uint64            `json:"creator_id"`
	CreatedAt               time.Time         `json:"created_at"`
	Creator                 *UserDTO          `json:"creator,omitempty"`
	Assignees               []TaskAssigneeDTO `json:"assignees,omitempty"`
	Groups                  []GroupDTO        `json:"groups,omitempty"`
	Attachments             []AttachmentDTO   `json:"attachments,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	ReviewRequired bool       `json:"review_required"`
	CreatorID      uint64     `json:"creator_id"`
	Creator        *UserDTO   `json:"creator,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToAttachmentDTO converts an attachment model to DTO
func ToAttachmentDTO(att models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:           att.ID,
		OriginalName: att.OriginalName,
		Mime:         att.Mime,
		Size:         att.Size,
		SHA256:       att.SHA256,
		CreatedAt:    att.CreatedAt,
	}
}

// ToTaskAssigneeDTO converts an assignee model to DTO
func ToTaskAssigneeDTO(a models.TaskAssignee) TaskAssigneeDTO {
	return TaskAssigneeDTO{
		ID:          a.ID,
		User:        ToUserDTO(a.User),
		Status:      a.Status,
		SubmittedAt: a.SubmittedAt,
		ReviewedAt:  a.ReviewedAt,
		CompletedAt: a.CompletedAt,
	}
}

// ToTaskDTO converts a task model with preloaded relations to DTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                      task.ID,
		Title:                   task.Title,
		Description:             task.Description,
		DueDate:                 task.DueDate,
		Hidden:                  task.Hidden,
		MinRolePowerToSeeHidden: task.MinRolePowerToSeeHidden,
		ReviewRequired:          task.ReviewRequired,
		CreatorID:               task.CreatorID,
		CreatedAt:               task.CreatedAt,
	}

	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}
	for _, a := range task.Assignees {
		dto.Assignees = append(dto.Assignees, ToTaskAssigneeDTO(a))
	}
	for _, g := range task.Groups {
		dto.Groups = append(dto.Groups, ToGroupDTO(g.Group, false))
	}
	for _, att := range task.Attachments {
		dto.Attachments = append(dto.Attachments, ToAttachmentDTO(att))
	}

	return dto
}

// ToTaskListItemDTO converts a task model to a list item DTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	dto := TaskListItemDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		DueDate:        task.DueDate,
		ReviewRequired: task.ReviewRequired,
		CreatorID:      task.CreatorID,
		CreatedAt:      task.CreatedAt,
	}
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}
	return dto
}
