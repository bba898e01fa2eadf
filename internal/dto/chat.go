package dto

import (
	"time"

	"github.com/mektebli/school-crm/internal/models"
)

// ThreadDTO represents a chat thread in API responses
type ThreadDTO struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	CreatorID uint64    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageDTO represents a chat message in API responses
type MessageDTO struct {
	ID        uint64    `json:"id"`
	ThreadID  uint64    `json:"thread_id"`
	Author    UserDTO   `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ToThreadDTO converts a thread model to DTO
func ToThreadDTO(thread models.Thread) ThreadDTO {
	return ThreadDTO{
		ID:        thread.ID,
		Title:     thread.Title,
		CreatorID: thread.CreatorID,
		CreatedAt: thread.CreatedAt,
	}
}

// ToMessageDTO converts a message model to DTO
func ToMessageDTO(msg models.Message) MessageDTO {
	return MessageDTO{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		Author:    ToUserDTO(msg.Author),
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
}
