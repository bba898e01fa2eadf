package dto

import (
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/roles"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64     `json:"id"`
	Username string     `json:"username"`
	FullName string     `json:"full_name,omitempty"`
	Role     roles.Role `json:"role,omitempty"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
