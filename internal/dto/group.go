package dto

import (
	"time"

	"github.com/mektebli/school-crm/internal/models"
)

// GroupDTO represents a group in API responses
type GroupDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// GroupWithRoleDTO represents a group with the user's membership role
type GroupWithRoleDTO struct {
	GroupDTO
	Role models.GroupRole `json:"role"`
}

// GroupMemberDTO represents a member in a group
type GroupMemberDTO struct {
	User     UserDTO          `json:"user"`
	Role     models.GroupRole `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

// GroupDetailDTO represents detailed group information
type GroupDetailDTO struct {
	GroupDTO
	Members []GroupMemberDTO `json:"members"`
}

// ToGroupDTO converts a group model to DTO. The invite code is only
// included for members.
func ToGroupDTO(group models.Group, includeCode bool) GroupDTO {
	dto := GroupDTO{
		ID:   group.ID,
		Name: group.Name,
	}
	if includeCode {
		dto.InviteCode = group.InviteCode
	}
	return dto
}

// ToGroupWithRoleDTO converts a group membership to DTO with role
func ToGroupWithRoleDTO(member models.GroupMember) GroupWithRoleDTO {
	return GroupWithRoleDTO{
		GroupDTO: ToGroupDTO(member.Group, true),
		Role:     member.Role,
	}
}

// ToGroupMemberDTO converts a member to DTO
func ToGroupMemberDTO(member models.GroupMember) GroupMemberDTO {
	return GroupMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToGroupDetailDTO converts a group with members to detailed DTO
func ToGroupDetailDTO(group models.Group, members []models.GroupMember) GroupDetailDTO {
	memberDTOs := make([]GroupMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToGroupMemberDTO(member)
	}

	return GroupDetailDTO{
		GroupDTO: ToGroupDTO(group, true),
		Members:  memberDTOs,
	}
}
