package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/utils"
)

var (
	ErrGroupNotFound        = errors.New("group not found")
	ErrGroupNameRequired    = errors.New("group name is required")
	ErrGroupManageForbidden = errors.New("user does not have the group management permission")
	ErrNotGroupOwner        = errors.New("only the group owner can perform this action")
	ErrAlreadyMember        = errors.New("user is already a member of the group")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrMemberNotFound       = errors.New("user is not a member of the group")
)

// GroupService handles group business logic.
type GroupService struct {
	groupRepo repository.GroupRepository
	evaluator *authz.Evaluator
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo repository.GroupRepository, evaluator *authz.Evaluator) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		evaluator: evaluator,
	}
}

// CreateGroup creates a group and makes the creator its owner.
func (s *GroupService) CreateGroup(name string, creatorID uint64) (*models.Group, error) {
	if name == "" {
		return nil, ErrGroupNameRequired
	}

	allowed, err := s.evaluator.Can(creatorID, authz.ActionGroupManage)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrGroupManageForbidden
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	group := &models.Group{
		Name:       name,
		InviteCode: inviteCode,
	}

	if err := s.groupRepo.Create(group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	member := &models.GroupMember{
		GroupID:  group.ID,
		UserID:   creatorID,
		Role:     models.GroupRoleOwner,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add group owner: %w", err)
	}

	return group, nil
}

// JoinByInviteCode adds the user to the group matching the code.
func (s *GroupService) JoinByInviteCode(code string, userID uint64) (*models.Group, error) {
	group, err := s.groupRepo.FindByInviteCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	if _, err := s.groupRepo.FindMember(group.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     models.GroupRoleMember,
		JoinedAt: time.Now(),
	}
	if err := s.groupRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to join group: %w", err)
	}

	return group, nil
}

// GetGroup returns a group with its members if the user belongs to it or
// holds the group.manage permission.
func (s *GroupService) GetGroup(groupID, userID uint64) (*models.Group, []models.GroupMember, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGroupNotFound
		}
		return nil, nil, fmt.Errorf("failed to find group: %w", err)
	}

	if _, err := s.groupRepo.FindMember(groupID, userID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("failed to check membership: %w", err)
		}
		allowed, aerr := s.evaluator.Can(userID, authz.ActionGroupManage)
		if aerr != nil {
			return nil, nil, aerr
		}
		if !allowed {
			return nil, nil, ErrGroupNotFound
		}
	}

	members, err := s.groupRepo.ListMembers(groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list members: %w", err)
	}

	return group, members, nil
}

// ListGroups returns the groups the user is a member of.
func (s *GroupService) ListGroups(userID uint64) ([]models.GroupMember, error) {
	memberships, err := s.groupRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return memberships, nil
}

// RegenerateInviteCode replaces the group invite code; owner only.
func (s *GroupService) RegenerateInviteCode(groupID, actorID uint64) (*models.Group, error) {
	group, err := s.ownedGroup(groupID, actorID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	group.InviteCode = code
	if err := s.groupRepo.Update(group); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// RemoveMember removes a user from the group; owner only. The owner cannot
// remove themselves.
func (s *GroupService) RemoveMember(groupID, actorID, targetID uint64) error {
	if _, err := s.ownedGroup(groupID, actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return ErrNotGroupOwner
	}

	if _, err := s.groupRepo.FindMember(groupID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}

	if err := s.groupRepo.RemoveMember(groupID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// DeleteGroup deletes a group with its memberships; owner only.
func (s *GroupService) DeleteGroup(groupID, actorID uint64) error {
	if _, err := s.ownedGroup(groupID, actorID); err != nil {
		return err
	}

	if err := s.groupRepo.Delete(groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	return nil
}

// ownedGroup loads a group and verifies the actor owns it.
func (s *GroupService) ownedGroup(groupID, actorID uint64) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	member, err := s.groupRepo.FindMember(groupID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotGroupOwner
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if member.Role != models.GroupRoleOwner {
		return nil, ErrNotGroupOwner
	}

	return group, nil
}
