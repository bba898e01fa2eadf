package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/roles"
)

var (
	ErrUserManageForbidden = errors.New("user does not have the user management permission")
	ErrUnknownRole         = errors.New("unrecognized role")
)

// UserService handles user administration.
type UserService struct {
	userRepo  repository.UserRepository
	evaluator *authz.Evaluator
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, evaluator *authz.Evaluator) *UserService {
	return &UserService{
		userRepo:  userRepo,
		evaluator: evaluator,
	}
}

// ListUsers returns users with pagination; requires the user.manage
// permission.
func (s *UserService) ListUsers(actorID uint64, offset, limit int) ([]models.User, int64, error) {
	allowed, err := s.evaluator.Can(actorID, authz.ActionUserManage)
	if err != nil {
		return nil, 0, err
	}
	if !allowed {
		return nil, 0, ErrUserManageForbidden
	}

	return s.userRepo.List(offset, limit)
}

// SetRole assigns a role to a user. The role may be an alias; it is stored
// as given and canonicalized at evaluation time.
func (s *UserService) SetRole(actorID, targetID uint64, role roles.Role) error {
	allowed, err := s.evaluator.Can(actorID, authz.ActionUserManage)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrUserManageForbidden
	}

	if role != "" && !roles.Valid(role) {
		return ErrUnknownRole
	}

	if err := s.userRepo.UpdateRole(targetID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	return nil
}
