package authz

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/roles"
)

// Action names a permission-checked operation.
type Action string

const (
	ActionTaskCreate   Action = "task.create"
	ActionTaskDelete   Action = "task.delete"
	ActionTaskReview   Action = "task.review"
	ActionUserManage   Action = "user.manage"
	ActionGroupManage  Action = "group.manage"
	ActionReportExport Action = "report.export"
	ActionChatModerate Action = "chat.moderate"
)

// actionMinPower maps each action to the minimum role power that may perform
// it. Built once; unknown actions deny.
var actionMinPower = map[Action]int{
	ActionTaskCreate:   roles.PowerOf(roles.RoleTeacher),
	ActionTaskDelete:   roles.PowerOf(roles.RoleDeputy),
	ActionTaskReview:   roles.PowerOf(roles.RoleTeacherPlus),
	ActionUserManage:   roles.PowerOf(roles.RoleDeputyPlus),
	ActionGroupManage:  roles.PowerOf(roles.RoleTeacher),
	ActionReportExport: roles.PowerOf(roles.RoleDeputy),
	ActionChatModerate: roles.PowerOf(roles.RoleDeputy),
}

// ErrLookupFailed marks a store failure during role or task resolution. It
// is never folded into an allow or deny result.
var ErrLookupFailed = errors.New("authz: lookup failed")

// Evaluator answers permission and task-visibility questions. It holds no
// per-request state; repeated calls are idempotent.
type Evaluator struct {
	users   repository.UserRepository
	tasks   repository.TaskRepository
	rootIDs map[uint64]struct{}
}

// NewEvaluator creates an Evaluator. rootIDs is the configured override set;
// members bypass every check.
func NewEvaluator(users repository.UserRepository, tasks repository.TaskRepository, rootIDs map[uint64]struct{}) *Evaluator {
	return &Evaluator{
		users:   users,
		tasks:   tasks,
		rootIDs: rootIDs,
	}
}

// IsRoot reports whether the user is in the root-override set. No store
// lookup is involved.
func (e *Evaluator) IsRoot(userID uint64) bool {
	_, ok := e.rootIDs[userID]
	return ok
}

// Can reports whether the user may perform the action. Unknown actions deny.
// A store failure surfaces as ErrLookupFailed, never as a deny.
func (e *Evaluator) Can(userID uint64, action Action) (bool, error) {
	if e.IsRoot(userID) {
		return true, nil
	}

	min, known := actionMinPower[action]
	if !known {
		return false, nil
	}

	power, err := e.PowerOf(userID)
	if err != nil {
		return false, err
	}

	return power >= min, nil
}

// PowerOf resolves the user's role from the store and returns its power.
// Users without a role, and unknown users, have power 0.
func (e *Evaluator) PowerOf(userID uint64) (int, error) {
	role, err := e.users.FindRole(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return roles.PowerOf(role), nil
}

// HasFullAccess reports whether the user's power reaches the full-access
// tier, allowing review of any task regardless of ownership.
func (e *Evaluator) HasFullAccess(userID uint64) (bool, error) {
	if e.IsRoot(userID) {
		return true, nil
	}
	power, err := e.PowerOf(userID)
	if err != nil {
		return false, err
	}
	return power >= roles.FullAccessPower, nil
}

// CanSeeTask reports whether the user may see the task. Checks run in a
// fixed short-circuit order: root override, the hidden flag, direct
// assignment, group assignment, and finally the power threshold. A missing
// task is not visible to anyone but root.
func (e *Evaluator) CanSeeTask(userID, taskID uint64) (bool, error) {
	if e.IsRoot(userID) {
		return true, nil
	}

	task, err := e.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	if !task.Hidden {
		return true, nil
	}

	direct, err := e.tasks.HasDirectAssignment(taskID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if direct {
		return true, nil
	}

	viaGroup, err := e.tasks.HasGroupAssignment(taskID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if viaGroup {
		return true, nil
	}

	power, err := e.PowerOf(userID)
	if err != nil {
		return false, err
	}

	return power >= task.MinRolePowerToSeeHidden, nil
}
