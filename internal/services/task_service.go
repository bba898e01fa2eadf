package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/constants"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/storage"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskForbidden       = errors.New("user may not perform this task action")
	ErrTaskNotVisible      = errors.New("task is not visible to the user")
	ErrNotTaskCreator      = errors.New("only the task creator can perform this action")
	ErrNoUserIDsProvided   = errors.New("at least one user ID is required")
	ErrNoGroupIDsProvided  = errors.New("at least one group ID is required")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidTaskAssignee = errors.New("one or more users do not exist")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	groupRepo repository.GroupRepository
	evaluator *authz.Evaluator
	files     storage.Storage
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, groupRepo repository.GroupRepository, evaluator *authz.Evaluator, files storage.Storage) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		evaluator: evaluator,
		files:     files,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title                   string
	Description             string
	DueDate                 *time.Time
	Hidden                  bool
	MinRolePowerToSeeHidden int
	ReviewRequired          bool
	CreatorID               uint64
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID         uint64
	CreatorID      *uint64
	AssignedToMe   bool
	ReviewRequired *bool
	Page           int
	PageSize       int
}

// CreateTask creates a new task after a permission check
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	allowed, err := s.evaluator.Can(input.CreatorID, authz.ActionTaskCreate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrTaskForbidden
	}

	task := &models.Task{
		Title:                   input.Title,
		Description:             input.Description,
		DueDate:                 input.DueDate,
		Hidden:                  input.Hidden,
		MinRolePowerToSeeHidden: input.MinRolePowerToSeeHidden,
		ReviewRequired:          input.ReviewRequired,
		CreatorID:               input.CreatorID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator")
}

// ListTasks returns tasks visible to the user
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	if s.evaluator.IsRoot(input.UserID) {
		// Root sees everything; the highest power passes every threshold.
		return s.taskRepo.ListVisible(input.UserID, int(^uint(0)>>1), s.buildFilter(input))
	}

	power, err := s.evaluator.PowerOf(input.UserID)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.taskRepo.ListVisible(input.UserID, power, s.buildFilter(input))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *TaskService) buildFilter(input ListTasksInput) repository.TaskFilter {
	filter := repository.TaskFilter{
		CreatorID:      input.CreatorID,
		ReviewRequired: input.ReviewRequired,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssignedUserID = &input.UserID
	}
	return filter
}

// GetTask returns a task with related data if the user may see it
func (s *TaskService) GetTask(taskID, userID uint64) (*models.Task, error) {
	visible, err := s.evaluator.CanSeeTask(userID, taskID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrTaskNotVisible
	}

	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignees", "Assignees.User", "Groups", "Groups.Group", "Attachments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// DeleteTask deletes a task if the actor is the creator or holds the
// task.delete permission
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		allowed, err := s.evaluator.Can(actorID, authz.ActionTaskDelete)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrNotTaskCreator
		}
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// AssignUsersInput represents input for assigning users to a task
type AssignUsersInput struct {
	TaskID  uint64
	ActorID uint64
	UserIDs []uint64
}

// AssignUsers assigns multiple users to a task with validation
func (s *TaskService) AssignUsers(input AssignUsersInput) error {
	if len(input.UserIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	task, err := s.loadForAssign(input.TaskID, input.ActorID)
	if err != nil {
		return err
	}

	userIDs := uniqueUint64(input.UserIDs)

	count, err := s.taskRepo.CountUsersByIDs(userIDs)
	if err != nil {
		return fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(userIDs) {
		return ErrInvalidTaskAssignee
	}

	if err := s.taskRepo.AssignUsers(task.ID, userIDs); err != nil {
		return fmt.Errorf("failed to assign users: %w", err)
	}

	return nil
}

// UnassignUsers removes user assignments from a task
func (s *TaskService) UnassignUsers(taskID, actorID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	task, err := s.loadForAssign(taskID, actorID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.UnassignUsers(task.ID, uniqueUint64(userIDs)); err != nil {
		return fmt.Errorf("failed to unassign users: %w", err)
	}

	return nil
}

// AssignGroups assigns a task to groups; every member of an assigned group
// may see the task even when it is hidden
func (s *TaskService) AssignGroups(taskID, actorID uint64, groupIDs []uint64) error {
	if len(groupIDs) == 0 {
		return ErrNoGroupIDsProvided
	}

	task, err := s.loadForAssign(taskID, actorID)
	if err != nil {
		return err
	}

	for _, groupID := range uniqueUint64(groupIDs) {
		if _, err := s.groupRepo.FindByID(groupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidTaskAssignee
			}
			return fmt.Errorf("failed to verify group: %w", err)
		}
	}

	if err := s.taskRepo.AssignGroups(task.ID, uniqueUint64(groupIDs)); err != nil {
		return fmt.Errorf("failed to assign groups: %w", err)
	}

	return nil
}

// AttachFile stores an uploaded file and links it directly to the task.
// The content hash is computed here, once, before the store write.
func (s *TaskService) AttachFile(ctx context.Context, taskID, actorID uint64, file FileInput) (*models.Attachment, error) {
	task, err := s.loadForAssign(taskID, actorID)
	if err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(file.Content, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", file.OriginalName, err)
	}
	if len(content) > constants.MaxUploadSize {
		return nil, fmt.Errorf("upload %s exceeds the size limit", file.OriginalName)
	}

	sum := sha256.Sum256(content)
	name := hex.EncodeToString(sum[:])

	if err := s.files.Save(ctx, name, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", file.OriginalName, err)
	}

	att := &models.Attachment{
		TaskID:       &task.ID,
		Name:         name,
		OriginalName: file.OriginalName,
		Mime:         file.Mime,
		Size:         int64(len(content)),
		SHA256:       name,
		UploadedByID: actorID,
	}

	if err := s.taskRepo.AddAttachment(att); err != nil {
		return nil, fmt.Errorf("failed to link attachment: %w", err)
	}

	return att, nil
}

// loadForAssign loads a task and authorizes the actor as creator or
// full-access reviewer.
func (s *TaskService) loadForAssign(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		fullAccess, err := s.evaluator.HasFullAccess(actorID)
		if err != nil {
			return nil, err
		}
		if !fullAccess {
			return nil, ErrNotTaskCreator
		}
	}

	return task, nil
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
