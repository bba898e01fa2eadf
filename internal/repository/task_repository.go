package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mektebli/school-crm/internal/models"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListVisible lists tasks visible to a user. Non-hidden tasks are visible
// unconditionally; hidden tasks require a direct assignment, a group
// assignment, or role power at or above the task threshold.
func (r *GormTaskRepository) ListVisible(userID uint64, power int, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	directSubQuery := r.db.Model(&models.TaskAssignee{}).
		Select("1").
		Where("task_assignees.task_id = tasks.id").
		Where("task_assignees.user_id = ?", userID).
		Where("task_assignees.deleted_at IS NULL")

	groupSubQuery := r.db.Model(&models.TaskGroup{}).
		Select("1").
		Joins("JOIN group_members ON group_members.group_id = task_groups.group_id").
		Where("task_groups.task_id = tasks.id").
		Where("group_members.user_id = ?", userID).
		Where("task_groups.deleted_at IS NULL")

	query := r.db.Model(&models.Task{}).
		Where(
			r.db.Where("tasks.hidden = ?", false).
				Or("tasks.min_role_power_to_see_hidden <= ?", power).
				Or("EXISTS (?)", directSubQuery).
				Or("EXISTS (?)", groupSubQuery),
		)

	if filter.CreatorID != nil {
		query = query.Where("tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.ReviewRequired != nil {
		query = query.Where("tasks.review_required = ?", *filter.ReviewRequired)
	}
	if filter.AssignedUserID != nil {
		assignedSubQuery := r.db.Model(&models.TaskAssignee{}).
			Select("1").
			Where("task_assignees.task_id = tasks.id").
			Where("task_assignees.user_id = ?", *filter.AssignedUserID).
			Where("task_assignees.deleted_at IS NULL")
		query = query.Where("EXISTS (?)", assignedSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Creator").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Delete soft deletes a task together with its assignees
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", id).Delete(&models.TaskGroup{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// AssignUsers assigns multiple users to a task. Re-assigning a previously
// removed user restores the soft-deleted row instead of duplicating it.
func (r *GormTaskRepository) AssignUsers(taskID uint64, userIDs []uint64) error {
	assignees := make([]models.TaskAssignee, len(userIDs))

	for i, userID := range userIDs {
		assignees[i] = models.TaskAssignee{
			TaskID: taskID,
			UserID: userID,
			Status: models.StatusInProgress,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"deleted_at": gorm.Expr("NULL")}),
		}).
		Create(&assignees).Error
}

// UnassignUsers removes user assignments from a task
func (r *GormTaskRepository) UnassignUsers(taskID uint64, userIDs []uint64) error {
	return r.db.Where("task_id = ? AND user_id IN ?", taskID, userIDs).
		Delete(&models.TaskAssignee{}).Error
}

// AssignGroups assigns a task to groups
func (r *GormTaskRepository) AssignGroups(taskID uint64, groupIDs []uint64) error {
	links := make([]models.TaskGroup, len(groupIDs))

	for i, groupID := range groupIDs {
		links[i] = models.TaskGroup{
			TaskID:  taskID,
			GroupID: groupID,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "group_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"deleted_at": gorm.Expr("NULL")}),
		}).
		Create(&links).Error
}

// HasDirectAssignment reports whether a user is directly assigned to a task
func (r *GormTaskRepository) HasDirectAssignment(taskID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.TaskAssignee{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error
	return count > 0, err
}

// HasGroupAssignment reports whether a user is assigned to a task through
// membership in an assigned group
func (r *GormTaskRepository) HasGroupAssignment(taskID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.TaskGroup{}).
		Joins("JOIN group_members ON group_members.group_id = task_groups.group_id").
		Where("task_groups.task_id = ? AND group_members.user_id = ?", taskID, userID).
		Count(&count).Error
	return count > 0, err
}

// CountUsersByIDs counts how many of the given user IDs exist
func (r *GormTaskRepository) CountUsersByIDs(userIDs []uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("id IN ?", userIDs).
		Count(&count).Error
	return count, err
}

// AddAttachment links an attachment directly to a task
func (r *GormTaskRepository) AddAttachment(att *models.Attachment) error {
	return r.db.Create(att).Error
}

// FindAttachment finds an attachment by ID
func (r *GormTaskRepository) FindAttachment(id uint64) (*models.Attachment, error) {
	var att models.Attachment
	if err := r.db.First(&att, id).Error; err != nil {
		return nil, err
	}
	return &att, nil
}
