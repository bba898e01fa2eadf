package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/models"
)

// ErrStateConflict is returned when a conditional status update matched no
// row: either the assignee is not in the expected status or a concurrent
// transition won the race. The transaction is rolled back either way.
var ErrStateConflict = errors.New("review repository: assignee not in expected status")

// GormReviewRepository is a GORM implementation of ReviewRepository
type GormReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &GormReviewRepository{db: db}
}

// FindAssignee finds a task assignee by ID with optional preloading
func (r *GormReviewRepository) FindAssignee(id uint64, preload ...string) (*models.TaskAssignee, error) {
	var assignee models.TaskAssignee
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&assignee, id).Error; err != nil {
		return nil, err
	}

	return &assignee, nil
}

// FindSubmission finds a submission by ID with optional preloading
func (r *GormReviewRepository) FindSubmission(id uint64, preload ...string) (*models.Submission, error) {
	var submission models.Submission
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindAssigneesByIDs loads assignees with their owning tasks
func (r *GormReviewRepository) FindAssigneesByIDs(ids []uint64) ([]models.TaskAssignee, error) {
	var assignees []models.TaskAssignee
	if err := r.db.Preload("Task").Where("id IN ?", ids).Find(&assignees).Error; err != nil {
		return nil, err
	}
	return assignees, nil
}

// Submit flips in_progress -> submitted and records the submission with its
// attachments in one transaction. The conditional update is the concurrency
// guard: zero affected rows means the assignee was not in in_progress.
func (r *GormReviewRepository) Submit(assigneeID uint64, now time.Time, submission *models.Submission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskAssignee{}).
			Where("id = ? AND status = ?", assigneeID, models.StatusInProgress).
			Updates(map[string]interface{}{
				"status":       models.StatusSubmitted,
				"submitted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}

		submission.TaskAssigneeID = assigneeID
		submission.Open = true
		return tx.Create(submission).Error
	})
}

// Approve flips submitted -> done, stamps the reviewer and closes open
// submissions atomically.
func (r *GormReviewRepository) Approve(assigneeID, reviewerID uint64, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskAssignee{}).
			Where("id = ? AND status = ?", assigneeID, models.StatusSubmitted).
			Updates(map[string]interface{}{
				"status":         models.StatusDone,
				"reviewed_at":    now,
				"completed_at":   now,
				"reviewed_by_id": reviewerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}

		return tx.Model(&models.Submission{}).
			Where("task_assignee_id = ? AND open = ?", assigneeID, true).
			Update("open", false).Error
	})
}

// Reject flips submitted -> in_progress, closes the open submission and
// opens a fresh submission carrying the reason, so the rejection is recorded
// without mutating the prior attempt.
func (r *GormReviewRepository) Reject(assigneeID, reviewerID uint64, reason string, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskAssignee{}).
			Where("id = ? AND status = ?", assigneeID, models.StatusSubmitted).
			Updates(map[string]interface{}{
				"status":         models.StatusInProgress,
				"reviewed_at":    now,
				"reviewed_by_id": reviewerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}

		if err := tx.Model(&models.Submission{}).
			Where("task_assignee_id = ? AND open = ?", assigneeID, true).
			Update("open", false).Error; err != nil {
			return err
		}

		next := models.Submission{
			TaskAssigneeID:  assigneeID,
			Open:            true,
			ReviewerComment: reason,
		}
		return tx.Create(&next).Error
	})
}

// ApproveAll approves every submitted assignee of a task in one batched
// update. Assignees in other statuses are left untouched.
func (r *GormReviewRepository) ApproveAll(taskID, reviewerID uint64, now time.Time) (int64, error) {
	var affected int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint64
		if err := tx.Model(&models.TaskAssignee{}).
			Where("task_id = ? AND status = ?", taskID, models.StatusSubmitted).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res := tx.Model(&models.TaskAssignee{}).
			Where("id IN ? AND status = ?", ids, models.StatusSubmitted).
			Updates(map[string]interface{}{
				"status":         models.StatusDone,
				"reviewed_at":    now,
				"completed_at":   now,
				"reviewed_by_id": reviewerID,
			})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		return tx.Model(&models.Submission{}).
			Where("task_assignee_id IN ? AND open = ?", ids, true).
			Update("open", false).Error
	})

	return affected, err
}

// BulkReview approves or rejects an explicit id list. Ids must be unique and
// every id must be in submitted status; otherwise the whole transaction rolls
// back so no subset of the batch is applied.
func (r *GormReviewRepository) BulkReview(ids []uint64, approve bool, reason string, reviewerID uint64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"reviewed_at":    now,
			"reviewed_by_id": reviewerID,
		}
		if approve {
			updates["status"] = models.StatusDone
			updates["completed_at"] = now
		} else {
			updates["status"] = models.StatusInProgress
		}

		res := tx.Model(&models.TaskAssignee{}).
			Where("id IN ? AND status = ?", ids, models.StatusSubmitted).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrStateConflict
		}

		closeUpdates := map[string]interface{}{"open": false}
		if !approve {
			closeUpdates["reviewer_comment"] = reason
		}

		return tx.Model(&models.Submission{}).
			Where("task_assignee_id IN ? AND open = ?", ids, true).
			Updates(closeUpdates).Error
	})
}

// ListReviewed returns assignees with submission or review activity inside
// the window, newest first, for the weekly report export.
func (r *GormReviewRepository) ListReviewed(from, to time.Time) ([]models.TaskAssignee, error) {
	var assignees []models.TaskAssignee
	err := r.db.
		Preload("Task").
		Preload("User").
		Preload("ReviewedBy").
		Where(
			r.db.Where("submitted_at >= ? AND submitted_at < ?", from, to).
				Or("reviewed_at >= ? AND reviewed_at < ?", from, to),
		).
		Order("submitted_at DESC").
		Find(&assignees).Error
	if err != nil {
		return nil, err
	}
	return assignees, nil
}
