package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for visibility filtering and listing
		{"tasks", "idx_tasks_creator_id", "creator_id"},
		{"tasks", "idx_tasks_hidden", "hidden"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Assignee indexes for the review workflow
		{"task_assignees", "idx_task_assignees_task_id", "task_id"},
		{"task_assignees", "idx_task_assignees_user_id", "user_id"},
		{"task_assignees", "idx_task_assignees_status", "status"},

		// Group membership lookups
		{"group_members", "idx_group_members_group_id", "group_id"},
		{"group_members", "idx_group_members_user_id", "user_id"},

		// Group task assignment lookups
		{"task_groups", "idx_task_groups_task_id", "task_id"},
		{"task_groups", "idx_task_groups_group_id", "group_id"},

		// Open-submission lookups during review
		{"submissions", "idx_submissions_assignee_open", "task_assignee_id, open"},

		// Group invite code index
		{"groups", "idx_groups_invite_code", "invite_code"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
