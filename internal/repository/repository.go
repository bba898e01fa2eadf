package repository

import (
	"time"

	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/roles"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindRole returns the stored role of a user. Missing users report
	// an empty role, not an error.
	FindRole(id uint64) (roles.Role, error)

	// List returns users with pagination
	List(offset, limit int) ([]models.User, int64, error)

	// UpdateRole sets the role of a user
	UpdateRole(id uint64, role roles.Role) error
}

// GroupRepository defines the interface for group data access
type GroupRepository interface {
	// Create creates a new group
	Create(group *models.Group) error

	// FindByID finds a group by ID
	FindByID(id uint64) (*models.Group, error)

	// FindByInviteCode finds a group by invite code
	FindByInviteCode(code string) (*models.Group, error)

	// Update updates a group
	Update(group *models.Group) error

	// Delete deletes a group and all related data
	Delete(id uint64) error

	// AddMember adds a member to a group
	AddMember(member *models.GroupMember) error

	// RemoveMember removes a member from a group
	RemoveMember(groupID, userID uint64) error

	// FindMember finds a specific group member
	FindMember(groupID, userID uint64) (*models.GroupMember, error)

	// ListMembersByUserID lists all groups a user is a member of
	ListMembersByUserID(userID uint64) ([]models.GroupMember, error)

	// ListMembers lists all members of a group
	ListMembers(groupID uint64) ([]models.GroupMember, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	CreatorID      *uint64
	AssignedUserID *uint64
	ReviewRequired *bool
	Page           int
	PageSize       int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// ListVisible lists tasks visible to a user: every non-hidden task
	// plus hidden tasks the user is assigned to (directly or through a
	// group) or outranks via the power threshold.
	ListVisible(userID uint64, power int, filter TaskFilter) ([]models.Task, int64, error)

	// Delete soft deletes a task together with its assignees
	Delete(id uint64) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(taskID uint64, userIDs []uint64) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(taskID uint64, userIDs []uint64) error

	// AssignGroups assigns a task to groups
	AssignGroups(taskID uint64, groupIDs []uint64) error

	// HasDirectAssignment reports whether a user is directly assigned
	HasDirectAssignment(taskID, userID uint64) (bool, error)

	// HasGroupAssignment reports whether a user is assigned through a
	// group membership
	HasGroupAssignment(taskID, userID uint64) (bool, error)

	// CountUsersByIDs counts how many of the given user IDs exist
	CountUsersByIDs(userIDs []uint64) (int64, error)

	// AddAttachment links an attachment directly to a task
	AddAttachment(att *models.Attachment) error

	// FindAttachment finds an attachment by ID
	FindAttachment(id uint64) (*models.Attachment, error)
}

// ReviewRepository defines the transactional operations of the review
// workflow. Every method that changes state runs in a single transaction;
// status changes use conditional updates so a lost race surfaces as
// ErrStateConflict instead of a partial write.
type ReviewRepository interface {
	// FindAssignee finds a task assignee by ID with optional preloading
	FindAssignee(id uint64, preload ...string) (*models.TaskAssignee, error)

	// FindAssigneesByIDs loads assignees with their owning tasks
	FindAssigneesByIDs(ids []uint64) ([]models.TaskAssignee, error)

	// FindSubmission finds a submission by ID with optional preloading
	FindSubmission(id uint64, preload ...string) (*models.Submission, error)

	// Submit flips in_progress -> submitted and records the submission
	Submit(assigneeID uint64, now time.Time, submission *models.Submission) error

	// Approve flips submitted -> done and closes open submissions
	Approve(assigneeID, reviewerID uint64, now time.Time) error

	// Reject flips submitted -> in_progress, closes the open submission
	// and opens a fresh one carrying the reason
	Reject(assigneeID, reviewerID uint64, reason string, now time.Time) error

	// ApproveAll approves every submitted assignee of a task in one
	// batched update and returns how many rows changed
	ApproveAll(taskID, reviewerID uint64, now time.Time) (int64, error)

	// BulkReview approves or rejects an explicit id list, all or nothing
	BulkReview(ids []uint64, approve bool, reason string, reviewerID uint64, now time.Time) error

	// ListReviewed returns assignees whose submission or review activity
	// falls inside the window, for report export
	ListReviewed(from, to time.Time) ([]models.TaskAssignee, error)
}

// ChatRepository defines the interface for thread and message data access
type ChatRepository interface {
	// CreateThread creates a thread with its initial members atomically
	CreateThread(thread *models.Thread, memberIDs []uint64) error

	// FindThread finds a thread by ID with optional preloading
	FindThread(id uint64, preload ...string) (*models.Thread, error)

	// ListThreadsByUser lists threads the user belongs to
	ListThreadsByUser(userID uint64) ([]models.Thread, error)

	// DeleteThread deletes a thread with its members and messages
	DeleteThread(id uint64) error

	// IsMember reports whether a user belongs to a thread
	IsMember(threadID, userID uint64) (bool, error)

	// CreateMessage appends a message to a thread
	CreateMessage(msg *models.Message) error

	// ListMessages lists messages of a thread, oldest first
	ListMessages(threadID uint64, offset, limit int) ([]models.Message, int64, error)
}
