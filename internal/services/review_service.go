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
	ErrAssigneeNotFound   = errors.New("task assignee not found")
	ErrNotAssignee        = errors.New("only the assigned user can submit for review")
	ErrReviewNotRequired  = errors.New("task does not require review")
	ErrReviewForbidden    = errors.New("only the task creator or a full-access role can review")
	ErrInvalidState       = errors.New("action is not legal from the current status")
	ErrReviewConflict     = errors.New("a concurrent transition won the race")
	ErrNoAssigneeIDs      = errors.New("at least one assignee ID is required")
	ErrTooManyIDs         = errors.New("too many assignee IDs in one batch")
	ErrTooManyFiles       = errors.New("too many attachments in one submission")
	ErrRejectReasonEmpty  = errors.New("rejection reason is required")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// ReviewOp selects the bulk review operation.
type ReviewOp string

const (
	ReviewOpApprove ReviewOp = "approve"
	ReviewOpReject  ReviewOp = "reject"
)

// ReviewService drives the task review workflow: in_progress -> submitted
// -> done, with rejection returning to in_progress. Authorization runs
// before any transaction opens; transitions use conditional updates so a
// lost race rolls back cleanly.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	taskRepo   repository.TaskRepository
	evaluator  *authz.Evaluator
	files      storage.Storage
	notifiers  []Notifier
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo repository.ReviewRepository, taskRepo repository.TaskRepository, evaluator *authz.Evaluator, files storage.Storage) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		taskRepo:   taskRepo,
		evaluator:  evaluator,
		files:      files,
	}
}

// AddNotifier registers a post-commit review change listener.
func (s *ReviewService) AddNotifier(n Notifier) {
	s.notifiers = append(s.notifiers, n)
}

func (s *ReviewService) notify(taskID uint64) {
	for _, n := range s.notifiers {
		go n.ReviewChanged(taskID)
	}
}

// FileInput is one uploaded file for a submission.
type FileInput struct {
	OriginalName string
	Mime         string
	Content      io.Reader
}

// SubmitInput carries a submit-for-review request.
type SubmitInput struct {
	AssigneeID uint64
	ActorID    uint64
	Comment    string
	Files      []FileInput
}

// SubmitForReview flips the actor's assignment to submitted and records a
// new submission with its attachments.
func (s *ReviewService) SubmitForReview(ctx context.Context, input SubmitInput) error {
	if len(input.Files) > constants.MaxAttachmentsPerSubmission {
		return ErrTooManyFiles
	}

	assignee, err := s.reviewRepo.FindAssignee(input.AssigneeID, "Task")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to find assignee: %w", err)
	}

	if assignee.UserID != input.ActorID {
		return ErrNotAssignee
	}
	if !assignee.Task.ReviewRequired {
		return ErrReviewNotRequired
	}
	if assignee.Status != models.StatusInProgress {
		return ErrInvalidState
	}

	attachments, err := s.storeFiles(ctx, input.Files, input.ActorID)
	if err != nil {
		return err
	}

	submission := &models.Submission{
		Comment:     input.Comment,
		Attachments: attachments,
	}

	if err := s.reviewRepo.Submit(input.AssigneeID, time.Now(), submission); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return ErrReviewConflict
		}
		return fmt.Errorf("failed to submit for review: %w", err)
	}

	s.notify(assignee.TaskID)
	return nil
}

// ApproveSubmission moves a submitted assignment to done.
func (s *ReviewService) ApproveSubmission(assigneeID, actorID uint64) error {
	assignee, err := s.loadForReview(assigneeID, actorID)
	if err != nil {
		return err
	}
	if assignee.Status != models.StatusSubmitted {
		return ErrInvalidState
	}

	if err := s.reviewRepo.Approve(assigneeID, actorID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return ErrReviewConflict
		}
		return fmt.Errorf("failed to approve submission: %w", err)
	}

	s.notify(assignee.TaskID)
	return nil
}

// RejectSubmission returns a submitted assignment to in_progress, recording
// the reason on a fresh submission.
func (s *ReviewService) RejectSubmission(assigneeID, actorID uint64, reason string) error {
	if reason == "" {
		return ErrRejectReasonEmpty
	}

	assignee, err := s.loadForReview(assigneeID, actorID)
	if err != nil {
		return err
	}
	if assignee.Status != models.StatusSubmitted {
		return ErrInvalidState
	}

	if err := s.reviewRepo.Reject(assigneeID, actorID, reason, time.Now()); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return ErrReviewConflict
		}
		return fmt.Errorf("failed to reject submission: %w", err)
	}

	s.notify(assignee.TaskID)
	return nil
}

// ApproveAllInTask approves every submitted assignee of the task in one
// batched update and returns how many were approved.
func (s *ReviewService) ApproveAllInTask(taskID, actorID uint64) (int64, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAssigneeNotFound
		}
		return 0, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authorizeReviewer(task, actorID); err != nil {
		return 0, err
	}

	approved, err := s.reviewRepo.ApproveAll(taskID, actorID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to approve all: %w", err)
	}

	if approved > 0 {
		s.notify(taskID)
	}
	return approved, nil
}

// BulkReview approves or rejects an explicit list of assignees. Every
// selected assignee's owning task must pass authorization or the whole
// batch is denied; execution is a single all-or-nothing transaction.
func (s *ReviewService) BulkReview(ids []uint64, op ReviewOp, reason string, actorID uint64) error {
	if len(ids) == 0 {
		return ErrNoAssigneeIDs
	}
	if len(ids) > constants.MaxBulkReviewIDs {
		return ErrTooManyIDs
	}
	if op == ReviewOpReject && reason == "" {
		return ErrRejectReasonEmpty
	}

	unique := uniqueUint64(ids)
	assignees, err := s.reviewRepo.FindAssigneesByIDs(unique)
	if err != nil {
		return fmt.Errorf("failed to load assignees: %w", err)
	}
	if len(assignees) != len(unique) {
		return ErrAssigneeNotFound
	}

	fullAccess, err := s.evaluator.HasFullAccess(actorID)
	if err != nil {
		return err
	}
	if !fullAccess {
		for _, a := range assignees {
			if a.Task.CreatorID != actorID {
				return ErrReviewForbidden
			}
		}
	}

	for _, a := range assignees {
		if a.Status != models.StatusSubmitted {
			return ErrInvalidState
		}
	}

	err = s.reviewRepo.BulkReview(unique, op == ReviewOpApprove, reason, actorID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return ErrReviewConflict
		}
		return fmt.Errorf("failed to bulk review: %w", err)
	}

	seen := make(map[uint64]struct{})
	for _, a := range assignees {
		if _, ok := seen[a.TaskID]; ok {
			continue
		}
		seen[a.TaskID] = struct{}{}
		s.notify(a.TaskID)
	}
	return nil
}

// OpenAttachment resolves an attachment's owning task, checks that the
// actor can see it and opens the stored content for streaming. Invisible
// attachments read as not found.
func (s *ReviewService) OpenAttachment(ctx context.Context, attachmentID, actorID uint64) (*models.Attachment, io.ReadCloser, error) {
	att, err := s.taskRepo.FindAttachment(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to find attachment: %w", err)
	}

	taskID, err := s.owningTaskID(att)
	if err != nil {
		return nil, nil, err
	}

	visible, err := s.evaluator.CanSeeTask(actorID, taskID)
	if err != nil {
		return nil, nil, err
	}
	if !visible {
		return nil, nil, ErrAttachmentNotFound
	}

	rc, err := s.files.Open(ctx, att.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment %s: %w", att.Name, err)
	}
	return att, rc, nil
}

// owningTaskID follows an attachment back to its task, either directly or
// through the submission it belongs to.
func (s *ReviewService) owningTaskID(att *models.Attachment) (uint64, error) {
	if att.TaskID != nil {
		return *att.TaskID, nil
	}
	if att.SubmissionID == nil {
		return 0, ErrAttachmentNotFound
	}

	sub, err := s.reviewRepo.FindSubmission(*att.SubmissionID, "TaskAssignee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAttachmentNotFound
		}
		return 0, fmt.Errorf("failed to find submission: %w", err)
	}
	return sub.TaskAssignee.TaskID, nil
}

// loadForReview loads the assignee with its task and authorizes the actor
// as reviewer.
func (s *ReviewService) loadForReview(assigneeID, actorID uint64) (*models.TaskAssignee, error) {
	assignee, err := s.reviewRepo.FindAssignee(assigneeID, "Task")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}

	if err := s.authorizeReviewer(&assignee.Task, actorID); err != nil {
		return nil, err
	}

	return assignee, nil
}

// authorizeReviewer allows the task creator and full-access roles.
func (s *ReviewService) authorizeReviewer(task *models.Task, actorID uint64) error {
	if task.CreatorID == actorID {
		return nil
	}
	fullAccess, err := s.evaluator.HasFullAccess(actorID)
	if err != nil {
		return err
	}
	if !fullAccess {
		return ErrReviewForbidden
	}
	return nil
}

// storeFiles hashes each file, writes it to the file store under its hash
// and returns the attachment rows to create. Hashes are computed here, once.
func (s *ReviewService) storeFiles(ctx context.Context, files []FileInput, uploaderID uint64) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(files))

	for _, f := range files {
		content, err := io.ReadAll(io.LimitReader(f.Content, constants.MaxUploadSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", f.OriginalName, err)
		}
		if len(content) > constants.MaxUploadSize {
			return nil, fmt.Errorf("upload %s exceeds the size limit", f.OriginalName)
		}

		sum := sha256.Sum256(content)
		name := hex.EncodeToString(sum[:])

		if err := s.files.Save(ctx, name, bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("failed to store upload %s: %w", f.OriginalName, err)
		}

		attachments = append(attachments, models.Attachment{
			Name:         name,
			OriginalName: f.OriginalName,
			Mime:         f.Mime,
			Size:         int64(len(content)),
			SHA256:       name,
			UploadedByID: uploaderID,
		})
	}

	return attachments, nil
}
