package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/roles"
	"github.com/mektebli/school-crm/internal/storage"
)

type reviewTestEnv struct {
	db      *gorm.DB
	service *ReviewService
}

func setupReviewTestEnv(t *testing.T) reviewTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.TaskGroup{},
		&models.Submission{},
		&models.Attachment{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	evaluator := authz.NewEvaluator(userRepo, taskRepo, nil)

	files, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	return reviewTestEnv{
		db:      db,
		service: NewReviewService(reviewRepo, taskRepo, evaluator, files),
	}
}

func (env reviewTestEnv) createUser(t *testing.T, username string, role roles.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env reviewTestEnv) createReviewTask(t *testing.T, creatorID uint64) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:          "Grade the essays",
		CreatorID:      creatorID,
		ReviewRequired: true,
	}
	require.NoError(t, env.db.Create(task).Error)
	return task
}

func (env reviewTestEnv) createAssignee(t *testing.T, taskID, userID uint64, status models.AssigneeStatus) *models.TaskAssignee {
	t.Helper()
	assignee := &models.TaskAssignee{
		TaskID: taskID,
		UserID: userID,
		Status: status,
	}
	require.NoError(t, env.db.Create(assignee).Error)
	return assignee
}

func (env reviewTestEnv) reloadAssignee(t *testing.T, id uint64) *models.TaskAssignee {
	t.Helper()
	var assignee models.TaskAssignee
	require.NoError(t, env.db.Preload("Submissions").First(&assignee, id).Error)
	return &assignee
}

func TestSubmitForReview_Success(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	err := env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
		Comment:    "done, please check",
		Files: []FileInput{
			{OriginalName: "essay.txt", Mime: "text/plain", Content: strings.NewReader("my essay")},
		},
	})
	require.NoError(t, err)

	got := env.reloadAssignee(t, assignee.ID)
	require.Equal(t, models.StatusSubmitted, got.Status)
	require.NotNil(t, got.SubmittedAt)
	require.Len(t, got.Submissions, 1)
	require.True(t, got.Submissions[0].Open)
	require.Equal(t, "done, please check", got.Submissions[0].Comment)

	var attachment models.Attachment
	require.NoError(t, env.db.Where("submission_id = ?", got.Submissions[0].ID).First(&attachment).Error)
	require.Equal(t, "essay.txt", attachment.OriginalName)
	require.Equal(t, int64(len("my essay")), attachment.Size)
	require.Len(t, attachment.SHA256, 64)
	require.Equal(t, attachment.Name, attachment.SHA256)
}

func TestSubmitForReview_OnlyAssigneeMaySubmit(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	other := env.createUser(t, "other", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	err := env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    other.ID,
	})
	require.ErrorIs(t, err, ErrNotAssignee)
}

func TestSubmitForReview_ReviewNotRequired(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)

	task := &models.Task{Title: "No review", CreatorID: creator.ID, ReviewRequired: false}
	require.NoError(t, env.db.Create(task).Error)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	err := env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
	})
	require.ErrorIs(t, err, ErrReviewNotRequired)
}

func TestSubmitForReview_AlreadySubmitted(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusSubmitted)

	err := env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveSubmission_Success(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	require.NoError(t, env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
	}))

	require.NoError(t, env.service.ApproveSubmission(assignee.ID, creator.ID))

	got := env.reloadAssignee(t, assignee.ID)
	require.Equal(t, models.StatusDone, got.Status)
	require.NotNil(t, got.ReviewedAt)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.ReviewedByID)
	require.Equal(t, creator.ID, *got.ReviewedByID)
	require.Len(t, got.Submissions, 1)
	require.False(t, got.Submissions[0].Open)
}

func TestApproveSubmission_FromInProgressIsInvalid(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	err := env.service.ApproveSubmission(assignee.ID, creator.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveSubmission_Twice(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusSubmitted)

	require.NoError(t, env.service.ApproveSubmission(assignee.ID, creator.ID))

	err := env.service.ApproveSubmission(assignee.ID, creator.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveSubmission_ReviewerAuthorization(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	bystander := env.createUser(t, "bystander", roles.RoleTeacherPlus)
	deputyPlus := env.createUser(t, "deputyplus", roles.RoleDeputyPlus)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusSubmitted)

	// Not the creator, below the full-access tier.
	err := env.service.ApproveSubmission(assignee.ID, bystander.ID)
	require.ErrorIs(t, err, ErrReviewForbidden)

	// Full-access roles may review any task.
	require.NoError(t, env.service.ApproveSubmission(assignee.ID, deputyPlus.ID))
}

func TestRejectSubmission_Success(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	require.NoError(t, env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
		Comment:    "first attempt",
	}))

	require.NoError(t, env.service.RejectSubmission(assignee.ID, creator.ID, "missing sources"))

	got := env.reloadAssignee(t, assignee.ID)
	require.Equal(t, models.StatusInProgress, got.Status)
	require.NotNil(t, got.ReviewedAt)
	require.Nil(t, got.CompletedAt)
	require.Len(t, got.Submissions, 2)

	var open, closed *models.Submission
	for i := range got.Submissions {
		if got.Submissions[i].Open {
			open = &got.Submissions[i]
		} else {
			closed = &got.Submissions[i]
		}
	}
	require.NotNil(t, open)
	require.NotNil(t, closed)
	require.Equal(t, "first attempt", closed.Comment)
	require.Empty(t, closed.ReviewerComment)
	require.Equal(t, "missing sources", open.ReviewerComment)

	// The assignee can resubmit after a rejection.
	require.NoError(t, env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
		Comment:    "second attempt",
	}))
}

func TestRejectSubmission_ReasonRequired(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusSubmitted)

	err := env.service.RejectSubmission(assignee.ID, creator.ID, "")
	require.ErrorIs(t, err, ErrRejectReasonEmpty)
}

func TestApproveAllInTask(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	s2 := env.createUser(t, "s2", roles.RoleUser)
	s3 := env.createUser(t, "s3", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)

	a1 := env.createAssignee(t, task.ID, s1.ID, models.StatusSubmitted)
	a2 := env.createAssignee(t, task.ID, s2.ID, models.StatusSubmitted)
	a3 := env.createAssignee(t, task.ID, s3.ID, models.StatusInProgress)

	approved, err := env.service.ApproveAllInTask(task.ID, creator.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), approved)

	require.Equal(t, models.StatusDone, env.reloadAssignee(t, a1.ID).Status)
	require.Equal(t, models.StatusDone, env.reloadAssignee(t, a2.ID).Status)
	require.Equal(t, models.StatusInProgress, env.reloadAssignee(t, a3.ID).Status)
}

func TestApproveAllInTask_Forbidden(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	other := env.createUser(t, "other", roles.RoleTeacher)
	task := env.createReviewTask(t, creator.ID)

	_, err := env.service.ApproveAllInTask(task.ID, other.ID)
	require.ErrorIs(t, err, ErrReviewForbidden)
}

func TestBulkReview_Approve(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	s2 := env.createUser(t, "s2", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)

	a1 := env.createAssignee(t, task.ID, s1.ID, models.StatusSubmitted)
	a2 := env.createAssignee(t, task.ID, s2.ID, models.StatusSubmitted)

	err := env.service.BulkReview([]uint64{a1.ID, a2.ID}, ReviewOpApprove, "", creator.ID)
	require.NoError(t, err)

	require.Equal(t, models.StatusDone, env.reloadAssignee(t, a1.ID).Status)
	require.Equal(t, models.StatusDone, env.reloadAssignee(t, a2.ID).Status)
}

func TestBulkReview_DuplicateIDsAreBenign(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	a1 := env.createAssignee(t, task.ID, s1.ID, models.StatusSubmitted)

	err := env.service.BulkReview([]uint64{a1.ID, a1.ID}, ReviewOpApprove, "", creator.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, env.reloadAssignee(t, a1.ID).Status)
}

func TestBulkReview_Reject(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)
	a1 := env.createAssignee(t, task.ID, s1.ID, models.StatusSubmitted)

	require.ErrorIs(t,
		env.service.BulkReview([]uint64{a1.ID}, ReviewOpReject, "", creator.ID),
		ErrRejectReasonEmpty)

	require.NoError(t,
		env.service.BulkReview([]uint64{a1.ID}, ReviewOpReject, "redo it", creator.ID))
	require.Equal(t, models.StatusInProgress, env.reloadAssignee(t, a1.ID).Status)
}

func TestBulkReview_ForeignTaskDeniesWholeBatch(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	other := env.createUser(t, "other", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	s2 := env.createUser(t, "s2", roles.RoleUser)

	own := env.createReviewTask(t, creator.ID)
	foreign := env.createReviewTask(t, other.ID)

	a1 := env.createAssignee(t, own.ID, s1.ID, models.StatusSubmitted)
	a2 := env.createAssignee(t, foreign.ID, s2.ID, models.StatusSubmitted)

	err := env.service.BulkReview([]uint64{a1.ID, a2.ID}, ReviewOpApprove, "", creator.ID)
	require.ErrorIs(t, err, ErrReviewForbidden)

	// The whole batch was denied: nothing moved.
	require.Equal(t, models.StatusSubmitted, env.reloadAssignee(t, a1.ID).Status)
	require.Equal(t, models.StatusSubmitted, env.reloadAssignee(t, a2.ID).Status)
}

func TestBulkReview_MixedStatusRollsBack(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	s1 := env.createUser(t, "s1", roles.RoleUser)
	s2 := env.createUser(t, "s2", roles.RoleUser)
	task := env.createReviewTask(t, creator.ID)

	a1 := env.createAssignee(t, task.ID, s1.ID, models.StatusSubmitted)
	a2 := env.createAssignee(t, task.ID, s2.ID, models.StatusDone)

	err := env.service.BulkReview([]uint64{a1.ID, a2.ID}, ReviewOpApprove, "", creator.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	require.Equal(t, models.StatusSubmitted, env.reloadAssignee(t, a1.ID).Status)
}

func TestBulkReview_UnknownIDs(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)

	require.ErrorIs(t,
		env.service.BulkReview(nil, ReviewOpApprove, "", creator.ID),
		ErrNoAssigneeIDs)
	require.ErrorIs(t,
		env.service.BulkReview([]uint64{9999}, ReviewOpApprove, "", creator.ID),
		ErrAssigneeNotFound)
}

func TestOpenAttachment(t *testing.T) {
	env := setupReviewTestEnv(t)
	creator := env.createUser(t, "teacher", roles.RoleTeacher)
	student := env.createUser(t, "student", roles.RoleUser)
	outsider := env.createUser(t, "outsider", roles.RoleUser)

	task := &models.Task{
		Title:                   "Hidden assignment",
		CreatorID:               creator.ID,
		ReviewRequired:          true,
		Hidden:                  true,
		MinRolePowerToSeeHidden: roles.PowerOf(roles.RoleDirector),
	}
	require.NoError(t, env.db.Create(task).Error)
	assignee := env.createAssignee(t, task.ID, student.ID, models.StatusInProgress)

	require.NoError(t, env.service.SubmitForReview(context.Background(), SubmitInput{
		AssigneeID: assignee.ID,
		ActorID:    student.ID,
		Files: []FileInput{
			{OriginalName: "photo.jpg", Mime: "image/jpeg", Content: strings.NewReader("jpegbytes")},
		},
	}))

	var stored models.Attachment
	require.NoError(t, env.db.First(&stored).Error)

	// The assignee can read the content back.
	att, rc, err := env.service.OpenAttachment(context.Background(), stored.ID, student.ID)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "photo.jpg", att.OriginalName)

	// Someone who cannot see the hidden task gets a not-found, not a deny.
	_, _, err = env.service.OpenAttachment(context.Background(), stored.ID, outsider.ID)
	require.ErrorIs(t, err, ErrAttachmentNotFound)

	_, _, err = env.service.OpenAttachment(context.Background(), 9999, student.ID)
	require.ErrorIs(t, err, ErrAttachmentNotFound)
}
