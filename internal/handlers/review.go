package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	apierrors "github.com/mektebli/school-crm/internal/errors"
	"github.com/mektebli/school-crm/internal/middleware"
	"github.com/mektebli/school-crm/internal/services"
)

// ReviewHandler coordinates the review workflow HTTP handlers.
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// SubmitForReview submits the caller's assignment with an optional comment
// and attachments (multipart form).
func (h *ReviewHandler) SubmitForReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	assigneeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apierrors.BadRequest(c, "Invalid multipart form")
		return
	}

	input := services.SubmitInput{
		AssigneeID: assigneeID,
		ActorID:    userID,
		Comment:    c.PostForm("comment"),
	}

	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			apierrors.BadRequest(c, "Unreadable file "+fh.Filename)
			return
		}
		defer f.Close()

		input.Files = append(input.Files, services.FileInput{
			OriginalName: fh.Filename,
			Mime:         fh.Header.Get("Content-Type"),
			Content:      f,
		})
	}

	if err := h.reviewService.SubmitForReview(c.Request.Context(), input); err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Submitted for review",
	})
}

// ApproveSubmission approves one submitted assignment.
func (h *ReviewHandler) ApproveSubmission(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	assigneeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.ApproveSubmission(assigneeID, userID); err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Submission approved",
	})
}

// RejectSubmission rejects one submitted assignment with a reason.
func (h *ReviewHandler) RejectSubmission(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	assigneeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type RejectRequest struct {
		Reason string `json:"reason" binding:"required"`
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.reviewService.RejectSubmission(assigneeID, userID, req.Reason); err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Submission rejected",
	})
}

// ApproveAllInTask approves every submitted assignee of the task.
func (h *ReviewHandler) ApproveAllInTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	approved, err := h.reviewService.ApproveAllInTask(taskID, userID)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Submissions approved",
		"approved": approved,
	})
}

// BulkReview approves or rejects an explicit list of assignees.
func (h *ReviewHandler) BulkReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type BulkReviewRequest struct {
		IDs       []uint64 `json:"ids" binding:"required"`
		Operation string   `json:"operation" binding:"required,oneof=approve reject"`
		Reason    string   `json:"reason"`
	}

	var req BulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	err := h.reviewService.BulkReview(req.IDs, services.ReviewOp(req.Operation), req.Reason, userID)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bulk review applied",
	})
}

func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoAssigneeIDs),
		errors.Is(err, services.ErrTooManyIDs),
		errors.Is(err, services.ErrTooManyFiles),
		errors.Is(err, services.ErrRejectReasonEmpty):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotAssignee),
		errors.Is(err, services.ErrReviewForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrReviewNotRequired),
		errors.Is(err, services.ErrInvalidState):
		apierrors.InvalidState(c, err.Error())
	case errors.Is(err, services.ErrReviewConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, authz.ErrLookupFailed):
		apierrors.ServiceUnavailable(c, "")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
