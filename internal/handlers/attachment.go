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

// AttachmentHandler serves stored attachment content.
type AttachmentHandler struct {
	reviewService *services.ReviewService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(reviewService *services.ReviewService) *AttachmentHandler {
	return &AttachmentHandler{
		reviewService: reviewService,
	}
}

// Download streams an attachment's content. Attachments on tasks the
// caller cannot see respond as not found.
func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	attachmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	att, rc, err := h.reviewService.OpenAttachment(c.Request.Context(), attachmentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttachmentNotFound):
			apierrors.NotFound(c, err.Error())
		case errors.Is(err, authz.ErrLookupFailed):
			apierrors.ServiceUnavailable(c, "")
		default:
			apierrors.InternalError(c, "Internal server error")
		}
		return
	}
	defer rc.Close()

	mime := att.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, att.Size, mime, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + att.OriginalName + `"`,
	})
}
