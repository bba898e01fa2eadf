package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/dto"
	apierrors "github.com/mektebli/school-crm/internal/errors"
	"github.com/mektebli/school-crm/internal/middleware"
	"github.com/mektebli/school-crm/internal/services"
	"github.com/mektebli/school-crm/internal/utils"
)

// ChatHandler coordinates messaging HTTP handlers.
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// CreateThread creates a thread with the caller and the listed members.
func (h *ChatHandler) CreateThread(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateThreadRequest struct {
		Title     string   `json:"title" binding:"required,min=1,max=255"`
		MemberIDs []uint64 `json:"member_ids"`
	}

	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	thread, err := h.chatService.CreateThread(req.Title, userID, req.MemberIDs)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToThreadDTO(*thread))
}

// ListThreads lists the caller's threads.
func (h *ChatHandler) ListThreads(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	threads, err := h.chatService.ListThreads(userID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	threadDTOs := make([]dto.ThreadDTO, len(threads))
	for i, t := range threads {
		threadDTOs[i] = dto.ToThreadDTO(t)
	}

	c.JSON(http.StatusOK, gin.H{"threads": threadDTOs})
}

// PostMessage appends a message to a thread.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	threadID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type PostMessageRequest struct {
		Body string `json:"body" binding:"required"`
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.chatService.PostMessage(threadID, userID, req.Body)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageDTO(*msg))
}

// ListMessages lists the messages of a thread.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	threadID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	messages, total, err := h.chatService.ListMessages(threadID, userID, params.Offset, params.Limit)
	if err != nil {
		respondChatError(c, err)
		return
	}

	messageDTOs := make([]dto.MessageDTO, len(messages))
	for i, m := range messages {
		messageDTOs[i] = dto.ToMessageDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messageDTOs,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// DeleteThread deletes a thread.
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	threadID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteThread(threadID, userID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Thread deleted successfully",
	})
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrThreadTitleMissing),
		errors.Is(err, services.ErrMessageBodyMissing):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotThreadMember),
		errors.Is(err, services.ErrNotThreadCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrThreadNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, authz.ErrLookupFailed):
		apierrors.ServiceUnavailable(c, "")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
