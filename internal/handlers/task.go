package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/dto"
	apierrors "github.com/mektebli/school-crm/internal/errors"
	"github.com/mektebli/school-crm/internal/middleware"
	"github.com/mektebli/school-crm/internal/services"
	"github.com/mektebli/school-crm/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns tasks visible to the caller.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		UserID:       userID,
		AssignedToMe: c.Query("assigned_to_me") == "true",
		Page:         params.Page,
		PageSize:     params.Limit,
	}
	if c.Query("mine") == "true" {
		input.CreatorID = &userID
	}

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.TaskListItemDTO, len(tasks))
	for i, t := range tasks {
		items[i] = dto.ToTaskListItemDTO(t)
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": items,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateTask creates a new task.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title                   string     `json:"title" binding:"required"`
		Description             string     `json:"description"`
		DueDate                 *time.Time `json:"due_date"`
		Hidden                  bool       `json:"hidden"`
		MinRolePowerToSeeHidden int        `json:"min_role_power_to_see_hidden"`
		ReviewRequired          bool       `json:"review_required"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:                   req.Title,
		Description:             req.Description,
		DueDate:                 req.DueDate,
		Hidden:                  req.Hidden,
		MinRolePowerToSeeHidden: req.MinRolePowerToSeeHidden,
		ReviewRequired:          req.ReviewRequired,
		CreatorID:               userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a task with its relations. Visibility was already checked
// by RequireTaskVisibility.
func (h *TaskHandler) GetTask(c *gin.Context) {
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

	task, err := h.taskService.GetTask(taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
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

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignTask assigns users to a task.
func (h *TaskHandler) AssignTask(c *gin.Context) {
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

	type AssignUsersRequest struct {
		UserIDs []uint64 `json:"user_ids" binding:"required"`
	}

	var req AssignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	err := h.taskService.AssignUsers(services.AssignUsersInput{
		TaskID:  taskID,
		ActorID: userID,
		UserIDs: req.UserIDs,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users assigned successfully",
	})
}

// UnassignTask removes user assignments from a task.
func (h *TaskHandler) UnassignTask(c *gin.Context) {
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

	type UnassignUsersRequest struct {
		UserIDs []uint64 `json:"user_ids" binding:"required"`
	}

	var req UnassignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.UnassignUsers(taskID, userID, req.UserIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users unassigned successfully",
	})
}

// AssignGroups assigns a task to groups.
func (h *TaskHandler) AssignGroups(c *gin.Context) {
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

	type AssignGroupsRequest struct {
		GroupIDs []uint64 `json:"group_ids" binding:"required"`
	}

	var req AssignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.AssignGroups(taskID, userID, req.GroupIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Groups assigned successfully",
	})
}

// AttachFile uploads a file and links it to the task.
func (h *TaskHandler) AttachFile(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "Missing file")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		apierrors.BadRequest(c, "Unreadable file")
		return
	}
	defer f.Close()

	att, err := h.taskService.AttachFile(c.Request.Context(), taskID, userID, services.FileInput{
		OriginalName: fileHeader.Filename,
		Mime:         fileHeader.Header.Get("Content-Type"),
		Content:      f,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAttachmentDTO(*att))
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrNoUserIDsProvided),
		errors.Is(err, services.ErrNoGroupIDsProvided),
		errors.Is(err, services.ErrInvalidTaskAssignee):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskForbidden),
		errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrTaskNotVisible):
		// Invisible tasks are reported as missing.
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, authz.ErrLookupFailed):
		apierrors.ServiceUnavailable(c, "")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
