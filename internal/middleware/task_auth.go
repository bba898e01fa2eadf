package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	apierrors "github.com/mektebli/school-crm/internal/errors"
)

// ContextKeyTaskID is where the parsed task id is stored for handlers.
const ContextKeyTaskID = "task_id"

// RequireTaskVisibility checks the task visibility rule for the :id route
// parameter. Tasks the user may not see respond 404, not 403, so hidden
// tasks stay indistinguishable from missing ones.
func RequireTaskVisibility(evaluator *authz.Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		visible, err := evaluator.CanSeeTask(userID, taskID)
		if err != nil {
			if errors.Is(err, authz.ErrLookupFailed) {
				apierrors.ServiceUnavailable(c, "")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}
		if !visible {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID retrieves the task id stored by RequireTaskVisibility
func GetTaskID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(ContextKeyTaskID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
