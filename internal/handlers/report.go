package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	apierrors "github.com/mektebli/school-crm/internal/errors"
	"github.com/mektebli/school-crm/internal/middleware"
	"github.com/mektebli/school-crm/internal/services"
)

// ReportHandler serves the weekly report export.
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// WeeklyReport streams the weekly review report as an xlsx workbook. An
// optional ?date=YYYY-MM-DD selects the week; default is the current one.
func (h *ReportHandler) WeeklyReport(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	ref := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	f, err := h.reportService.WeeklyReport(userID, ref)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReportForbidden):
			apierrors.Forbidden(c, err.Error())
		case errors.Is(err, authz.ErrLookupFailed):
			apierrors.ServiceUnavailable(c, "")
		default:
			apierrors.InternalError(c, "Internal server error")
		}
		return
	}

	year, week := ref.ISOWeek()
	filename := fmt.Sprintf("weekly-report-%d-W%02d.xlsx", year, week)

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		// Headers are already sent; just log via gin's error list.
		c.Error(err)
	}
}
