package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
)

var ErrReportForbidden = errors.New("user does not have the report export permission")

const reportSheet = "Weekly Report"

// ReportService builds the weekly review report workbook.
type ReportService struct {
	reviewRepo repository.ReviewRepository
	evaluator  *authz.Evaluator
}

// NewReportService creates a new ReportService.
func NewReportService(reviewRepo repository.ReviewRepository, evaluator *authz.Evaluator) *ReportService {
	return &ReportService{
		reviewRepo: reviewRepo,
		evaluator:  evaluator,
	}
}

// WeeklyReport exports review activity for the ISO week containing ref as
// an xlsx workbook, one row per assignee with submission or review activity.
func (s *ReportService) WeeklyReport(actorID uint64, ref time.Time) (*excelize.File, error) {
	allowed, err := s.evaluator.Can(actorID, authz.ActionReportExport)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrReportForbidden
	}

	from, to := isoWeekBounds(ref)

	assignees, err := s.reviewRepo.ListReviewed(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load review activity: %w", err)
	}

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), reportSheet)

	headers := []string{"Task", "Assignee", "Status", "Submitted", "Reviewed", "Reviewer"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reportSheet, cell, h)
	}

	for row, a := range assignees {
		values := []interface{}{
			a.Task.Title,
			a.User.Username,
			string(a.Status),
			formatTime(a.SubmittedAt),
			formatTime(a.ReviewedAt),
			reviewerName(&a),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(reportSheet, cell, v)
		}
	}

	return f, nil
}

// isoWeekBounds returns the Monday 00:00 of the week containing ref and the
// Monday of the following week.
func isoWeekBounds(ref time.Time) (time.Time, time.Time) {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location()).
		AddDate(0, 0, -(weekday - 1))
	return monday, monday.AddDate(0, 0, 7)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func reviewerName(a *models.TaskAssignee) string {
	if a.ReviewedBy == nil {
		return ""
	}
	return a.ReviewedBy.Username
}
