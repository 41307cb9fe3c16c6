package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type attendanceStore interface {
	BulkUpsert(ctx context.Context, records []models.Attendance) error
	StudentSummary(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceSummary, error)
}

// AttendanceEntry is one student's status for the day being recorded.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// BulkAttendanceRequest records a batch's attendance for one date.
type BulkAttendanceRequest struct {
	BatchID string            `json:"batch_id" validate:"required"`
	Date    string            `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService records daily attendance and serves summaries.
type AttendanceService struct {
	attendance attendanceStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceStore, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, validator: validate, logger: logger}
}

// RecordBulk stores a day's attendance for many students. Re-submitting the
// same (student, date) overwrites the status, so corrections are a re-post.
func (s *AttendanceService) RecordBulk(ctx context.Context, req BulkAttendanceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "date must be in YYYY-MM-DD format")
	}
	records := make([]models.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent or late")
		}
		records = append(records, models.Attendance{
			BatchID:   req.BatchID,
			StudentID: entry.StudentID,
			Date:      date.UTC(),
			Status:    entry.Status,
		})
	}
	if err := s.attendance.BulkUpsert(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}
	s.logger.Info("attendance recorded",
		zap.String("batch_id", req.BatchID),
		zap.String("date", req.Date),
		zap.Int("count", len(records)),
	)
	return len(records), nil
}

// MonthlySummary aggregates one student's attendance for a calendar month.
func (s *AttendanceService) MonthlySummary(ctx context.Context, studentID string, month, year int) (*models.AttendanceSummary, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month or year is out of range")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	summary, err := s.attendance.StudentSummary(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	summary.Month = month
	summary.Year = year
	return summary, nil
}
