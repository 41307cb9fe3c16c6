package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type monthlyExamStore interface {
	Create(ctx context.Context, exam *models.MonthlyExam) error
	FindByID(ctx context.Context, id string) (*models.MonthlyExam, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.MonthlyExam, error)
	CreateIndividualExam(ctx context.Context, exam *models.IndividualExam) error
	ListIndividualExams(ctx context.Context, monthlyExamID string) ([]models.IndividualExam, error)
}

type batchFinder interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

// CreateMonthlyExamRequest opens a grading period for a batch.
type CreateMonthlyExamRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Month   int    `json:"month" validate:"required,min=1,max=12"`
	Year    int    `json:"year" validate:"required,min=2000,max=2100"`
}

// CreateIndividualExamRequest adds a graded component to a monthly exam.
type CreateIndividualExamRequest struct {
	Name       string `json:"name" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	TotalMarks int    `json:"total_marks" validate:"required,gt=0"`
}

// ExamService manages monthly exams and their graded components.
type ExamService struct {
	exams     monthlyExamStore
	batches   batchFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(exams monthlyExamStore, batches batchFinder, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, batches: batches, validator: validate, logger: logger}
}

// CreateMonthlyExam opens a new grading period. Duplicate (batch, month, year)
// periods are rejected by the unique constraint and surfaced as a conflict.
func (s *ExamService) CreateMonthlyExam(ctx context.Context, req CreateMonthlyExamRequest) (*models.MonthlyExam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid monthly exam payload")
	}
	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	exam := &models.MonthlyExam{
		BatchID: req.BatchID,
		Title:   req.Title,
		Month:   req.Month,
		Year:    req.Year,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "monthly exam already exists for this period")
	}
	s.logger.Info("monthly exam created",
		zap.String("monthly_exam_id", exam.ID),
		zap.String("batch_id", exam.BatchID),
		zap.Int("month", exam.Month),
		zap.Int("year", exam.Year),
	)
	return exam, nil
}

// GetMonthlyExam fetches one exam with its graded components.
func (s *ExamService) GetMonthlyExam(ctx context.Context, id string) (*models.MonthlyExam, []models.IndividualExam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly exam")
	}
	components, err := s.exams.ListIndividualExams(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list individual exams")
	}
	return exam, components, nil
}

// ListByBatch returns the batch's exams, newest period first.
func (s *ExamService) ListByBatch(ctx context.Context, batchID string) ([]models.MonthlyExam, error) {
	exams, err := s.exams.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monthly exams")
	}
	return exams, nil
}

// AddIndividualExam appends a graded component. Components cannot be added
// once the period is finalized.
func (s *ExamService) AddIndividualExam(ctx context.Context, monthlyExamID string, req CreateIndividualExamRequest) (*models.IndividualExam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid individual exam payload")
	}
	exam, err := s.exams.FindByID(ctx, monthlyExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly exam")
	}
	if exam.IsFinalized {
		return nil, appErrors.Clone(appErrors.ErrAlreadyFinalized, "cannot add exams to a finalized period")
	}
	component := &models.IndividualExam{
		MonthlyExamID: monthlyExamID,
		Name:          req.Name,
		Subject:       req.Subject,
		TotalMarks:    req.TotalMarks,
	}
	if err := s.exams.CreateIndividualExam(ctx, component); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create individual exam")
	}
	return component, nil
}
