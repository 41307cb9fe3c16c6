package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type markStore interface {
	Upsert(ctx context.Context, mark *models.MonthlyMark) error
	BulkUpsert(ctx context.Context, marks []models.MonthlyMark) error
	ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error)
}

type examComponentFinder interface {
	FindByID(ctx context.Context, id string) (*models.MonthlyExam, error)
	FindIndividualExam(ctx context.Context, id string) (*models.IndividualExam, error)
}

// UpsertMarkRequest records one student's marks on one graded component.
type UpsertMarkRequest struct {
	MonthlyExamID    string `json:"monthly_exam_id" validate:"required"`
	IndividualExamID string `json:"individual_exam_id" validate:"required"`
	StudentID        string `json:"student_id" validate:"required"`
	ObtainedMarks    int    `json:"obtained_marks" validate:"gte=0"`
}

// BulkMarkEntry is one row in a bulk submission for a single component.
type BulkMarkEntry struct {
	StudentID     string `json:"student_id" validate:"required"`
	ObtainedMarks int    `json:"obtained_marks" validate:"gte=0"`
}

// BulkUpsertMarksRequest records a whole class's marks on one component.
type BulkUpsertMarksRequest struct {
	MonthlyExamID    string          `json:"monthly_exam_id" validate:"required"`
	IndividualExamID string          `json:"individual_exam_id" validate:"required"`
	Entries          []BulkMarkEntry `json:"entries" validate:"required,min=1,dive"`
}

// MarkService validates and records obtained marks. Finalized periods reject
// all mark writes.
type MarkService struct {
	marks     markStore
	exams     examComponentFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markStore, exams examComponentFinder, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{marks: marks, exams: exams, validator: validate, logger: logger}
}

// Upsert records one mark, overwriting any previous value for the same
// (exam, component, student) triple.
func (s *MarkService) Upsert(ctx context.Context, req UpsertMarkRequest) (*models.MonthlyMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	component, err := s.guard(ctx, req.MonthlyExamID, req.IndividualExamID)
	if err != nil {
		return nil, err
	}
	if req.ObtainedMarks > component.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("obtained marks %d exceed the exam total of %d", req.ObtainedMarks, component.TotalMarks))
	}
	mark := &models.MonthlyMark{
		MonthlyExamID:    req.MonthlyExamID,
		IndividualExamID: req.IndividualExamID,
		StudentID:        req.StudentID,
		ObtainedMarks:    req.ObtainedMarks,
	}
	if err := s.marks.Upsert(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store mark")
	}
	return mark, nil
}

// BulkUpsert records a whole submission for one component in one transaction.
// Any invalid entry rejects the entire batch before anything is written.
func (s *MarkService) BulkUpsert(ctx context.Context, req BulkUpsertMarksRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk mark payload")
	}
	component, err := s.guard(ctx, req.MonthlyExamID, req.IndividualExamID)
	if err != nil {
		return 0, err
	}
	marks := make([]models.MonthlyMark, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if entry.ObtainedMarks > component.TotalMarks {
			return 0, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("obtained marks %d for student %s exceed the exam total of %d", entry.ObtainedMarks, entry.StudentID, component.TotalMarks))
		}
		marks = append(marks, models.MonthlyMark{
			MonthlyExamID:    req.MonthlyExamID,
			IndividualExamID: req.IndividualExamID,
			StudentID:        entry.StudentID,
			ObtainedMarks:    entry.ObtainedMarks,
		})
	}
	if err := s.marks.BulkUpsert(ctx, marks); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store marks")
	}
	s.logger.Info("marks recorded",
		zap.String("monthly_exam_id", req.MonthlyExamID),
		zap.String("individual_exam_id", req.IndividualExamID),
		zap.Int("count", len(marks)),
	)
	return len(marks), nil
}

// ListByExam returns all marks of a monthly exam.
func (s *MarkService) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error) {
	marks, err := s.marks.ListByExam(ctx, monthlyExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// guard loads the exam and component, enforcing that the component belongs to
// the exam and that the period is still open for edits.
func (s *MarkService) guard(ctx context.Context, monthlyExamID, individualExamID string) (*models.IndividualExam, error) {
	exam, err := s.exams.FindByID(ctx, monthlyExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly exam")
	}
	if exam.IsFinalized {
		return nil, appErrors.Clone(appErrors.ErrAlreadyFinalized, "cannot record marks on a finalized exam")
	}
	component, err := s.exams.FindIndividualExam(ctx, individualExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "individual exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load individual exam")
	}
	if component.MonthlyExamID != monthlyExamID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "individual exam does not belong to the monthly exam")
	}
	return component, nil
}
