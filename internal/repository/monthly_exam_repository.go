package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// MonthlyExamRepository handles monthly exam and individual exam persistence.
type MonthlyExamRepository struct {
	db *sqlx.DB
}

// NewMonthlyExamRepository constructs the repository.
func NewMonthlyExamRepository(db *sqlx.DB) *MonthlyExamRepository {
	return &MonthlyExamRepository{db: db}
}

// Create inserts a monthly exam. The (batch_id, month, year) unique constraint
// rejects duplicate periods.
func (r *MonthlyExamRepository) Create(ctx context.Context, exam *models.MonthlyExam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO monthly_exams (id, batch_id, title, month, year, is_finalized, created_at, updated_at)
        VALUES (:id, :batch_id, :title, :month, :year, :is_finalized, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create monthly exam: %w", err)
	}
	return nil
}

// FindByID fetches one monthly exam.
func (r *MonthlyExamRepository) FindByID(ctx context.Context, id string) (*models.MonthlyExam, error) {
	const query = `SELECT id, batch_id, title, month, year, is_finalized, created_at, updated_at
        FROM monthly_exams WHERE id = $1`
	var exam models.MonthlyExam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListByBatch returns the batch's monthly exams, newest period first.
func (r *MonthlyExamRepository) ListByBatch(ctx context.Context, batchID string) ([]models.MonthlyExam, error) {
	const query = `SELECT id, batch_id, title, month, year, is_finalized, created_at, updated_at
        FROM monthly_exams WHERE batch_id = $1 ORDER BY year DESC, month DESC`
	var exams []models.MonthlyExam
	if err := r.db.SelectContext(ctx, &exams, query, batchID); err != nil {
		return nil, fmt.Errorf("list monthly exams: %w", err)
	}
	return exams, nil
}

// SetFinalized flips the finalized flag.
func (r *MonthlyExamRepository) SetFinalized(ctx context.Context, id string, finalized bool) error {
	const query = `UPDATE monthly_exams SET is_finalized = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, finalized, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set finalized: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("set finalized: monthly exam %s not found", id)
	}
	return nil
}

// CreateIndividualExam adds a graded component to a monthly exam.
func (r *MonthlyExamRepository) CreateIndividualExam(ctx context.Context, exam *models.IndividualExam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	exam.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO individual_exams (id, monthly_exam_id, name, subject, total_marks, created_at)
        VALUES (:id, :monthly_exam_id, :name, :subject, :total_marks, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create individual exam: %w", err)
	}
	return nil
}

// ListIndividualExams returns all graded components of a monthly exam.
func (r *MonthlyExamRepository) ListIndividualExams(ctx context.Context, monthlyExamID string) ([]models.IndividualExam, error) {
	const query = `SELECT id, monthly_exam_id, name, subject, total_marks, created_at
        FROM individual_exams WHERE monthly_exam_id = $1 ORDER BY created_at ASC`
	var exams []models.IndividualExam
	if err := r.db.SelectContext(ctx, &exams, query, monthlyExamID); err != nil {
		return nil, fmt.Errorf("list individual exams: %w", err)
	}
	return exams, nil
}

// FindIndividualExam fetches one graded component.
func (r *MonthlyExamRepository) FindIndividualExam(ctx context.Context, id string) (*models.IndividualExam, error) {
	const query = `SELECT id, monthly_exam_id, name, subject, total_marks, created_at
        FROM individual_exams WHERE id = $1`
	var exam models.IndividualExam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}
