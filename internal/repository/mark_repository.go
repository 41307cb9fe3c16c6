package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// MarkRepository handles monthly mark persistence.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Upsert inserts or updates one mark. Re-submitting the same
// (monthly_exam_id, individual_exam_id, student_id) triple overwrites
// obtained_marks in place.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.MonthlyMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO monthly_marks (id, monthly_exam_id, individual_exam_id, student_id, obtained_marks, created_at, updated_at)
        VALUES (:id, :monthly_exam_id, :individual_exam_id, :student_id, :obtained_marks, :created_at, :updated_at)
        ON CONFLICT (monthly_exam_id, individual_exam_id, student_id)
        DO UPDATE SET obtained_marks = EXCLUDED.obtained_marks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}

// BulkUpsert inserts or updates multiple marks in a transaction.
func (r *MarkRepository) BulkUpsert(ctx context.Context, marks []models.MonthlyMark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk marks tx: %w", err)
	}
	const query = `INSERT INTO monthly_marks (id, monthly_exam_id, individual_exam_id, student_id, obtained_marks, created_at, updated_at)
        VALUES (:id, :monthly_exam_id, :individual_exam_id, :student_id, :obtained_marks, :created_at, :updated_at)
        ON CONFLICT (monthly_exam_id, individual_exam_id, student_id)
        DO UPDATE SET obtained_marks = EXCLUDED.obtained_marks, updated_at = EXCLUDED.updated_at`
	for i := range marks {
		if marks[i].ID == "" {
			marks[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if marks[i].CreatedAt.IsZero() {
			marks[i].CreatedAt = now
		}
		marks[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, marks[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert mark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit marks: %w", err)
	}
	return nil
}

// ListByExam returns all marks recorded for a monthly exam.
func (r *MarkRepository) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error) {
	const query = `SELECT id, monthly_exam_id, individual_exam_id, student_id, obtained_marks, created_at, updated_at
        FROM monthly_marks WHERE monthly_exam_id = $1`
	var marks []models.MonthlyMark
	if err := r.db.SelectContext(ctx, &marks, query, monthlyExamID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// SumByStudent totals a student's obtained marks within a monthly exam.
func (r *MarkRepository) SumByStudent(ctx context.Context, monthlyExamID, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(obtained_marks), 0) FROM monthly_marks
        WHERE monthly_exam_id = $1 AND student_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, monthlyExamID, studentID); err != nil {
		return 0, fmt.Errorf("sum marks: %w", err)
	}
	return total, nil
}
