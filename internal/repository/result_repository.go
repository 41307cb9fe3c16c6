package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// ResultRepository persists materialized monthly results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// FetchByExam returns existing result rows keyed by student ID. Used by the
// ranking pass to carry bonus marks across regeneration.
func (r *ResultRepository) FetchByExam(ctx context.Context, monthlyExamID string) (map[string]models.MonthlyResult, error) {
	const query = `SELECT id, monthly_exam_id, student_id, total_exam_marks, attendance_marks, bonus_marks,
        final_total, percentage, gpa, rank, created_at, updated_at
        FROM monthly_results WHERE monthly_exam_id = $1`
	rows, err := r.db.QueryxContext(ctx, query, monthlyExamID)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.MonthlyResult)
	for rows.Next() {
		var row models.MonthlyResult
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		result[row.StudentID] = row
	}
	return result, rows.Err()
}

// ListByExam returns ranked result rows joined with student metadata.
func (r *ResultRepository) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error) {
	const query = `SELECT mr.id, mr.monthly_exam_id, mr.student_id, mr.total_exam_marks, mr.attendance_marks,
        mr.bonus_marks, mr.final_total, mr.percentage, mr.gpa, mr.rank, mr.created_at, mr.updated_at,
        s.full_name AS student_name, s.roll, s.guardian_phone
        FROM monthly_results mr
        JOIN students s ON s.id = mr.student_id
        WHERE mr.monthly_exam_id = $1
        ORDER BY mr.rank ASC`
	var rows []models.MonthlyResultRow
	if err := r.db.SelectContext(ctx, &rows, query, monthlyExamID); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return rows, nil
}

// ReplaceRanking upserts the full ranked result set inside one transaction so
// a partially ranked exam is never observable.
func (r *ResultRepository) ReplaceRanking(ctx context.Context, results []models.MonthlyResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ranking tx: %w", err)
	}
	const query = `INSERT INTO monthly_results (id, monthly_exam_id, student_id, total_exam_marks, attendance_marks,
        bonus_marks, final_total, percentage, gpa, rank, created_at, updated_at)
        VALUES (:id, :monthly_exam_id, :student_id, :total_exam_marks, :attendance_marks,
        :bonus_marks, :final_total, :percentage, :gpa, :rank, :created_at, :updated_at)
        ON CONFLICT (monthly_exam_id, student_id)
        DO UPDATE SET total_exam_marks = EXCLUDED.total_exam_marks, attendance_marks = EXCLUDED.attendance_marks,
        bonus_marks = EXCLUDED.bonus_marks, final_total = EXCLUDED.final_total, percentage = EXCLUDED.percentage,
        gpa = EXCLUDED.gpa, rank = EXCLUDED.rank, updated_at = EXCLUDED.updated_at`
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
		results[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert ranking row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ranking: %w", err)
	}
	return nil
}

// UpsertBonus stores bonus marks for one student, creating a placeholder row
// with zeroed totals when no result exists yet. No other column is touched on
// conflict.
func (r *ResultRepository) UpsertBonus(ctx context.Context, monthlyExamID, studentID string, bonusMarks int) error {
	now := time.Now().UTC()
	const query = `INSERT INTO monthly_results (id, monthly_exam_id, student_id, total_exam_marks, attendance_marks,
        bonus_marks, final_total, percentage, gpa, rank, created_at, updated_at)
        VALUES ($1, $2, $3, 0, 0, $4, $4, 0, 0, 0, $5, $5)
        ON CONFLICT (monthly_exam_id, student_id)
        DO UPDATE SET bonus_marks = EXCLUDED.bonus_marks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), monthlyExamID, studentID, bonusMarks, now); err != nil {
		return fmt.Errorf("upsert bonus: %w", err)
	}
	return nil
}
