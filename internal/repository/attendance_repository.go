package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert records a day's attendance for many students in one transaction.
// Re-submitting a (student_id, date) pair overwrites the status.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk attendance tx: %w", err)
	}
	const query = `INSERT INTO attendance (id, batch_id, student_id, date, status, created_at, updated_at)
        VALUES (:id, :batch_id, :student_id, :date, :status, :created_at, :updated_at)
        ON CONFLICT (student_id, date)
        DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

// CountPresentByStudent aggregates present days per student for a batch
// within the given window. One point per present day, no cap.
func (r *AttendanceRepository) CountPresentByStudent(ctx context.Context, batchID string, from, to time.Time) ([]models.PresentCount, error) {
	const query = `SELECT student_id, COUNT(*) AS days FROM attendance
        WHERE batch_id = $1 AND status = $2 AND date >= $3 AND date <= $4
        GROUP BY student_id`
	var counts []models.PresentCount
	if err := r.db.SelectContext(ctx, &counts, query, batchID, models.AttendanceStatusPresent, from, to); err != nil {
		return nil, fmt.Errorf("count present attendance: %w", err)
	}
	return counts, nil
}

// StudentSummary aggregates a student's attendance within a window.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance
        WHERE student_id = $1 AND date >= $2 AND date <= $3
        GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{StudentID: studentID}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.AttendanceStatusPresent:
			summary.Present += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		case models.AttendanceStatusLate:
			summary.Late += row.Count
		}
		summary.Total += row.Count
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present) / float64(summary.Total) * 100
	}
	return summary, nil
}
