package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// SmsLogRepository appends SMS audit rows. Logs are never mutated.
type SmsLogRepository struct {
	db *sqlx.DB
}

// NewSmsLogRepository constructs the repository.
func NewSmsLogRepository(db *sqlx.DB) *SmsLogRepository {
	return &SmsLogRepository{db: db}
}

// Insert appends one audit row.
func (r *SmsLogRepository) Insert(ctx context.Context, log *models.SmsLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sms_logs (id, recipient, message, sms_type, status, sent_by, created_at)
        VALUES (:id, :recipient, :message, :sms_type, :status, :sent_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert sms log: %w", err)
	}
	return nil
}

// List returns audit rows matching the filter, newest first.
func (r *SmsLogRepository) List(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SmsType != "" {
		where = append(where, fmt.Sprintf("sms_type = $%d", len(args)+1))
		args = append(args, filter.SmsType)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, recipient, message, sms_type, status, sent_by, created_at
        FROM sms_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, whereClause, size, offset)
	var logs []models.SmsLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sms logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sms_logs WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sms logs: %w", err)
	}
	return logs, total, nil
}
