package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// SettingsRepository persists the singleton settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get fetches the settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	const query = `SELECT id, sms_count, sms_api_key, sms_api_url, sms_sender_id, updated_at
        FROM settings WHERE id = 1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update applies a partial settings change. Only non-nil fields are written.
func (r *SettingsRepository) Update(ctx context.Context, update models.SettingsUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}
	if update.SmsCount != nil {
		sets = append(sets, fmt.Sprintf("sms_count = $%d", len(args)+1))
		args = append(args, *update.SmsCount)
	}
	if update.SmsAPIKey != nil {
		sets = append(sets, fmt.Sprintf("sms_api_key = $%d", len(args)+1))
		args = append(args, *update.SmsAPIKey)
	}
	if update.SmsAPIURL != nil {
		sets = append(sets, fmt.Sprintf("sms_api_url = $%d", len(args)+1))
		args = append(args, *update.SmsAPIURL)
	}
	if update.SmsSenderID != nil {
		sets = append(sets, fmt.Sprintf("sms_sender_id = $%d", len(args)+1))
		args = append(args, *update.SmsSenderID)
	}
	query := fmt.Sprintf("UPDATE settings SET %s WHERE id = 1", joinSets(sets))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// DecrementSmsCount atomically deducts n from the balance, refusing to go
// negative. Returns false when the balance could not cover the deduction.
// This is the single write path for consumption; never read-then-write.
func (r *SettingsRepository) DecrementSmsCount(ctx context.Context, n int) (bool, error) {
	if n <= 0 {
		return true, nil
	}
	const query = `UPDATE settings SET sms_count = sms_count - $1, updated_at = $2
        WHERE id = 1 AND sms_count >= $1`
	result, err := r.db.ExecContext(ctx, query, n, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("decrement sms count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement sms count: %w", err)
	}
	return affected > 0, nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
