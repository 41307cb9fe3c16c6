package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

func newSettingsMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	rows := sqlmock.NewRows([]string{"id", "sms_count", "sms_api_key", "sms_api_url", "sms_sender_id", "updated_at"}).
		AddRow(1, 120, "key", "https://gateway.example/send", "COACH", time.Now())
	mock.ExpectQuery("SELECT id, sms_count, sms_api_key, sms_api_url, sms_sender_id, updated_at").
		WillReturnRows(rows)

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, settings.SmsCount)
	assert.False(t, settings.SandboxMode())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryDecrementSucceedsWithCoverage(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectExec("UPDATE settings SET sms_count = sms_count - ").
		WithArgs(5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.DecrementSmsCount(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryDecrementRefusesNegativeBalance(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	// The conditional WHERE clause matched no row, so nothing was deducted.
	mock.ExpectExec("UPDATE settings SET sms_count = sms_count - ").
		WithArgs(50, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DecrementSmsCount(context.Background(), 50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryDecrementZeroIsNoop(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	ok, err := repo.DecrementSmsCount(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryPartialUpdate(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	count := 200
	mock.ExpectExec("UPDATE settings SET updated_at = ").
		WithArgs(sqlmock.AnyArg(), count).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), models.SettingsUpdate{SmsCount: &count})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
