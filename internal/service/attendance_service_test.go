package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type mockAttendanceStore struct {
	records []models.Attendance
	summary *models.AttendanceSummary
}

func (m *mockAttendanceStore) BulkUpsert(ctx context.Context, records []models.Attendance) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *mockAttendanceStore) StudentSummary(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceSummary, error) {
	return m.summary, nil
}

func TestRecordBulkStoresEntries(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, validator.New(), zap.NewNop())

	count, err := svc.RecordBulk(context.Background(), BulkAttendanceRequest{
		BatchID: "batch1",
		Date:    "2025-06-15",
		Entries: []AttendanceEntry{
			{StudentID: "stu1", Status: models.AttendanceStatusPresent},
			{StudentID: "stu2", Status: models.AttendanceStatusLate},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, store.records, 2)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), store.records[0].Date)
}

func TestRecordBulkRejectsInvalidStatus(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, validator.New(), zap.NewNop())

	_, err := svc.RecordBulk(context.Background(), BulkAttendanceRequest{
		BatchID: "batch1",
		Date:    "2025-06-15",
		Entries: []AttendanceEntry{{StudentID: "stu1", Status: "sick"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.records)
}

func TestRecordBulkRejectsBadDate(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, validator.New(), zap.NewNop())

	_, err := svc.RecordBulk(context.Background(), BulkAttendanceRequest{
		BatchID: "batch1",
		Date:    "15/06/2025",
		Entries: []AttendanceEntry{{StudentID: "stu1", Status: models.AttendanceStatusPresent}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMonthlySummaryStampsPeriod(t *testing.T) {
	store := &mockAttendanceStore{summary: &models.AttendanceSummary{
		StudentID: "stu1", Present: 18, Absent: 2, Late: 1, Total: 21, Percent: 85.71,
	}}
	svc := NewAttendanceService(store, validator.New(), zap.NewNop())

	summary, err := svc.MonthlySummary(context.Background(), "stu1", 6, 2025)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Month)
	assert.Equal(t, 2025, summary.Year)
	assert.Equal(t, 18, summary.Present)
}

func TestMonthlySummaryRejectsBadPeriod(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceStore{}, validator.New(), zap.NewNop())

	_, err := svc.MonthlySummary(context.Background(), "stu1", 13, 2025)
	require.Error(t, err)
	_, err = svc.MonthlySummary(context.Background(), "", 6, 2025)
	require.Error(t, err)
}
