package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/jobs"
)

func newNotifyFixture(finalized bool) (*NotifyService, *mockSmsLogStore, *mockSettingsStore) {
	exams := &mockExamFinder{exam: &models.MonthlyExam{
		ID: "exam1", BatchID: "batch1", Title: "June Monthly", Month: 6, Year: 2025, IsFinalized: finalized,
	}}
	results := &mockResultsReader{rows: []models.MonthlyResultRow{
		{
			MonthlyResult: models.MonthlyResult{Rank: 1, FinalTotal: 100, GPA: 5},
			StudentName:   "Alpha",
			GuardianPhone: "01711111111",
		},
		{
			MonthlyResult: models.MonthlyResult{Rank: 2, FinalTotal: 82, GPA: 3.5},
			StudentName:   "Bravo",
			GuardianPhone: "",
		},
	}}
	settings := &mockSettingsStore{settings: models.Settings{SmsCount: 50}}
	logs := &mockSmsLogStore{}
	sms := NewSmsService(settings, logs, &mockGateway{failFor: map[string]bool{}}, nil, validator.New(), zap.NewNop())
	svc := NewNotifyService(exams, results, sms, 1, 4, zap.NewNop())
	return svc, logs, settings
}

func TestNotifyResultsRequiresFinalizedExam(t *testing.T) {
	svc, _, _ := newNotifyFixture(false)
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.NotifyResults(context.Background(), "exam1", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNotifyResultsRequiresRunningQueue(t *testing.T) {
	svc, _, _ := newNotifyFixture(true)

	err := svc.NotifyResults(context.Background(), "exam1", "admin")
	require.Error(t, err)
}

func TestNotifyHandleSendsToGuardiansWithPhones(t *testing.T) {
	svc, logs, settings := newNotifyFixture(true)

	err := svc.handle(context.Background(), jobs.Job{
		ID:      "job1",
		Type:    jobTypeResultNotify,
		Payload: resultNotifyPayload{MonthlyExamID: "exam1", ActorID: "admin"},
	})
	require.NoError(t, err)

	// Only the student with a guardian phone gets a message.
	require.Len(t, logs.logs, 1)
	log := logs.logs[0]
	assert.Equal(t, "01711111111", log.Recipient)
	assert.Equal(t, models.SmsTypeResult, log.SmsType)
	assert.Equal(t, "admin", log.SentBy)
	assert.Contains(t, log.Message, "Alpha")
	assert.Contains(t, log.Message, "rank 1")
	assert.Equal(t, 49, settings.settings.SmsCount)
}

func TestNotifyHandleRejectsUnknownPayload(t *testing.T) {
	svc, _, _ := newNotifyFixture(true)

	err := svc.handle(context.Background(), jobs.Job{ID: "job1", Payload: "bogus"})
	require.Error(t, err)
}
