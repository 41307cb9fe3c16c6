package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/jobs"
)

const jobTypeResultNotify = "result_notify"

// resultNotifyPayload is the queued unit of work for one exam's notifications.
type resultNotifyPayload struct {
	MonthlyExamID string
	ActorID       string
}

// NotifyService fans out result SMS to guardians through the background
// queue. Only finalized exams can be announced; drafts would broadcast
// numbers that may still change.
type NotifyService struct {
	queue   *jobs.Queue
	exams   examFinder
	results rankedResultsReader
	sms     *SmsService
	logger  *zap.Logger
}

// NewNotifyService constructs NotifyService. Call Start before enqueueing.
func NewNotifyService(exams examFinder, results rankedResultsReader, sms *SmsService, workers, bufferSize int, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifyService{
		exams:   exams,
		results: results,
		sms:     sms,
		logger:  logger,
	}
	s.queue = jobs.NewQueue("result-notify", s.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotifyService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotifyService) Stop() {
	s.queue.Stop()
}

// NotifyResults queues guardian notifications for a finalized exam. The
// balance pre-check happens at dispatch time inside the worker, so the queued
// job can still fail if the balance drops before it runs.
func (s *NotifyService) NotifyResults(ctx context.Context, monthlyExamID, actorID string) error {
	exam, err := s.exams.FindByID(ctx, monthlyExamID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
	}
	if !exam.IsFinalized {
		return appErrors.Clone(appErrors.ErrValidation, "results must be finalized before notifying guardians")
	}
	err = s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeResultNotify,
		Payload: resultNotifyPayload{MonthlyExamID: monthlyExamID, ActorID: actorID},
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue notifications")
	}
	s.logger.Info("result notifications queued", zap.String("monthly_exam_id", monthlyExamID))
	return nil
}

func (s *NotifyService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(resultNotifyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	exam, err := s.exams.FindByID(ctx, payload.MonthlyExamID)
	if err != nil {
		return fmt.Errorf("load exam %s: %w", payload.MonthlyExamID, err)
	}
	rows, err := s.results.Results(ctx, payload.MonthlyExamID)
	if err != nil {
		return fmt.Errorf("load results %s: %w", payload.MonthlyExamID, err)
	}

	outbound := make([]OutboundSms, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if row.GuardianPhone == "" {
			skipped++
			continue
		}
		outbound = append(outbound, OutboundSms{
			Recipient: row.GuardianPhone,
			Message:   composeResultMessage(exam, row),
		})
	}
	if skipped > 0 {
		s.logger.Warn("students without guardian phone skipped",
			zap.String("monthly_exam_id", payload.MonthlyExamID),
			zap.Int("skipped", skipped),
		)
	}
	if len(outbound) == 0 {
		return nil
	}

	result, err := s.sms.Dispatch(ctx, payload.ActorID, outbound, models.SmsTypeResult)
	if err != nil {
		return fmt.Errorf("dispatch result sms for exam %s: %w", payload.MonthlyExamID, err)
	}
	s.logger.Info("result notifications dispatched",
		zap.String("monthly_exam_id", payload.MonthlyExamID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return nil
}

func composeResultMessage(exam *models.MonthlyExam, row models.MonthlyResultRow) string {
	return fmt.Sprintf("%s (%s %d): %s secured rank %d with %d marks (GPA %.2f).",
		exam.Title,
		time.Month(exam.Month),
		exam.Year,
		row.StudentName,
		row.Rank,
		row.FinalTotal,
		row.GPA,
	)
}
