package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	DecrementSmsCount(ctx context.Context, n int) (bool, error)
}

type smsLogStore interface {
	Insert(ctx context.Context, log *models.SmsLog) error
	List(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error)
}

// SendBulkRequest carries one message for many recipients.
type SendBulkRequest struct {
	Recipients []string       `json:"recipients" validate:"required,min=1,dive,required"`
	Message    string         `json:"message" validate:"required"`
	SmsType    models.SmsType `json:"sms_type"`
}

// OutboundSms is one recipient/message pair in a dispatch.
type OutboundSms struct {
	Recipient string
	Message   string
}

// SmsService dispatches messages through the gateway and keeps the balance
// ledger honest: the balance is checked before any attempt, every attempt is
// logged, and only successful sends are deducted.
type SmsService struct {
	settings  settingsStore
	logs      smsLogStore
	gateway   SmsGateway
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSmsService constructs SmsService.
func NewSmsService(settings settingsStore, logs smsLogStore, gateway SmsGateway, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SmsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SmsService{
		settings:  settings,
		logs:      logs,
		gateway:   gateway,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// SendBulk sends the same message to every recipient.
func (s *SmsService) SendBulk(ctx context.Context, actorID string, req SendBulkRequest) (*models.SmsDispatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sms payload")
	}
	smsType := req.SmsType
	if smsType == "" {
		smsType = models.SmsTypeGeneral
	}
	outbound := make([]OutboundSms, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		outbound = append(outbound, OutboundSms{Recipient: recipient, Message: req.Message})
	}
	return s.Dispatch(ctx, actorID, outbound, smsType)
}

// SendTest sends a single probe message to verify gateway credentials.
func (s *SmsService) SendTest(ctx context.Context, actorID, recipient, message string) (*models.SmsDispatchResult, error) {
	if recipient == "" || message == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient and message are required")
	}
	return s.Dispatch(ctx, actorID, []OutboundSms{{Recipient: recipient, Message: message}}, models.SmsTypeTest)
}

// Dispatch runs the full send contract for a prepared batch: refuse outright
// when the balance cannot cover every recipient, attempt each message
// sequentially, log each attempt, then deduct exactly the number delivered.
func (s *SmsService) Dispatch(ctx context.Context, actorID string, outbound []OutboundSms, smsType models.SmsType) (*models.SmsDispatchResult, error) {
	if len(outbound) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no recipients to send to")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sms settings")
	}
	if settings.SmsCount < len(outbound) {
		return nil, appErrors.Clone(appErrors.ErrInsufficientBalance, "sms balance cannot cover all recipients")
	}

	result := &models.SmsDispatchResult{Requested: len(outbound)}
	sandbox := settings.SandboxMode()

	for _, msg := range outbound {
		status := models.SmsStatusSent
		if sandbox {
			s.logger.Debug("sandbox sms send", zap.String("recipient", msg.Recipient))
		} else if sendErr := s.gateway.Send(ctx, settings, msg.Recipient, msg.Message); sendErr != nil {
			status = models.SmsStatusFailed
			s.logger.Warn("sms send failed",
				zap.String("recipient", msg.Recipient),
				zap.Error(sendErr),
			)
		}

		if status == models.SmsStatusSent {
			result.Sent++
		} else {
			result.Failed++
		}

		logRow := &models.SmsLog{
			Recipient: msg.Recipient,
			Message:   msg.Message,
			SmsType:   smsType,
			Status:    status,
			SentBy:    actorID,
			CreatedAt: time.Now().UTC(),
		}
		if insertErr := s.logs.Insert(ctx, logRow); insertErr != nil {
			s.logger.Error("failed to record sms log", zap.String("recipient", msg.Recipient), zap.Error(insertErr))
		}
	}

	if s.metrics != nil {
		s.metrics.CountSms(result.Sent, result.Failed)
	}

	if result.Sent > 0 {
		ok, decErr := s.settings.DecrementSmsCount(ctx, result.Sent)
		if decErr != nil {
			return result, appErrors.Wrap(decErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle sms balance")
		}
		if !ok {
			// Balance changed underneath us between pre-check and settle.
			s.logger.Error("sms balance could not cover delivered messages",
				zap.Int("sent", result.Sent),
			)
			return result, appErrors.Clone(appErrors.ErrInsufficientBalance, "balance changed during dispatch; delivered messages could not be settled")
		}
	}

	s.logger.Info("sms dispatch completed",
		zap.String("sms_type", string(smsType)),
		zap.Int("requested", result.Requested),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Logs lists the audit trail.
func (s *SmsService) Logs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sms logs")
	}
	return logs, total, nil
}
