package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type settingsAdminStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, update models.SettingsUpdate) error
}

// SettingsService reads and updates the singleton settings row. Direct
// balance writes live here; consumption goes through the SMS dispatch path.
type SettingsService struct {
	settings  settingsAdminStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs SettingsService.
func NewSettingsService(settings settingsAdminStore, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, validator: validate, logger: logger}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update applies a partial change and returns the fresh row.
func (s *SettingsService) Update(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := s.settings.Update(ctx, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	if update.SmsCount != nil {
		s.logger.Info("sms balance adjusted", zap.Int("sms_count", *update.SmsCount))
	}
	return s.Get(ctx)
}
