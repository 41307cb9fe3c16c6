package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/middleware"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/service"
)

type settingsStoreMock struct {
	balance int
}

func (m *settingsStoreMock) Get(ctx context.Context) (*models.Settings, error) {
	key := "key"
	url := "https://gateway.example/send"
	return &models.Settings{ID: 1, SmsCount: m.balance, SmsAPIKey: &key, SmsAPIURL: &url}, nil
}

func (m *settingsStoreMock) DecrementSmsCount(ctx context.Context, n int) (bool, error) {
	if m.balance < n {
		return false, nil
	}
	m.balance -= n
	return true, nil
}

type smsLogStoreMock struct {
	logs []models.SmsLog
}

func (m *smsLogStoreMock) Insert(ctx context.Context, log *models.SmsLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *smsLogStoreMock) List(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error) {
	return m.logs, len(m.logs), nil
}

type gatewayMock struct{}

func (m *gatewayMock) Send(ctx context.Context, settings *models.Settings, recipient, message string) error {
	return nil
}

func newSmsHandlerFixture(balance int) (*SmsHandler, *smsLogStoreMock) {
	logs := &smsLogStoreMock{}
	svc := service.NewSmsService(&settingsStoreMock{balance: balance}, logs, &gatewayMock{}, nil, validator.New(), zap.NewNop())
	return NewSmsHandler(svc), logs
}

func TestSmsHandlerSendBulkInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSmsHandlerFixture(10)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sms/bulk", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SendBulk(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSmsHandlerSendBulkInsufficientBalance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, logs := newSmsHandlerFixture(1)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.SendBulkRequest{
		Recipients: []string{"017", "018", "019"},
		Message:    "exam postponed",
	})
	req, _ := http.NewRequest(http.MethodPost, "/sms/bulk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.SendBulk(c)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Empty(t, logs.logs)
}

func TestSmsHandlerSendBulkSucceeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, logs := newSmsHandlerFixture(10)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.SendBulkRequest{
		Recipients: []string{"017", "018"},
		Message:    "class at 5pm",
	})
	req, _ := http.NewRequest(http.MethodPost, "/sms/bulk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.SendBulk(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, logs.logs, 2)
	assert.Equal(t, "admin", logs.logs[0].SentBy)
}

func TestSmsHandlerSendTestInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newSmsHandlerFixture(10)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sms/test", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SendTest(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
