package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/service"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/response"
)

// SmsHandler exposes SMS dispatch and audit endpoints.
type SmsHandler struct {
	sms *service.SmsService
}

// NewSmsHandler constructs handler.
func NewSmsHandler(sms *service.SmsService) *SmsHandler {
	return &SmsHandler{sms: sms}
}

type testSmsRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// SendBulk godoc
// @Summary Send one message to many recipients
// @Tags SMS
// @Accept json
// @Produce json
// @Param payload body service.SendBulkRequest true "SMS payload"
// @Success 200 {object} response.Envelope
// @Router /sms/bulk [post]
func (h *SmsHandler) SendBulk(c *gin.Context) {
	var req service.SendBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sms.SendBulk(c.Request.Context(), actorIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SendTest godoc
// @Summary Send a single probe message
// @Tags SMS
// @Accept json
// @Produce json
// @Param payload body testSmsRequest true "Test payload"
// @Success 200 {object} response.Envelope
// @Router /sms/test [post]
func (h *SmsHandler) SendTest(c *gin.Context) {
	var req testSmsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sms.SendTest(c.Request.Context(), actorIDFromContext(c), req.Recipient, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Logs godoc
// @Summary List the SMS audit trail
// @Tags SMS
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by sms type"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sms/logs [get]
func (h *SmsHandler) Logs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	filter := models.SmsLogFilter{
		Status:   c.Query("status"),
		SmsType:  c.Query("type"),
		Page:     page,
		PageSize: pageSize,
	}
	logs, total, err := h.sms.Logs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, models.NewPagination(page, pageSize, total))
}
