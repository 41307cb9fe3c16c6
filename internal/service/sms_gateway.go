package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

// SmsGateway delivers one message to one recipient. Implementations decide
// success or failure; the caller only records the outcome.
type SmsGateway interface {
	Send(ctx context.Context, settings *models.Settings, recipient, message string) error
}

// gatewayResponse is the JSON shape the provider returns on delivery.
type gatewayResponse struct {
	ResponseCode   int    `json:"response_code"`
	SuccessMessage string `json:"success_message"`
	ErrorMessage   string `json:"error_message"`
}

// HTTPSmsGateway talks to the provider over HTTP GET with query parameters.
// The client timeout bounds every send so one slow recipient cannot stall a
// bulk dispatch indefinitely.
type HTTPSmsGateway struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPSmsGateway constructs the gateway client.
func NewHTTPSmsGateway(timeout time.Duration, logger *zap.Logger) *HTTPSmsGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSmsGateway{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send delivers one SMS. Success requires a 2xx status and either a JSON body
// with response_code 202 or a success_message field; plain-text bodies are
// accepted unless they mention an error.
func (g *HTTPSmsGateway) Send(ctx context.Context, settings *models.Settings, recipient, message string) error {
	if settings.SmsAPIURL == nil || *settings.SmsAPIURL == "" {
		return fmt.Errorf("sms gateway url is not configured")
	}

	endpoint, err := url.Parse(*settings.SmsAPIURL)
	if err != nil {
		return fmt.Errorf("parse gateway url: %w", err)
	}

	query := endpoint.Query()
	query.Set("api_key", deref(settings.SmsAPIKey))
	query.Set("type", "text")
	query.Set("number", recipient)
	query.Set("senderid", deref(settings.SmsSenderID))
	query.Set("message", message)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway responded with status %d", resp.StatusCode)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.ResponseCode == 202 || parsed.SuccessMessage != "" {
			return nil
		}
		if parsed.ErrorMessage != "" {
			return fmt.Errorf("gateway rejected message: %s", parsed.ErrorMessage)
		}
		return fmt.Errorf("gateway rejected message: response_code=%d", parsed.ResponseCode)
	}

	// Some providers answer with plain text. Treat the body as delivered
	// unless it mentions an error.
	if strings.Contains(strings.ToLower(string(body)), "error") {
		return fmt.Errorf("gateway rejected message: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
