package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

func gatewaySettings(url string) *models.Settings {
	return &models.Settings{
		SmsAPIKey:   strPtr("key"),
		SmsAPIURL:   strPtr(url),
		SmsSenderID: strPtr("COACH"),
	}
}

func TestGatewayAcceptsResponseCode202(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "text", r.URL.Query().Get("type"))
		assert.Equal(t, "01711111111", r.URL.Query().Get("number"))
		w.Write([]byte(`{"response_code": 202}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	err := gateway.Send(context.Background(), gatewaySettings(server.URL), "01711111111", "hello")
	require.NoError(t, err)
}

func TestGatewayAcceptsSuccessMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success_message": "SMS Submitted Successfully"}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	err := gateway.Send(context.Background(), gatewaySettings(server.URL), "017", "hello")
	require.NoError(t, err)
}

func TestGatewayRejectsErrorJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code": 1002, "error_message": "invalid number"}`)) //nolint:errcheck
	}))
	defer server.Close()

	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	err := gateway.Send(context.Background(), gatewaySettings(server.URL), "017", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number")
}

func TestGatewayPlainTextHeuristic(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("SMS Sent Successfully")) //nolint:errcheck
	}))
	defer okServer.Close()

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Error: account suspended")) //nolint:errcheck
	}))
	defer badServer.Close()

	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	require.NoError(t, gateway.Send(context.Background(), gatewaySettings(okServer.URL), "017", "hello"))
	require.Error(t, gateway.Send(context.Background(), gatewaySettings(badServer.URL), "017", "hello"))
}

func TestGatewayRejectsNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	err := gateway.Send(context.Background(), gatewaySettings(server.URL), "017", "hello")
	require.Error(t, err)
}

func TestGatewayRequiresURL(t *testing.T) {
	gateway := NewHTTPSmsGateway(time.Second, zap.NewNop())
	err := gateway.Send(context.Background(), &models.Settings{SmsAPIKey: strPtr("key")}, "017", "hello")
	require.Error(t, err)
}
