package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hangryo/baedalgo/services/realtime"
)

type noCreds struct{}

func (noCreds) Token() (string, bool) { return "", false }

func newTestHandler() *Handler {
	notification := realtime.NewNotificationStreamClient(noCreds{})
	location := realtime.NewLocationChannelClient(noCreds{}, "42")
	return NewHandler(notification, location)
}

func TestStatusReportsDisconnectedChannels(t *testing.T) {
	e := echo.New()
	handler := newTestHandler()
	handler.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/realtime/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["stream_connected"])
	assert.Equal(t, false, body["channel_connected"])
	assert.Nil(t, body["last_location"])
}

func TestNotificationsReturnsBufferSnapshot(t *testing.T) {
	e := echo.New()
	handler := newTestHandler()
	handler.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/realtime/notifications", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthWithoutDependencies(t *testing.T) {
	e := echo.New()
	handler := newTestHandler()
	handler.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
