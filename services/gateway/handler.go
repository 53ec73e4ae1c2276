package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hangryo/baedalgo/internal/pkg/models"
	"github.com/hangryo/baedalgo/services/realtime"
)

// Handler exposes the realtime clients' state over HTTP
type Handler struct {
	notification *realtime.NotificationStreamClient
	location     *realtime.LocationChannelClient
	checkers     []HealthChecker
}

// NewHandler creates the gateway HTTP handler
func NewHandler(
	notification *realtime.NotificationStreamClient,
	location *realtime.LocationChannelClient,
	checkers ...HealthChecker,
) *Handler {
	return &Handler{
		notification: notification,
		location:     location,
		checkers:     checkers,
	}
}

// RegisterRoutes attaches the gateway routes to the echo instance
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/realtime/status", h.Status)
	e.GET("/realtime/notifications", h.Notifications)
}

// statusResponse is the realtime channel status payload
type statusResponse struct {
	StreamConnected  bool                   `json:"stream_connected"`
	ChannelConnected bool                   `json:"channel_connected"`
	LastLocation     *models.LocationUpdate `json:"last_location"`
}

// Status reports both channels' connected flags and the last known
// rider position
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		StreamConnected:  h.notification.Connected(),
		ChannelConnected: h.location.Connected(),
		LastLocation:     h.location.LastLocation(),
	})
}

// Notifications returns the recent-event buffer, newest first
func (h *Handler) Notifications(c echo.Context) error {
	return c.JSON(http.StatusOK, h.notification.GetEvents())
}
