package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hangryo/baedalgo/internal/pkg/cache"
	"github.com/hangryo/baedalgo/internal/pkg/nats"
)

// HealthChecker defines the interface for health checking dependencies
type HealthChecker interface {
	Name() string
	CheckHealth(ctx context.Context) error
}

// RedisHealthChecker checks Redis connection health
type RedisHealthChecker struct {
	invalidator *cache.RedisInvalidator
}

// NewRedisHealthChecker creates a new Redis health checker
func NewRedisHealthChecker(invalidator *cache.RedisInvalidator) *RedisHealthChecker {
	return &RedisHealthChecker{invalidator: invalidator}
}

// Name returns the dependency name
func (r *RedisHealthChecker) Name() string { return "redis" }

// CheckHealth checks if Redis is healthy
func (r *RedisHealthChecker) CheckHealth(ctx context.Context) error {
	if r.invalidator == nil {
		return nil // Skip if no Redis client
	}
	return r.invalidator.GetClient().Ping(ctx).Err()
}

// NATSHealthChecker checks NATS connection health
type NATSHealthChecker struct {
	client *nats.Client
}

// NewNATSHealthChecker creates a new NATS health checker
func NewNATSHealthChecker(client *nats.Client) *NATSHealthChecker {
	return &NATSHealthChecker{client: client}
}

// Name returns the dependency name
func (n *NATSHealthChecker) Name() string { return "nats" }

// CheckHealth checks if NATS is healthy
func (n *NATSHealthChecker) CheckHealth(ctx context.Context) error {
	if n.client == nil {
		return nil
	}
	if !n.client.IsConnected() {
		return errors.New("nats connection is down")
	}
	return nil
}

// healthResponse is the health endpoint payload
type healthResponse struct {
	Status       string            `json:"status"`
	Channels     map[string]bool   `json:"channels"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health reports channel state and dependency reachability. Degraded
// channels do not fail the endpoint; the process itself is healthy as
// long as it can answer.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	response := healthResponse{
		Status: "ok",
		Channels: map[string]bool{
			"notification_stream": h.notification.Connected(),
			"location_channel":    h.location.Connected(),
		},
		Dependencies: map[string]string{},
	}

	for _, checker := range h.checkers {
		if err := checker.CheckHealth(ctx); err != nil {
			response.Dependencies[checker.Name()] = err.Error()
			response.Status = "degraded"
		} else {
			response.Dependencies[checker.Name()] = "ok"
		}
	}

	return c.JSON(http.StatusOK, response)
}
