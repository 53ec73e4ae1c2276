package realtime

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	sse "github.com/r3labs/sse/v2"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"github.com/hangryo/baedalgo/internal/pkg/cache"
	"github.com/hangryo/baedalgo/internal/pkg/constants"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
	"github.com/hangryo/baedalgo/internal/pkg/models"
)

// NotificationStreamClient maintains at most one server-push event
// stream per device id and keeps a bounded newest-first buffer of the
// events received on it. Reconnection is owned by the SSE transport
// (exponential backoff); a 60s idle watchdog forces a reopen when the
// stream goes half-open.
type NotificationStreamClient struct {
	creds       CredentialSupplier
	streamURL   string
	httpClient  *http.Client
	onEvent     NotificationHandler
	invalidator cache.Invalidator

	supervisor *Supervisor

	mu        sync.RWMutex
	connected bool
	events    []models.NotificationEvent
	targetID  string
	cancel    context.CancelFunc
}

// NewNotificationStreamClient creates a stream client. The credential
// supplier is consulted on every connection attempt, never cached.
func NewNotificationStreamClient(creds CredentialSupplier, opts ...NotificationOption) *NotificationStreamClient {
	client := &NotificationStreamClient{
		creds:      creds,
		streamURL:  constants.DefaultStreamURL,
		supervisor: NewSupervisor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Start opens the event stream for targetID. A missing id is a silent
// no-op. Calling Start again with the same id while the stream is live
// or still being established does not open a second stream; a different
// id tears the previous stream down first.
func (c *NotificationStreamClient) Start(targetID string) {
	if targetID == "" {
		logger.Debug("notification stream start skipped, no device id")
		return
	}

	c.mu.RLock()
	current := c.targetID
	c.mu.RUnlock()
	if c.supervisor.Active() {
		if current == targetID {
			return
		}
		c.Stop()
	}

	if !c.supervisor.Begin() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.targetID = targetID
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx, targetID)
}

// Stop closes the stream. Safe to call multiple times and in any
// connection state.
func (c *NotificationStreamClient) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.connected = false
	c.targetID = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.supervisor.Release()
}

// Connected reports whether the stream is currently open
func (c *NotificationStreamClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// GetEvents returns a snapshot of the recent-event buffer, newest first
func (c *NotificationStreamClient) GetEvents() []models.NotificationEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make([]models.NotificationEvent, len(c.events))
	copy(snapshot, c.events)
	return snapshot
}

func (c *NotificationStreamClient) run(ctx context.Context, targetID string) {
	stream := sse.NewClient(c.streamURL)

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	connection := *httpClient
	connection.Transport = &authTransport{
		creds:    c.creds,
		deviceID: targetID,
		base:     httpClient.Transport,
	}
	stream.Connection = &connection

	stream.OnConnect(func(_ *sse.Client) {
		c.setConnected(ctx, true)
		logger.Info("notification stream connected",
			logger.String("device_id", targetID))
	})
	stream.OnDisconnect(func(_ *sse.Client) {
		c.setConnected(ctx, false)
	})

	// Bound the transport's own retry loop to the client lifetime so
	// Stop does not leave a reconnect goroutine behind.
	stream.ReconnectStrategy = backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	for {
		// The watchdog reopens a stream that went silent: no frame for
		// StreamIdleTimeout cancels this subscribe and loops around.
		streamCtx, cancelStream := context.WithCancel(ctx)
		watchdog := time.AfterFunc(constants.StreamIdleTimeout, cancelStream)

		err := stream.SubscribeRawWithContext(streamCtx, func(msg *sse.Event) {
			watchdog.Reset(constants.StreamIdleTimeout)
			c.ingest(msg.Data)
		})

		watchdog.Stop()
		cancelStream()
		c.setConnected(ctx, false)

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("notification stream closed",
				logger.String("device_id", targetID),
				logger.Err(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// ingest handles one inbound frame. Malformed frames are dropped
// without touching connection state or the buffer.
func (c *NotificationStreamClient) ingest(data []byte) {
	if len(bytes.TrimSpace(data)) == 0 {
		// keep-alive frame
		return
	}

	event, err := models.DecodeNotificationEvent(data)
	if err != nil {
		logger.Warn("dropping malformed notification frame", logger.Err(err))
		return
	}

	c.mu.Lock()
	c.events = append([]models.NotificationEvent{*event}, c.events...)
	if len(c.events) > constants.EventBufferCapacity {
		c.events = c.events[:constants.EventBufferCapacity]
	}
	handler := c.onEvent
	invalidator := c.invalidator
	c.mu.Unlock()

	if handler != nil {
		handler(event)
	}
	if invalidator != nil {
		go invalidate(invalidator)
	}
}

// invalidate is best-effort: failures only cost cache freshness
func invalidate(invalidator cache.Invalidator) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := invalidator.InvalidatePrefix(ctx, constants.CacheKeyNotificationPrefix); err != nil {
		logger.Debug("notification cache invalidation failed", logger.Err(err))
	}
	if err := invalidator.Invalidate(ctx, constants.CacheKeyUnreadCount); err != nil {
		logger.Debug("unread-count invalidation failed", logger.Err(err))
	}
}

// setConnected is called from run goroutines; once a run's context is
// cancelled its writes are dropped, so a stale goroutine winding down
// cannot clobber the state of a stream started after it.
func (c *NotificationStreamClient) setConnected(ctx context.Context, connected bool) {
	c.mu.Lock()
	if ctx.Err() == nil {
		c.connected = connected
	}
	c.mu.Unlock()
}
