package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hangryo/baedalgo/internal/pkg/constants"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
	"github.com/hangryo/baedalgo/internal/pkg/models"
	"github.com/hangryo/baedalgo/internal/pkg/stomp"
)

// LocationChannelClient maintains a bidirectional broker session keyed
// by a target identifier. It subscribes to the target's location and
// notification broadcast topics, relays inbound frames to the caller's
// handlers, and publishes this device's own position. State machine:
// Disconnected -> Connecting -> Connected -> Disconnected; after a
// dropped session the client redials on a fixed delay until
// Disconnect is called.
type LocationChannelClient struct {
	creds    CredentialSupplier
	targetID string

	brokerURL          string
	locationTopic      TopicFunc
	notificationTopic  TopicFunc
	publishDestination string
	onLocation         LocationHandler
	onNotification     NotificationHandler

	supervisor *Supervisor

	mu           sync.RWMutex
	connected    bool
	lastLocation *models.LocationUpdate
	session      frameWriter
	cancel       context.CancelFunc
}

// NewLocationChannelClient creates a channel client for targetID (the
// rider/profile id parameterizing the subscription topics). The client
// does not watch for id changes; reconnecting under a new id is the
// caller's responsibility (tear down, build a new client).
func NewLocationChannelClient(creds CredentialSupplier, targetID string, opts ...LocationOption) *LocationChannelClient {
	client := &LocationChannelClient{
		creds:              creds,
		targetID:           targetID,
		brokerURL:          constants.DefaultBrokerURL,
		locationTopic:      defaultLocationTopic,
		notificationTopic:  defaultNotificationTopic,
		publishDestination: constants.DefaultPublishDestination,
		supervisor:         NewSupervisor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func defaultLocationTopic(targetID string) string {
	return constants.TopicLocationPrefix + targetID
}

func defaultNotificationTopic(targetID string) string {
	return constants.TopicNotificationPrefix + targetID
}

// Connect establishes the broker session. No-op when already connected
// or still connecting; an empty target id is a silent no-op. The call
// returns immediately, success is observed through Connected.
func (c *LocationChannelClient) Connect() {
	if c.targetID == "" {
		logger.Debug("location channel connect skipped, no target id")
		return
	}
	if !c.supervisor.Begin() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
}

// Disconnect deactivates the session. Safe to call repeatedly and when
// no session was ever established. The last received location is kept
// so callers degrade to last-known state.
func (c *LocationChannelClient) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	sess := c.session
	c.session = nil
	c.connected = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer, ok := sess.(io.Closer); ok {
		_ = closer.Close()
	}
	c.supervisor.Release()
}

// Connected reports whether a broker session is currently established
func (c *LocationChannelClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastLocation returns a copy of the most recently received inbound
// location, or nil when none arrived yet. Last-write-wins; no history.
func (c *LocationChannelClient) LastLocation() *models.LocationUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastLocation == nil {
		return nil
	}
	last := *c.lastLocation
	return &last
}

// SendLocation publishes this device's position. Silently dropped when
// the channel is not connected; callers gate on Connected or accept
// best-effort delivery. A zero timestamp defaults to the current time.
func (c *LocationChannelClient) SendLocation(update models.LocationUpdate) {
	c.mu.RLock()
	connected := c.connected
	sess := c.session
	c.mu.RUnlock()

	if !connected || sess == nil {
		logger.Debug("dropping outbound location, channel not connected")
		return
	}
	if err := update.Validate(); err != nil {
		logger.Warn("dropping outbound location", logger.Err(err))
		return
	}
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}

	body, err := json.Marshal(update)
	if err != nil {
		logger.Warn("failed to encode outbound location", logger.Err(err))
		return
	}

	frame := stomp.NewFrame(stomp.CommandSend,
		stomp.HeaderDestination, c.publishDestination,
		stomp.HeaderContentType, "application/json",
	)
	// Token is read fresh at publish time, it may have rotated since connect
	if token, ok := c.creds.Token(); ok {
		frame.Headers[constants.HeaderAuthorization] = "Bearer " + token
	}
	frame.Body = body

	if err := sess.WriteFrame(frame); err != nil {
		logger.Warn("failed to publish location update", logger.Err(err))
	}
}

// run owns the session lifecycle: dial, pump frames, and on failure
// redial after a fixed delay until the context is cancelled.
func (c *LocationChannelClient) run(ctx context.Context) {
	for {
		sess, err := c.dial(ctx)
		if err != nil {
			logger.Warn("location channel connect failed",
				logger.String("target_id", c.targetID),
				logger.Err(err))
		} else {
			// Disconnect may have raced the dial; never install a
			// session on a dead context.
			c.mu.Lock()
			if ctx.Err() != nil {
				c.mu.Unlock()
				_ = sess.Close()
				return
			}
			c.session = sess
			c.connected = true
			c.mu.Unlock()
			logger.Info("location channel connected",
				logger.String("target_id", c.targetID))

			err = c.readLoop(ctx, sess)

			c.mu.Lock()
			if c.session == sess {
				c.connected = false
				c.session = nil
			}
			c.mu.Unlock()
			_ = sess.Close()

			if ctx.Err() == nil {
				logger.Warn("location channel dropped",
					logger.String("target_id", c.targetID),
					logger.Err(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(constants.BrokerReconnectDelay):
		}
	}
}

// dial upgrades the transport and negotiates the STOMP session:
// CONNECT, await CONNECTED, then subscribe to both broadcast topics.
func (c *LocationChannelClient) dial(ctx context.Context) (*channelSession, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.brokerURL, c.handshakeHeader())
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	sess := &channelSession{conn: conn}

	if err := sess.WriteFrame(c.connectFrame()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send CONNECT: %w", err)
	}

	if err := awaitConnected(conn); err != nil {
		conn.Close()
		return nil, err
	}

	subscribes := []*stomp.Frame{
		stomp.NewFrame(stomp.CommandSubscribe,
			stomp.HeaderID, subIDLocation,
			stomp.HeaderDestination, c.locationTopic(c.targetID),
			stomp.HeaderAck, "auto",
		),
		stomp.NewFrame(stomp.CommandSubscribe,
			stomp.HeaderID, subIDNotification,
			stomp.HeaderDestination, c.notificationTopic(c.targetID),
			stomp.HeaderAck, "auto",
		),
	}
	for _, frame := range subscribes {
		if err := sess.WriteFrame(frame); err != nil {
			conn.Close()
			return nil, fmt.Errorf("send SUBSCRIBE: %w", err)
		}
	}

	return sess, nil
}

// handshakeHeader builds the upgrade-request headers. A missing token
// is a warning, not a failure: the session is negotiated anonymously
// and authorization is left to the server.
func (c *LocationChannelClient) handshakeHeader() http.Header {
	header := http.Header{}
	if token, ok := c.creds.Token(); ok {
		header.Set(constants.HeaderAuthorization, "Bearer "+token)
	} else {
		logger.Warn("no bearer token available, negotiating broker session anonymously",
			logger.String("target_id", c.targetID))
	}
	return header
}

// connectFrame builds the CONNECT frame. The bearer token rides here a
// second time because some server-side validation paths inspect the
// STOMP headers rather than the upgrade request.
func (c *LocationChannelClient) connectFrame() *stomp.Frame {
	heartbeatMs := constants.BrokerHeartbeat.Milliseconds()
	frame := stomp.NewFrame(stomp.CommandConnect,
		stomp.HeaderAcceptVersion, "1.2",
		stomp.HeaderHeartBeat, fmt.Sprintf("%d,%d", heartbeatMs, heartbeatMs),
	)
	if u, err := url.Parse(c.brokerURL); err == nil && u.Host != "" {
		frame.Headers[stomp.HeaderHost] = u.Host
	}
	if token, ok := c.creds.Token(); ok {
		frame.Headers[constants.HeaderAuthorization] = "Bearer " + token
	}
	return frame
}

// awaitConnected reads until the broker acknowledges the session
func awaitConnected(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(constants.BrokerHeartbeat))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		if stomp.IsHeartbeat(data) {
			continue
		}
		frame, err := stomp.Parse(data)
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		switch frame.Command {
		case stomp.CommandConnected:
			return nil
		case stomp.CommandError:
			return fmt.Errorf("broker rejected session: %s", frame.Header(stomp.HeaderMessage))
		}
	}
}

// readLoop pumps inbound frames until the transport fails or the
// context is cancelled. It also drives the outgoing heart-beats.
func (c *LocationChannelClient) readLoop(ctx context.Context, sess *channelSession) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(constants.BrokerHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sess.writeHeartbeat(); err != nil {
					return
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		// Two missed incoming heart-beats mean the connection is half-open
		_ = sess.conn.SetReadDeadline(time.Now().Add(2 * constants.BrokerHeartbeat))
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return err
		}
		if stomp.IsHeartbeat(data) {
			continue
		}

		frame, err := stomp.Parse(data)
		if err != nil {
			logger.Warn("dropping unparseable broker frame", logger.Err(err))
			continue
		}
		if err := c.handleFrame(frame); err != nil {
			return err
		}
	}
}

// handleFrame routes one broker frame. Only broker-level ERROR frames
// end the session; everything else is handled or dropped in place.
func (c *LocationChannelClient) handleFrame(frame *stomp.Frame) error {
	switch frame.Command {
	case stomp.CommandMessage:
		c.routeMessage(frame)
		return nil
	case stomp.CommandError:
		return fmt.Errorf("broker error: %s", frame.Header(stomp.HeaderMessage))
	case stomp.CommandReceipt:
		return nil
	default:
		logger.Debug("ignoring unhandled broker frame",
			logger.String("command", string(frame.Command)))
		return nil
	}
}

func (c *LocationChannelClient) routeMessage(frame *stomp.Frame) {
	sub := frame.Header(stomp.HeaderSubscription)
	dest := frame.Header(stomp.HeaderDestination)

	switch {
	case sub == subIDLocation || (sub == "" && dest == c.locationTopic(c.targetID)):
		c.handleLocationFrame(frame.Body)
	case sub == subIDNotification || (sub == "" && dest == c.notificationTopic(c.targetID)):
		c.handleNotificationFrame(frame.Body)
	default:
		logger.Debug("unroutable message frame",
			logger.String("subscription", sub),
			logger.String("destination", dest))
	}
}

// handleLocationFrame overwrites the last known location; malformed
// frames are dropped without touching it.
func (c *LocationChannelClient) handleLocationFrame(body []byte) {
	update, err := models.DecodeLocationUpdate(body)
	if err != nil {
		logger.Warn("dropping malformed location frame", logger.Err(err))
		return
	}

	c.mu.Lock()
	c.lastLocation = update
	handler := c.onLocation
	c.mu.Unlock()

	if handler != nil {
		handler(update)
	}
}

func (c *LocationChannelClient) handleNotificationFrame(body []byte) {
	event, err := models.DecodeNotificationEvent(body)
	if err != nil {
		logger.Warn("dropping malformed channel notification", logger.Err(err))
		return
	}

	c.mu.RLock()
	handler := c.onNotification
	c.mu.RUnlock()

	if handler != nil {
		handler(event)
	}
}
