package constants

import "time"

// Default realtime endpoints. Both are overridable, first by env config
// and then by an explicit client option.
const (
	DefaultStreamURL = "https://api.baedalgo.com/api/v1/notifications/stream"
	DefaultBrokerURL = "wss://api.baedalgo.com/ws"
)

// Broker destinations. The subscribe topics are parameterized by the
// target identifier (rider/profile id); the publish destination is fixed.
const (
	TopicLocationPrefix       = "/topic/rider/location/"
	TopicNotificationPrefix   = "/topic/rider/notification/"
	DefaultPublishDestination = "/app/location"
)

// Connection headers
const (
	HeaderAuthorization = "Authorization"
	HeaderDeviceID      = "X-Device-Id"
)

// Timing policy for the realtime channels
const (
	// StreamIdleTimeout forces the event stream to reopen when no frame
	// arrives for this long (half-open detection for the SSE channel).
	StreamIdleTimeout = 60 * time.Second

	// BrokerHeartbeat is the negotiated STOMP heart-beat interval, both
	// incoming and outgoing.
	BrokerHeartbeat = 10 * time.Second

	// BrokerReconnectDelay is the fixed delay before redialing the broker
	// after a dropped session.
	BrokerReconnectDelay = 3 * time.Second
)

// EventBufferCapacity caps the recent-notification buffer, newest first.
const EventBufferCapacity = 50

// Cache keys invalidated when a notification arrives and the caller
// opted into auto-invalidation.
const (
	CacheKeyNotificationPrefix = "notifications"
	CacheKeyUnreadCount        = "notifications:unread-count"
)
