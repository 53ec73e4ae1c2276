package realtime

import (
	"net/http"

	"github.com/hangryo/baedalgo/internal/pkg/cache"
)

// NotificationOption configures a NotificationStreamClient
type NotificationOption func(*NotificationStreamClient)

// WithStreamURL overrides the notification stream endpoint
func WithStreamURL(url string) NotificationOption {
	return func(c *NotificationStreamClient) {
		if url != "" {
			c.streamURL = url
		}
	}
}

// WithEventHandler registers a callback invoked for every decoded event
func WithEventHandler(handler NotificationHandler) NotificationOption {
	return func(c *NotificationStreamClient) {
		c.onEvent = handler
	}
}

// WithInvalidator opts into cache auto-invalidation: every received
// notification invalidates the notification-domain cache entries plus
// the unread-count key.
func WithInvalidator(invalidator cache.Invalidator) NotificationOption {
	return func(c *NotificationStreamClient) {
		c.invalidator = invalidator
	}
}

// WithStreamHTTPClient overrides the HTTP client the stream rides on.
// Its transport is still wrapped with credential injection.
func WithStreamHTTPClient(client *http.Client) NotificationOption {
	return func(c *NotificationStreamClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// LocationOption configures a LocationChannelClient
type LocationOption func(*LocationChannelClient)

// WithBrokerURL overrides the broker endpoint. Precedence over the
// env-configured base URL and the hardcoded default.
func WithBrokerURL(url string) LocationOption {
	return func(c *LocationChannelClient) {
		if url != "" {
			c.brokerURL = url
		}
	}
}

// WithLocationTopic overrides how the location-broadcast topic is
// derived from the target id
func WithLocationTopic(fn TopicFunc) LocationOption {
	return func(c *LocationChannelClient) {
		if fn != nil {
			c.locationTopic = fn
		}
	}
}

// WithNotificationTopic overrides how the notification-broadcast topic
// is derived from the target id
func WithNotificationTopic(fn TopicFunc) LocationOption {
	return func(c *LocationChannelClient) {
		if fn != nil {
			c.notificationTopic = fn
		}
	}
}

// WithPublishDestination overrides the outbound location destination
func WithPublishDestination(destination string) LocationOption {
	return func(c *LocationChannelClient) {
		if destination != "" {
			c.publishDestination = destination
		}
	}
}

// WithLocationHandler registers a callback for inbound location frames
func WithLocationHandler(handler LocationHandler) LocationOption {
	return func(c *LocationChannelClient) {
		c.onLocation = handler
	}
}

// WithChannelNotificationHandler registers a callback for notification
// frames arriving on the broker channel
func WithChannelNotificationHandler(handler NotificationHandler) LocationOption {
	return func(c *LocationChannelClient) {
		c.onNotification = handler
	}
}
