// Package realtime implements the two long-lived channel clients of the
// rider app: a server-push notification stream and a bidirectional
// location channel over the message broker. Both clients absorb
// transport, protocol and decode failures; the only caller-observable
// signals are the connected flag, the buffered events and the last
// received location.
package realtime

import "github.com/hangryo/baedalgo/internal/pkg/models"

// CredentialSupplier hands out the current bearer token. It is read
// fresh at every connection attempt and every outbound publish because
// the token may rotate mid-session. ok is false when no token is
// available, in which case the clients connect anonymously.
type CredentialSupplier interface {
	Token() (token string, ok bool)
}

// NotificationHandler receives each decoded notification event
type NotificationHandler func(event *models.NotificationEvent)

// LocationHandler receives each decoded inbound location update
type LocationHandler func(update *models.LocationUpdate)

// TopicFunc computes a broker subscription topic from the target
// identifier, letting callers override the default topic layout.
type TopicFunc func(targetID string) string
