package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hangryo/baedalgo/internal/pkg/stomp"
)

// Subscription ids for the two broadcast topics a session holds
const (
	subIDLocation     = "sub-0"
	subIDNotification = "sub-1"
)

// frameWriter publishes one STOMP frame to the broker
type frameWriter interface {
	WriteFrame(f *stomp.Frame) error
}

// channelSession owns the live broker connection. At most one exists
// per client; reconnecting always builds a fresh session.
type channelSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// WriteFrame sends a frame as a single WebSocket text message
func (s *channelSession) WriteFrame(f *stomp.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, stomp.Marshal(f))
}

// writeHeartbeat sends a STOMP heart-beat frame
func (s *channelSession) writeHeartbeat() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, stomp.Heartbeat())
}

// Close tears the transport connection down
func (s *channelSession) Close() error {
	return s.conn.Close()
}
