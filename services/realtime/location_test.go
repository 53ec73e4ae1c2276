package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hangryo/baedalgo/internal/pkg/models"
	"github.com/hangryo/baedalgo/internal/pkg/stomp"
	"github.com/hangryo/baedalgo/services/realtime/mocks"
)

// fakeFrameWriter counts outbound frames instead of hitting a broker
type fakeFrameWriter struct {
	mu     sync.Mutex
	frames []*stomp.Frame
}

func (f *fakeFrameWriter) WriteFrame(frame *stomp.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeFrameWriter) sent() []*stomp.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*stomp.Frame(nil), f.frames...)
}

func TestDefaultSubscriptionTopics(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")

	assert.Equal(t, "/topic/rider/location/42", client.locationTopic("42"))
	assert.Equal(t, "/topic/rider/notification/42", client.notificationTopic("42"))
	assert.Equal(t, "/app/location", client.publishDestination)
}

func TestTopicOverrides(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
		WithLocationTopic(func(id string) string { return "/custom/loc/" + id }),
		WithNotificationTopic(func(id string) string { return "/custom/notif/" + id }),
		WithPublishDestination("/custom/out"),
	)

	assert.Equal(t, "/custom/loc/42", client.locationTopic("42"))
	assert.Equal(t, "/custom/notif/42", client.notificationTopic("42"))
	assert.Equal(t, "/custom/out", client.publishDestination)
}

func TestSendLocationWhileDisconnectedIsDropped(t *testing.T) {
	writer := &fakeFrameWriter{}
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	client.session = writer // session present but not connected

	client.SendLocation(models.LocationUpdate{Latitude: 1, Longitude: 2})

	assert.Empty(t, writer.sent(), "publish while disconnected must be a no-op")
}

func TestSendLocationPublishesFrame(t *testing.T) {
	writer := &fakeFrameWriter{}
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	client.session = writer
	client.connected = true

	client.SendLocation(models.LocationUpdate{
		Latitude:  37.5,
		Longitude: 127.0,
		Timestamp: 1700000000000,
	})

	frames := writer.sent()
	require.Len(t, frames, 1)
	frame := frames[0]
	assert.Equal(t, stomp.CommandSend, frame.Command)
	assert.Equal(t, "/app/location", frame.Header(stomp.HeaderDestination))
	assert.Equal(t, "application/json", frame.Header(stomp.HeaderContentType))
	assert.Equal(t, "Bearer tok", frame.Header("Authorization"))
	assert.JSONEq(t, `{"latitude":37.5,"longitude":127,"timestamp":1700000000000}`, string(frame.Body))
}

func TestSendLocationDefaultsTimestamp(t *testing.T) {
	writer := &fakeFrameWriter{}
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	client.session = writer
	client.connected = true

	before := time.Now().UnixMilli()
	client.SendLocation(models.LocationUpdate{Latitude: 1, Longitude: 2})

	frames := writer.sent()
	require.Len(t, frames, 1)
	update, err := models.DecodeLocationUpdate(frames[0].Body)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, update.Timestamp, before)
}

func TestSendLocationRejectsNonFiniteCoordinates(t *testing.T) {
	writer := &fakeFrameWriter{}
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	client.session = writer
	client.connected = true

	nan := 0.0
	nan = nan / nan
	client.SendLocation(models.LocationUpdate{Latitude: nan, Longitude: 2})

	assert.Empty(t, writer.sent())
}

func TestInboundLocationFrameEnvelopedAndBareAreEquivalent(t *testing.T) {
	enveloped := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	bare := NewLocationChannelClient(staticCreds{token: "tok"}, "42")

	enveloped.handleLocationFrame([]byte(`{"content":{"latitude":1,"longitude":2}}`))
	bare.handleLocationFrame([]byte(`{"latitude":1,"longitude":2}`))

	require.NotNil(t, enveloped.LastLocation())
	assert.Equal(t, enveloped.LastLocation(), bare.LastLocation())
	assert.Equal(t, 1.0, bare.LastLocation().Latitude)
	assert.Equal(t, 2.0, bare.LastLocation().Longitude)
}

func TestMalformedInboundLocationFrameIsDropped(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")
	client.handleLocationFrame([]byte(`{"latitude":3,"longitude":4}`))

	client.handleLocationFrame([]byte(`{"latitude":"not-a-number","longitude":2}`))
	client.handleLocationFrame([]byte(`{not json`))
	client.handleLocationFrame([]byte(`{"latitude":1}`))

	last := client.LastLocation()
	require.NotNil(t, last)
	assert.Equal(t, 3.0, last.Latitude, "malformed frames must not overwrite lastLocation")
	assert.False(t, client.Connected(), "decode failures must not flip connection state")
}

func TestInboundNotificationFrameForwarded(t *testing.T) {
	var received []*models.NotificationEvent
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
		WithChannelNotificationHandler(func(event *models.NotificationEvent) {
			received = append(received, event)
		}),
	)

	frame := stomp.NewFrame(stomp.CommandMessage, stomp.HeaderSubscription, subIDNotification)
	frame.Body = []byte(`{"content":{"id":"n1","type":"ORDER","message":"arrived"}}`)
	require.NoError(t, client.handleFrame(frame))

	require.Len(t, received, 1)
	assert.Equal(t, "arrived", received[0].Message)
}

func TestBrokerErrorFrameEndsSession(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")

	frame := stomp.NewFrame(stomp.CommandError, stomp.HeaderMessage, "bad credentials")
	err := client.handleFrame(frame)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestConnectFrameCarriesTokenAndHeartbeat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	creds := mocks.NewMockCredentialSupplier(ctrl)
	creds.EXPECT().Token().Return("tok-1", true).Times(2)

	client := NewLocationChannelClient(creds, "42", WithBrokerURL("wss://broker.example.com/ws"))

	// Dual delivery: upgrade-request header and CONNECT frame header
	header := client.handshakeHeader()
	assert.Equal(t, "Bearer tok-1", header.Get("Authorization"))

	frame := client.connectFrame()
	assert.Equal(t, stomp.CommandConnect, frame.Command)
	assert.Equal(t, "1.2", frame.Header(stomp.HeaderAcceptVersion))
	assert.Equal(t, "10000,10000", frame.Header(stomp.HeaderHeartBeat))
	assert.Equal(t, "broker.example.com", frame.Header(stomp.HeaderHost))
	assert.Equal(t, "Bearer tok-1", frame.Header("Authorization"))
}

func TestAnonymousNegotiationOmitsAuthorization(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	creds := mocks.NewMockCredentialSupplier(ctrl)
	creds.EXPECT().Token().Return("", false).Times(2)

	client := NewLocationChannelClient(creds, "42")

	header := client.handshakeHeader()
	_, hasAuth := header["Authorization"]
	assert.False(t, hasAuth)

	frame := client.connectFrame()
	_, hasAuth = frame.Headers["Authorization"]
	assert.False(t, hasAuth)
}

func TestConnectWithoutTargetIDIsNoop(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "")

	client.Connect()

	assert.False(t, client.supervisor.Active())
	assert.False(t, client.Connected())
}

func TestDisconnectImmediatelyAfterConnect(t *testing.T) {
	server := newBrokerTestServer(t, nil)

	// Disconnect landing between the dial returning and the session
	// being installed must still leave the client torn down.
	for i := 0; i < 20; i++ {
		client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
			WithBrokerURL(server.wsURL()))

		client.Connect()
		client.Disconnect()

		assert.Never(t, client.Connected, 50*time.Millisecond, 5*time.Millisecond,
			"client must not report connected after Disconnect returned")
		assert.False(t, client.supervisor.Active())
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42")

	client.Disconnect()
	client.Disconnect()

	assert.False(t, client.Connected())
}

// brokerTestServer fakes the STOMP-over-WebSocket broker
type brokerTestServer struct {
	*httptest.Server
	upgrader      websocket.Upgrader
	subscriptions chan string
	sends         chan *stomp.Frame
}

func newBrokerTestServer(t *testing.T, push func(conn *websocket.Conn, subscribed int)) *brokerTestServer {
	t.Helper()
	server := &brokerTestServer{
		subscriptions: make(chan string, 8),
		sends:         make(chan *stomp.Frame, 8),
	}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := server.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		subscribed := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if stomp.IsHeartbeat(data) {
				continue
			}
			frame, err := stomp.Parse(data)
			if err != nil {
				return
			}
			switch frame.Command {
			case stomp.CommandConnect:
				connected := stomp.NewFrame(stomp.CommandConnected,
					stomp.HeaderVersion, "1.2",
					stomp.HeaderHeartBeat, "10000,10000",
				)
				if err := conn.WriteMessage(websocket.TextMessage, stomp.Marshal(connected)); err != nil {
					return
				}
			case stomp.CommandSubscribe:
				server.subscriptions <- frame.Header(stomp.HeaderDestination)
				subscribed++
				if push != nil {
					push(conn, subscribed)
				}
			case stomp.CommandSend:
				server.sends <- frame
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func (s *brokerTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestConnectNegotiatesSubscribesAndRoutes(t *testing.T) {
	server := newBrokerTestServer(t, func(conn *websocket.Conn, subscribed int) {
		if subscribed != 2 {
			return
		}
		message := stomp.NewFrame(stomp.CommandMessage,
			stomp.HeaderSubscription, subIDLocation,
			stomp.HeaderDestination, "/topic/rider/location/42",
		)
		message.Body = []byte(`{"latitude":37.5,"longitude":127.0,"timestamp":1700000000000}`)
		_ = conn.WriteMessage(websocket.TextMessage, stomp.Marshal(message))
	})

	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
		WithBrokerURL(server.wsURL()))
	defer client.Disconnect()

	client.Connect()

	require.Eventually(t, client.Connected, 3*time.Second, 10*time.Millisecond)

	destinations := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case dest := <-server.subscriptions:
			destinations[dest] = true
		case <-time.After(3 * time.Second):
			t.Fatal("missing SUBSCRIBE frame")
		}
	}
	assert.True(t, destinations["/topic/rider/location/42"])
	assert.True(t, destinations["/topic/rider/notification/42"])

	require.Eventually(t, func() bool {
		return client.LastLocation() != nil
	}, 3*time.Second, 10*time.Millisecond)

	last := client.LastLocation()
	assert.Equal(t, 37.5, last.Latitude)
	assert.Equal(t, 127.0, last.Longitude)
	assert.Equal(t, int64(1700000000000), last.Timestamp)
}

func TestConnectIsIdempotentWhileConnected(t *testing.T) {
	server := newBrokerTestServer(t, nil)

	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
		WithBrokerURL(server.wsURL()))
	defer client.Disconnect()

	client.Connect()
	require.Eventually(t, client.Connected, 3*time.Second, 10*time.Millisecond)

	client.Connect()
	client.Connect()

	// Only the first Connect owns a session: two subscriptions total
	subscriptionCount := 0
	timeout := time.After(500 * time.Millisecond)
	for done := false; !done; {
		select {
		case <-server.subscriptions:
			subscriptionCount++
		case <-timeout:
			done = true
		}
	}
	assert.Equal(t, 2, subscriptionCount)
}

func TestSendLocationReachesBroker(t *testing.T) {
	server := newBrokerTestServer(t, nil)

	client := NewLocationChannelClient(staticCreds{token: "tok"}, "42",
		WithBrokerURL(server.wsURL()))
	defer client.Disconnect()

	client.Connect()
	require.Eventually(t, client.Connected, 3*time.Second, 10*time.Millisecond)

	client.SendLocation(models.LocationUpdate{Latitude: 37.5, Longitude: 127.0, Timestamp: 1700000000000})

	select {
	case frame := <-server.sends:
		assert.Equal(t, "/app/location", frame.Header(stomp.HeaderDestination))
		assert.JSONEq(t, `{"latitude":37.5,"longitude":127,"timestamp":1700000000000}`, string(frame.Body))
	case <-time.After(3 * time.Second):
		t.Fatal("SEND frame never reached the broker")
	}
}
