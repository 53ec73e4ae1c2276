package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalConnectFrame(t *testing.T) {
	frame := NewFrame(CommandConnect,
		HeaderAcceptVersion, "1.2",
		HeaderHeartBeat, "10000,10000",
	)

	got := Marshal(frame)

	expected := "CONNECT\naccept-version:1.2\nheart-beat:10000,10000\n\n\x00"
	assert.Equal(t, expected, string(got))
}

func TestMarshalSendFrameAddsContentLength(t *testing.T) {
	body := []byte(`{"latitude":37.5,"longitude":127.0}`)
	frame := NewFrame(CommandSend,
		HeaderDestination, "/app/location",
		HeaderContentType, "application/json",
	)
	frame.Body = body

	got := Marshal(frame)

	parsed, err := Parse(got)
	require.NoError(t, err)
	assert.Equal(t, CommandSend, parsed.Command)
	assert.Equal(t, "/app/location", parsed.Header(HeaderDestination))
	assert.Equal(t, "35", parsed.Header(HeaderContentLength))
	assert.Equal(t, body, parsed.Body)
}

func TestParseMessageFrame(t *testing.T) {
	wire := "MESSAGE\nsubscription:sub-0\ndestination:/topic/rider/location/42\nmessage-id:7\n\n{\"latitude\":1,\"longitude\":2}\x00"

	frame, err := Parse([]byte(wire))
	require.NoError(t, err)

	assert.Equal(t, CommandMessage, frame.Command)
	assert.Equal(t, "sub-0", frame.Header(HeaderSubscription))
	assert.Equal(t, "/topic/rider/location/42", frame.Header(HeaderDestination))
	assert.Equal(t, `{"latitude":1,"longitude":2}`, string(frame.Body))
}

func TestParseCarriageReturnLineEndings(t *testing.T) {
	wire := "CONNECTED\r\nversion:1.2\r\nheart-beat:10000,10000\r\n\r\n\x00"

	frame, err := Parse([]byte(wire))
	require.NoError(t, err)

	assert.Equal(t, CommandConnected, frame.Command)
	assert.Equal(t, "1.2", frame.Header(HeaderVersion))
	assert.Nil(t, frame.Body)
}

func TestParseContentLengthAllowsNulInBody(t *testing.T) {
	body := "ab\x00cd"
	wire := "MESSAGE\nsubscription:sub-1\ncontent-length:5\n\n" + body + "\x00"

	frame, err := Parse([]byte(wire))
	require.NoError(t, err)
	assert.Equal(t, body, string(frame.Body))
}

func TestHeaderEscapingRoundTrip(t *testing.T) {
	frame := NewFrame(CommandSend,
		HeaderDestination, "/queue/a:b",
		"x-note", "line1\nline2\\end",
	)

	parsed, err := Parse(Marshal(frame))
	require.NoError(t, err)

	assert.Equal(t, "/queue/a:b", parsed.Header(HeaderDestination))
	assert.Equal(t, "line1\nline2\\end", parsed.Header("x-note"))
}

func TestRepeatedHeaderFirstWins(t *testing.T) {
	wire := "MESSAGE\nfoo:first\nfoo:second\n\n\x00"

	frame, err := Parse([]byte(wire))
	require.NoError(t, err)
	assert.Equal(t, "first", frame.Header("foo"))
}

func TestHeartbeat(t *testing.T) {
	assert.True(t, IsHeartbeat([]byte("\n")))
	assert.True(t, IsHeartbeat([]byte("\r\n")))
	assert.False(t, IsHeartbeat([]byte("MESSAGE\n\n\x00")))
	assert.False(t, IsHeartbeat(nil))

	_, err := Parse(Heartbeat())
	assert.Error(t, err)
}

func TestParseMalformedFrames(t *testing.T) {
	cases := map[string]string{
		"no header terminator": "MESSAGE\nfoo:bar\x00",
		"header without colon": "MESSAGE\nnocolon\n\n\x00",
		"bad escape":           "MESSAGE\nfoo:bad\\qescape\n\n\x00",
		"bad content-length":   "MESSAGE\ncontent-length:999\n\nshort\x00",
	}

	for name, wire := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(wire))
			assert.Error(t, err)
		})
	}
}
