// Package stomp implements the subset of STOMP 1.2 framing the realtime
// broker speaks: client frames (CONNECT, SUBSCRIBE, UNSUBSCRIBE, SEND,
// DISCONNECT), server frames (CONNECTED, MESSAGE, RECEIPT, ERROR) and
// heart-beat frames. Each STOMP frame travels in exactly one WebSocket
// message, so the codec works on whole byte slices rather than a stream.
package stomp

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command is a STOMP frame command
type Command string

// Client and server frame commands
const (
	CommandConnect     Command = "CONNECT"
	CommandConnected   Command = "CONNECTED"
	CommandSubscribe   Command = "SUBSCRIBE"
	CommandUnsubscribe Command = "UNSUBSCRIBE"
	CommandSend        Command = "SEND"
	CommandMessage     Command = "MESSAGE"
	CommandReceipt     Command = "RECEIPT"
	CommandError       Command = "ERROR"
	CommandDisconnect  Command = "DISCONNECT"
)

// Well-known frame headers
const (
	HeaderAcceptVersion = "accept-version"
	HeaderVersion       = "version"
	HeaderHost          = "host"
	HeaderHeartBeat     = "heart-beat"
	HeaderID            = "id"
	HeaderDestination   = "destination"
	HeaderSubscription  = "subscription"
	HeaderAck           = "ack"
	HeaderContentType   = "content-type"
	HeaderContentLength = "content-length"
	HeaderMessage       = "message"
)

// heartbeat is a STOMP heart-beat frame: a single end-of-line.
var heartbeat = []byte("\n")

// Frame is a decoded STOMP frame
type Frame struct {
	Command Command
	Headers map[string]string
	Body    []byte
}

// NewFrame creates a frame with the given command and flat key-value
// header pairs.
func NewFrame(command Command, headers ...string) *Frame {
	f := &Frame{
		Command: command,
		Headers: make(map[string]string, len(headers)/2),
	}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Header returns the value for key, or empty string when absent
func (f *Frame) Header(key string) string {
	return f.Headers[key]
}

// Heartbeat returns the bytes of a heart-beat frame
func Heartbeat() []byte {
	return heartbeat
}

// IsHeartbeat reports whether data is a heart-beat frame
func IsHeartbeat(data []byte) bool {
	trimmed := bytes.TrimRight(data, "\r\n")
	return len(data) > 0 && len(trimmed) == 0
}

// Marshal encodes a frame to its wire form. Headers are written in
// sorted key order so output is deterministic; a content-length header
// is added for frames carrying a body.
func Marshal(f *Frame) []byte {
	var buf bytes.Buffer
	buf.WriteString(string(f.Command))
	buf.WriteByte('\n')

	escape := f.Command != CommandConnect && f.Command != CommandConnected

	keys := make([]string, 0, len(f.Headers))
	for key := range f.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := f.Headers[key]
		if escape {
			key = escapeHeader(key)
			value = escapeHeader(value)
		}
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	if len(f.Body) > 0 {
		if _, ok := f.Headers[HeaderContentLength]; !ok {
			buf.WriteString(HeaderContentLength)
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(len(f.Body)))
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Parse decodes a frame from its wire form. Heart-beat frames are not
// frames; callers should check IsHeartbeat first.
func Parse(data []byte) (*Frame, error) {
	if IsHeartbeat(data) {
		return nil, fmt.Errorf("heart-beat is not a frame")
	}

	head, body, found := bytes.Cut(data, []byte("\r\n\r\n"))
	if !found {
		head, body, found = bytes.Cut(data, []byte("\n\n"))
	}
	if !found {
		return nil, fmt.Errorf("malformed frame: missing header terminator")
	}

	lines := strings.Split(string(head), "\n")
	command := Command(strings.TrimRight(lines[0], "\r"))
	if command == "" {
		return nil, fmt.Errorf("malformed frame: empty command")
	}

	frame := &Frame{
		Command: command,
		Headers: make(map[string]string, len(lines)-1),
	}

	unescape := command != CommandConnect && command != CommandConnected

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line: %q", line)
		}
		if unescape {
			var err error
			if key, err = unescapeHeader(key); err != nil {
				return nil, err
			}
			if value, err = unescapeHeader(value); err != nil {
				return nil, err
			}
		}
		// Repeated headers: first one wins, per the STOMP spec
		if _, exists := frame.Headers[key]; !exists {
			frame.Headers[key] = value
		}
	}

	if lengthStr, ok := frame.Headers[HeaderContentLength]; ok {
		length, err := strconv.Atoi(lengthStr)
		if err != nil || length < 0 || length > len(body) {
			return nil, fmt.Errorf("invalid content-length %q", lengthStr)
		}
		frame.Body = body[:length]
	} else {
		// Body runs to the NUL octet
		if idx := bytes.IndexByte(body, 0); idx >= 0 {
			frame.Body = body[:idx]
		} else {
			frame.Body = body
		}
	}
	if len(frame.Body) == 0 {
		frame.Body = nil
	}

	return frame, nil
}

// escapeHeader applies STOMP 1.2 header escaping
func escapeHeader(s string) string {
	if !strings.ContainsAny(s, "\\\r\n:") {
		return s
	}
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			buf.WriteString(`\\`)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		case ':':
			buf.WriteString(`\c`)
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// unescapeHeader reverses STOMP 1.2 header escaping
func unescapeHeader(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var buf strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				buf.WriteRune(r)
			}
			continue
		}
		switch r {
		case '\\':
			buf.WriteByte('\\')
		case 'r':
			buf.WriteByte('\r')
		case 'n':
			buf.WriteByte('\n')
		case 'c':
			buf.WriteByte(':')
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", r)
		}
		escaped = false
	}
	if escaped {
		return "", fmt.Errorf("dangling escape character")
	}
	return buf.String(), nil
}
