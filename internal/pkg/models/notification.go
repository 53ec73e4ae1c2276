package models

import (
	"encoding/json"
	"fmt"
)

// NotificationEvent represents a server-assigned notification. Immutable
// once received; the creation timestamp is whatever string the server
// stamped it with.
type NotificationEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

// DecodeNotificationEvent parses an inbound notification frame,
// unwrapping the optional payload envelope first.
func DecodeNotificationEvent(data []byte) (*NotificationEvent, error) {
	payload := unwrapEnvelope(data)

	var event NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}
	return &event, nil
}
