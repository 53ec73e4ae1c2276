package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// LocationUpdate represents a single position report, inbound (another
// actor's position) or outbound (this device's own position). Timestamp
// is always epoch milliseconds regardless of the source clock.
type LocationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// Validate rejects non-finite coordinates so a malformed update is
// dropped instead of propagating NaN downstream.
func (l *LocationUpdate) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) {
		return fmt.Errorf("latitude is not a finite number")
	}
	if math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return fmt.Errorf("longitude is not a finite number")
	}
	return nil
}

// DecodeLocationUpdate parses an inbound location frame. The payload may
// be enveloped; both coordinates must be present and numeric, frames
// failing either check are rejected. Timestamp is optional on inbound
// frames and defaults to zero.
func DecodeLocationUpdate(data []byte) (*LocationUpdate, error) {
	payload := unwrapEnvelope(data)

	var raw struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Timestamp int64    `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid location payload: %w", err)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return nil, fmt.Errorf("location payload missing coordinates")
	}

	update := &LocationUpdate{
		Latitude:  *raw.Latitude,
		Longitude: *raw.Longitude,
		Timestamp: raw.Timestamp,
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return update, nil
}
