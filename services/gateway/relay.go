// Package gateway binds the realtime clients to the rider-gateway
// process: an HTTP surface for status and health, and a NATS relay
// fanning inbound rider positions out to downstream consumers.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mmcloughlin/geohash"

	"github.com/hangryo/baedalgo/internal/pkg/constants"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
	"github.com/hangryo/baedalgo/internal/pkg/models"
)

// geohashPrecision of 5 buckets positions into roughly 5km cells,
// enough for downstream consumers to subscribe by area.
const geohashPrecision = 5

// Publisher publishes a message to a subject
type Publisher interface {
	Publish(subject string, data []byte) error
}

// LocationRelay republishes inbound rider positions to NATS, one
// subject per geohash cell: location.update.<geohash>
type LocationRelay struct {
	publisher Publisher
}

// NewLocationRelay creates a relay over the given publisher
func NewLocationRelay(publisher Publisher) *LocationRelay {
	return &LocationRelay{publisher: publisher}
}

// Handle relays one inbound location update. Best-effort: publish
// failures are logged and the frame is dropped.
func (r *LocationRelay) Handle(update *models.LocationUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		logger.Warn("failed to encode location update for relay", logger.Err(err))
		return
	}

	cell := geohash.EncodeWithPrecision(update.Latitude, update.Longitude, geohashPrecision)
	subject := fmt.Sprintf("%s.%s", constants.SubjectLocationUpdate, cell)

	if err := r.publisher.Publish(subject, data); err != nil {
		logger.Warn("failed to relay location update",
			logger.String("subject", subject),
			logger.Err(err))
	}
}
