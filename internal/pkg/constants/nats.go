package constants

// NATS Subjects
const (
	// SubjectLocationUpdate is the prefix for relayed rider positions.
	// The full subject carries a geohash suffix: location.update.<geohash>
	SubjectLocationUpdate = "location.update"
)
