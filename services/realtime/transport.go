package realtime

import (
	"net/http"

	"github.com/hangryo/baedalgo/internal/pkg/constants"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
)

// authTransport injects the connection headers on every stream request.
// Hanging the credential read off the transport means each reconnect
// attempt, including the ones the SSE layer performs on its own, picks
// up the freshest persisted token.
type authTransport struct {
	creds    CredentialSupplier
	deviceID string
	base     http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(constants.HeaderDeviceID, t.deviceID)

	if token, ok := t.creds.Token(); ok {
		clone.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	} else {
		logger.Debug("no bearer token available, connecting stream anonymously",
			logger.String("device_id", t.deviceID))
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
