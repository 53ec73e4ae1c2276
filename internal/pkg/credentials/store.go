// Package credentials supplies the persisted bearer token the realtime
// clients attach at connect and publish time. The token is externally
// owned and may rotate at any moment, so every read goes back to the
// source; nothing is cached here.
package credentials

import (
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hangryo/baedalgo/internal/pkg/logger"
)

// EnvToken is the environment variable consulted when no token file is
// configured or the file is absent.
const EnvToken = "BAEDALGO_AUTH_TOKEN"

// Store reads the persisted bearer token, file first, env second.
type Store struct {
	filePath string
}

// NewStore creates a token store. filePath may be empty, in which case
// only the environment is consulted.
func NewStore(filePath string) *Store {
	return &Store{filePath: filePath}
}

// Token returns the current bearer token. The second return is false
// when no token is available; callers then connect anonymously.
func (s *Store) Token() (string, bool) {
	token := s.read()
	if token == "" {
		return "", false
	}
	s.warnIfExpired(token)
	return token, true
}

func (s *Store) read() string {
	if s.filePath != "" {
		data, err := os.ReadFile(s.filePath)
		if err == nil {
			if token := strings.TrimSpace(string(data)); token != "" {
				return token
			}
		} else if !os.IsNotExist(err) {
			logger.Warn("failed to read token file",
				logger.String("path", s.filePath),
				logger.Err(err))
		}
	}
	return strings.TrimSpace(os.Getenv(EnvToken))
}

// warnIfExpired logs when the persisted token is a JWT past its expiry.
// The token is still handed out; authorization is the server's call.
func (s *Store) warnIfExpired(token string) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens are fine, nothing to inspect
		return
	}
	if claims.ExpiresAt == nil {
		return
	}
	if claims.ExpiresAt.Before(time.Now()) {
		logger.Warn("bearer token is expired, server may reject the connection",
			logger.String("expired_at", claims.ExpiresAt.Format(time.RFC3339)))
	}
}
