// Package session keeps login sessions in a fiber.Storage backend.
//
// The cookie only carries a random session id. The stored Data holds the
// user id; the user row itself is reloaded on every request so role and
// barangay changes apply immediately.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// ErrNoSession is returned by Read when the id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	UserID uint64
	// TOTPPending is set between the password step and the second factor step.
	TOTPPending bool
	// IDToken is the raw OIDC ID token, kept as logout hint.
	IDToken string `json:",omitempty"`
}

// Authenticated reports a completed login.
func (s *Data) Authenticated() bool {
	return s.UserID > 0 && !s.TOTPPending
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}

	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	if len(byteData) == 0 {
		return ErrNoSession
	}

	return json.Unmarshal(byteData, s)
}

// Delete removes the session with the given id.
func Delete(sessionID string) error {
	if sessionID == "" {
		return nil
	}

	return Store.Storage.Delete(sessionID)
}

// Init initializes the session store with the provided storage backend.
// A nil storage selects fiber's in-memory storage.
func Init(storage fiber.Storage) {
	if storage == nil {
		log.Warn().Msg("no session storage configured, using in-memory sessions")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
