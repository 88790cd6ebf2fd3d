package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// StateTTL is how long an OIDC state token stays valid.
const StateTTL = 5 * time.Minute

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateStore keeps issued OIDC state tokens until they are consumed or expire.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
}

// NewStateStore returns an empty store. A zero ttl means StateTTL.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = StateTTL
	}

	return &StateStore{states: make(map[string]time.Time), ttl: ttl}
}

// Issue creates and remembers a new state token.
func (s *StateStore) Issue(now time.Time) (string, error) {
	state, err := GenerateStateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.states[state] = now.Add(s.ttl)
	s.mu.Unlock()

	return state, nil
}

// Consume removes state and reports whether it was issued and is still valid.
func (s *StateStore) Consume(state string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	delete(s.states, state)

	return ok && !now.After(exp)
}

// Sweep drops expired tokens and returns how many were removed.
func (s *StateStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for state, exp := range s.states {
		if now.After(exp) {
			delete(s.states, state)
			removed++
		}
	}

	return removed
}

// Len returns the number of pending tokens.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.states)
}
