package loginsession

import (
	"fmt"
	"sync"
	"time"
)

// InMemoryLoginSessionRepo is an in-memory implementation of Repo
type InMemoryLoginSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // tokenID -> Session
}

var _ Repo = (*InMemoryLoginSessionRepo)(nil)

// NewInMemoryLoginSessionRepo creates a new in-memory login session repository
func NewInMemoryLoginSessionRepo() *InMemoryLoginSessionRepo {
	return &InMemoryLoginSessionRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or updates a login session
func (r *InMemoryLoginSessionRepo) Upsert(tokenID string, session Session) error {
	if tokenID == "" {
		return fmt.Errorf("tokenID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[tokenID] = session
	return nil
}

// Get retrieves a login session by token ID
func (r *InMemoryLoginSessionRepo) Get(tokenID string) (Session, error) {
	if tokenID == "" {
		return Session{}, fmt.Errorf("tokenID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Delete removes a login session
func (r *InMemoryLoginSessionRepo) Delete(tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("tokenID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, tokenID) // Already gone is not an error
	return nil
}

// Cleanup drops sessions whose application token has expired and reports how many went.
func (r *InMemoryLoginSessionRepo) Cleanup(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if !session.ExpiresAt.IsZero() && now.After(session.ExpiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
