package sessions

import (
	"time"

	"github.com/jrsteele09/newsfeed-auth/users"
)

// Session is the persisted authenticated state of a client.
// Sessions are long-lived and survive restarts; they end on logout, expiry or corruption.
type Session struct {
	AccessToken string        // Bearer token attached to API requests
	User        users.Profile // Profile captured at login
	IssuedAt    time.Time     // When the session was saved
	Expiry      time.Time     // Zero when the provider did not say
}

// Expired reports whether the session expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}
