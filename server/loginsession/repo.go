package loginsession

import (
	"errors"
	"time"

	"github.com/jrsteele09/newsfeed-auth/users"
)

var ErrNotFound = errors.New("login session not found")

// Session remembers the provider tokens behind one application token so that
// logout can revoke them upstream. It is keyed by the application token's jti.
type Session struct {
	// Identity
	User users.Profile

	// Provider tokens (never handed to the client)
	ProviderAccessToken  string
	ProviderRefreshToken string

	// Session management
	ExpiresAt time.Time // Expiry of the application token
	CreatedAt time.Time
}

type Repo interface {
	Upsert(tokenID string, session Session) error
	Get(tokenID string) (Session, error)
	Delete(tokenID string) error
	Cleanup(now time.Time) int
}
