package storage

import (
	"context"
	"time"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = autherrors.ErrNotFound

// KV is the small key/value surface the client side state lives in. Durable
// implementations survive a process restart; Take must be atomic so a value
// can be consumed by exactly one caller.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key string) ([]byte, error)
}
