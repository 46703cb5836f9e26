package pkce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/storage"
)

const keyPrefix = "newsfeed.pkce."

// DefaultFlowTTL bounds how long a login attempt may wait for its callback.
const DefaultFlowTTL = 10 * time.Minute

// Flow is the correlation state between "begin login" and "complete callback".
type Flow struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store keeps in-flight flows in a short-lived KV namespace. A flow can be
// consumed once; afterwards, or after the TTL, it reads as ErrNoVerifier.
type Store struct {
	kv  storage.KV
	ttl time.Duration
}

// NewStore creates a flow store over kv. A ttl of zero uses DefaultFlowTTL.
func NewStore(kv storage.KV, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &Store{kv: kv, ttl: ttl}
}

// Put stores the flow under its correlation id.
func (s *Store) Put(ctx context.Context, correlationID string, flow Flow) error {
	if correlationID == "" {
		return errors.New("correlation id cannot be empty")
	}
	if flow.State == "" || flow.CodeVerifier == "" {
		return errors.New("flow requires state and code verifier")
	}

	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	if err := s.kv.Set(ctx, keyPrefix+correlationID, data, s.ttl); err != nil {
		return fmt.Errorf("store flow: %w", err)
	}
	return nil
}

// Peek reads a flow without consuming it.
func (s *Store) Peek(ctx context.Context, correlationID string) (Flow, error) {
	if correlationID == "" {
		return Flow{}, autherrors.ErrNoVerifier
	}
	data, err := s.kv.Get(ctx, keyPrefix+correlationID)
	return decodeFlow(data, err)
}

// Consume atomically reads and removes a flow. Of two concurrent callers only
// one receives the verifier; the other gets ErrNoVerifier.
func (s *Store) Consume(ctx context.Context, correlationID string) (Flow, error) {
	if correlationID == "" {
		return Flow{}, autherrors.ErrNoVerifier
	}
	data, err := s.kv.Take(ctx, keyPrefix+correlationID)
	return decodeFlow(data, err)
}

// Discard removes a flow without reading it.
func (s *Store) Discard(ctx context.Context, correlationID string) error {
	if correlationID == "" {
		return nil
	}
	return s.kv.Delete(ctx, keyPrefix+correlationID)
}

func decodeFlow(data []byte, err error) (Flow, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return Flow{}, autherrors.ErrNoVerifier
	}
	if err != nil {
		return Flow{}, fmt.Errorf("load flow: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil || flow.CodeVerifier == "" {
		return Flow{}, autherrors.ErrNoVerifier
	}
	return flow, nil
}
