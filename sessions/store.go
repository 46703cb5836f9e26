package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/storage"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// Storage keys. The profile key carries the expiry metadata with it.
const (
	AccessTokenKey = "newsfeed.access_token"
	UserProfileKey = "newsfeed.user_profile"
)

// Store persists the authenticated session. Load returns (nil, nil) when no
// session exists, the data is corrupt or it has expired; corrupt and expired
// entries are cleared as a side effect.
type Store interface {
	Save(ctx context.Context, accessToken string, profile users.Profile, expiry time.Time) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

type storedProfile struct {
	User     users.Profile `json:"user"`
	IssuedAt time.Time     `json:"issued_at"`
	Expiry   time.Time     `json:"expiry,omitempty"`
}

// KVStore is the Store implementation backed by a storage.KV.
type KVStore struct {
	kv      storage.KV
	nowFunc func() time.Time
}

var _ Store = (*KVStore)(nil)

// NewStore creates a session store over kv.
func NewStore(kv storage.KV) *KVStore {
	return &KVStore{kv: kv, nowFunc: time.Now}
}

// WithNowFunc overrides the clock used for expiry checks.
func (s *KVStore) WithNowFunc(now func() time.Time) *KVStore {
	s.nowFunc = now
	return s
}

func (s *KVStore) Save(ctx context.Context, accessToken string, profile users.Profile, expiry time.Time) error {
	if accessToken == "" {
		return errors.New("[KVStore.Save] access token cannot be empty")
	}

	data, err := json.Marshal(storedProfile{User: profile, IssuedAt: s.nowFunc(), Expiry: expiry})
	if err != nil {
		return errors.Wrap(err, "[KVStore.Save] encode profile")
	}

	// Token last, so a crash between the two writes leaves no usable token without a profile.
	if err := s.kv.Set(ctx, UserProfileKey, data, 0); err != nil {
		return errors.Wrap(err, "[KVStore.Save] store profile")
	}
	if err := s.kv.Set(ctx, AccessTokenKey, []byte(accessToken), 0); err != nil {
		return errors.Wrap(err, "[KVStore.Save] store access token")
	}
	return nil
}

func (s *KVStore) Load(ctx context.Context) (*Session, error) {
	token, err := s.kv.Get(ctx, AccessTokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[KVStore.Load] read access token")
	}

	raw, err := s.kv.Get(ctx, UserProfileKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "[KVStore.Load] read profile")
	}

	var stored storedProfile
	if len(token) == 0 || raw == nil || json.Unmarshal(raw, &stored) != nil {
		log.Warn().Err(autherrors.ErrCorruptSession).Msg("discarding stored session")
		return nil, s.Clear(ctx)
	}

	session := &Session{
		AccessToken: string(token),
		User:        stored.User,
		IssuedAt:    stored.IssuedAt,
		Expiry:      stored.Expiry,
	}
	if session.Expired(s.nowFunc()) {
		log.Debug().Time("expiry", session.Expiry).Msg("stored session expired")
		return nil, s.Clear(ctx)
	}
	return session, nil
}

// Clear removes both entries. Clearing an empty store is not an error.
func (s *KVStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, AccessTokenKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return errors.Wrap(err, "[KVStore.Clear] delete access token")
	}
	if err := s.kv.Delete(ctx, UserProfileKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return errors.Wrap(err, "[KVStore.Clear] delete profile")
	}
	return nil
}
