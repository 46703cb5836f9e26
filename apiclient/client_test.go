package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/newsfeed-auth/apiclient"
	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/sessions"
	"github.com/jrsteele09/newsfeed-auth/storage"
	"github.com/jrsteele09/newsfeed-auth/users"
)

var ann = users.Profile{Subject: "user-1", Email: "ann@example.com", PreferredUsername: "ann"}

// fakeBackend records requests and answers with scripted responses.
type fakeBackend struct {
	mu       sync.Mutex
	status   int
	body     any
	requests []*http.Request
	bodies   []map[string]string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.requests = append(b.requests, r)
	b.bodies = append(b.bodies, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.status)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

func (b *fakeBackend) last(t *testing.T) (*http.Request, map[string]string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1], b.bodies[len(b.bodies)-1]
}

func newBackend(t *testing.T, status int, body any) (*fakeBackend, *apiclient.Client) {
	t.Helper()
	backend := &fakeBackend{status: status, body: body}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	client, err := apiclient.New(srv.URL+"/", apiclient.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)
	return backend, client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := apiclient.New("  ")
	require.Error(t, err)
}

func TestPasswordLogin(t *testing.T) {
	backend, client := newBackend(t, http.StatusOK, oauth2.LoginResponse{
		AccessToken: "app-token",
		TokenType:   "bearer",
		ExpiresIn:   3600,
		User:        ann,
	})

	result, err := client.PasswordLogin(context.Background(), "ann", "password1")
	require.NoError(t, err)
	require.Equal(t, "app-token", result.AccessToken)
	require.Equal(t, ann, *result.User)
	require.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), result.Expiry)

	req, body := backend.last(t)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/auth/login", req.URL.Path)
	require.Equal(t, map[string]string{"username": "ann", "password": "password1"}, body)
}

func TestPasswordLogin_ValidationSkipsNetwork(t *testing.T) {
	backend, client := newBackend(t, http.StatusOK, nil)

	_, err := client.PasswordLogin(context.Background(), "ann", "")
	var validationErr *autherrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Empty(t, backend.requests)
}

func TestPasswordLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		check  func(t *testing.T, err error)
	}{
		{"invalid credentials", http.StatusUnauthorized, oauth2.ErrorResponse{Error: "invalid_grant", ErrorDescription: "Invalid username or password"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
		}},
		{"mfa required", http.StatusBadRequest, oauth2.ErrorResponse{Error: "mfa_required", ErrorDescription: "Multi-factor authentication is required but not supported"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrMFARequired)
			require.Equal(t, "Multi-factor authentication is required but not supported", autherrors.UserMessage(err))
		}},
		{"rate limited", http.StatusTooManyRequests, oauth2.ErrorResponse{Error: "rate_limited"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrRateLimited)
		}},
		{"unavailable", http.StatusServiceUnavailable, oauth2.ErrorResponse{Error: "temporarily_unavailable"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
		}},
		{"exchange rejected", http.StatusBadGateway, oauth2.ErrorResponse{Error: "bad_gateway"}, func(t *testing.T, err error) {
			var exchangeErr *autherrors.TokenExchangeError
			require.ErrorAs(t, err, &exchangeErr)
			require.Equal(t, http.StatusBadGateway, exchangeErr.StatusCode)
		}},
		{"missing user", http.StatusOK, oauth2.LoginResponse{AccessToken: "app-token"}, func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
		}},
		{"malformed body", http.StatusOK, "not-an-object", func(t *testing.T, err error) {
			require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newBackend(t, tt.status, tt.body)
			_, err := client.PasswordLogin(context.Background(), "ann", "password1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestPasswordLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	_, err = client.PasswordLogin(context.Background(), "ann", "password1")
	require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
}

func TestSignup(t *testing.T) {
	creds := users.Credentials{Username: "ann1", Email: "ann@example.com", Password: "password1"}

	t.Run("created", func(t *testing.T) {
		backend, client := newBackend(t, http.StatusCreated, oauth2.SignupResponse{Message: "Account created", Username: "ann1"})
		result, err := client.Signup(context.Background(), creds)
		require.NoError(t, err)
		require.Equal(t, "ann1", result.Username)

		req, body := backend.last(t)
		require.Equal(t, "/auth/signup", req.URL.Path)
		require.Equal(t, "ann@example.com", body["email"])
	})

	t.Run("conflict", func(t *testing.T) {
		_, client := newBackend(t, http.StatusConflict, oauth2.ErrorResponse{Error: "conflict"})
		_, err := client.Signup(context.Background(), creds)
		require.ErrorIs(t, err, autherrors.ErrAccountConflict)
	})

	t.Run("disabled", func(t *testing.T) {
		_, client := newBackend(t, http.StatusForbidden, oauth2.ErrorResponse{Error: "registration_disabled"})
		_, err := client.Signup(context.Background(), creds)
		require.ErrorIs(t, err, autherrors.ErrRegistrationDisabled)
	})

	t.Run("invalid locally", func(t *testing.T) {
		backend, client := newBackend(t, http.StatusCreated, nil)
		_, err := client.Signup(context.Background(), users.Credentials{Username: "Ann", Email: "ann@example.com", Password: "password1"})
		var validationErr *autherrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Empty(t, backend.requests)
	})
}

func TestRevoke(t *testing.T) {
	backend, client := newBackend(t, http.StatusOK, oauth2.MessageResponse{Message: "Logged out successfully"})

	require.NoError(t, client.Revoke(context.Background(), "app-token", oauth2.AccessTokenHint))
	req, _ := backend.last(t)
	require.Equal(t, "/auth/logout", req.URL.Path)
	require.Equal(t, "Bearer app-token", req.Header.Get("Authorization"))

	require.NoError(t, client.Revoke(context.Background(), "refresh", oauth2.RefreshTokenHint))
	require.NoError(t, client.Revoke(context.Background(), "", oauth2.AccessTokenHint))
	require.Len(t, backend.requests, 1)
}

func TestFetchUserInfo(t *testing.T) {
	backend, client := newBackend(t, http.StatusOK, ann)

	profile, err := client.FetchUserInfo(context.Background(), "app-token")
	require.NoError(t, err)
	require.Equal(t, ann, *profile)

	req, _ := backend.last(t)
	require.Equal(t, "/api/me", req.URL.Path)
	require.Equal(t, "Bearer app-token", req.Header.Get("Authorization"))
}

func TestFetchUserInfo_Unauthorized(t *testing.T) {
	_, client := newBackend(t, http.StatusUnauthorized, oauth2.ErrorResponse{Error: "unauthorized"})

	_, err := client.FetchUserInfo(context.Background(), "stale")
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
}

func TestBearerTransport(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)

	store := sessions.NewStore(storage.NewMemory())
	client := apiclient.NewAuthenticatedHTTPClient(store)
	get := func() {
		resp, err := client.Get(srv.URL + "/api/articles")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	get()
	require.NoError(t, store.Save(context.Background(), "app-token", ann, time.Now().Add(time.Hour)))
	get()
	require.NoError(t, store.Save(context.Background(), "   ", ann, time.Now().Add(time.Hour)))
	get()
	require.NoError(t, store.Clear(context.Background()))
	get()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"", "Bearer app-token", "", ""}, seen)
}
