package auth_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/newsfeed-auth/auth"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/pkce"
	"github.com/jrsteele09/newsfeed-auth/sessions"
	"github.com/jrsteele09/newsfeed-auth/storage"
	"github.com/jrsteele09/newsfeed-auth/users"
)

var annProfile = users.Profile{Subject: "user-1", Email: "ann@example.com", Name: "Ann", PreferredUsername: "ann"}

type fakeExchanger struct {
	mu            sync.Mutex
	exchangeCalls int
	verifiers     []string
	exchangeErr   error
	userInfoErr   error
	exchangeDelay time.Duration
}

func (f *fakeExchanger) AuthCodeURL(state, codeChallenge string) string {
	q := url.Values{
		"response_type":         {"code"},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	return "https://idp.example.com/authorize?" + q.Encode()
}

func (f *fakeExchanger) ExchangeAuthorizationCode(_ context.Context, code, codeVerifier string) (*oauth2.TokenResult, error) {
	if f.exchangeDelay > 0 {
		time.Sleep(f.exchangeDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	f.verifiers = append(f.verifiers, codeVerifier)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.TokenResult{AccessToken: "provider-token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeExchanger) FetchUserInfo(_ context.Context, accessToken string) (*users.Profile, error) {
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	p := annProfile
	return &p, nil
}

func (f *fakeExchanger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangeCalls
}

type fakeCredentials struct {
	loginCalls  int
	signupCalls int
	loginErr    error
	signupErr   error
}

func (f *fakeCredentials) PasswordLogin(_ context.Context, username, password string) (*oauth2.TokenResult, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	p := annProfile
	return &oauth2.TokenResult{AccessToken: "app-token", TokenType: "bearer", User: &p}, nil
}

func (f *fakeCredentials) Signup(_ context.Context, creds users.Credentials) (*oauth2.SignupResult, error) {
	f.signupCalls++
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &oauth2.SignupResult{Message: "created", Username: creds.Username}, nil
}

type fakeRevoker struct {
	revoked []string
	err     error
}

func (f *fakeRevoker) Revoke(_ context.Context, token, _ string) error {
	f.revoked = append(f.revoked, token)
	return f.err
}

type fixture struct {
	gateway     *auth.Gateway
	sessions    *sessions.KVStore
	flows       *pkce.Store
	exchanger   *fakeExchanger
	credentials *fakeCredentials
	revoker     *fakeRevoker
}

func newFixture(t *testing.T, strategy auth.Strategy) *fixture {
	t.Helper()

	f := &fixture{
		sessions:    sessions.NewStore(storage.NewMemory()),
		flows:       pkce.NewStore(storage.NewMemory(), time.Minute),
		exchanger:   &fakeExchanger{},
		credentials: &fakeCredentials{},
		revoker:     &fakeRevoker{},
	}
	g, err := auth.New(strategy, auth.Deps{
		Sessions:    f.sessions,
		Flows:       f.flows,
		Exchanger:   f.exchanger,
		Credentials: f.credentials,
		Revoker:     f.revoker,
	})
	require.NoError(t, err)
	f.gateway = g
	return f
}

// beginLogin starts a redirect login and returns the issued state.
func (f *fixture) beginLogin(t *testing.T) string {
	t.Helper()

	raw, err := f.gateway.BeginLogin(context.Background())
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	f.gateway.MarkRedirected()
	return u.Query().Get("state")
}

func (f *fixture) requireNoSession(t *testing.T) {
	t.Helper()

	s, err := f.sessions.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, s)
}
