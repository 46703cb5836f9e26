package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/pkce"
	"github.com/jrsteele09/newsfeed-auth/sessions"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// CodeExchanger completes the redirect strategy against the identity provider.
type CodeExchanger interface {
	AuthCodeURL(state, codeChallenge string) string
	ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (*oauth2.TokenResult, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*users.Profile, error)
}

// CredentialClient performs the direct-credential operations. The result of
// PasswordLogin carries the resolved user.
type CredentialClient interface {
	PasswordLogin(ctx context.Context, username, password string) (*oauth2.TokenResult, error)
	Signup(ctx context.Context, creds users.Credentials) (*oauth2.SignupResult, error)
}

// Revoker invalidates a token upstream. Failures never block logout.
type Revoker interface {
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// Deps holds the collaborators of a Gateway
type Deps struct {
	Sessions    sessions.Store   // Durable session storage (required)
	Flows       *pkce.Store      // Short-lived PKCE correlation state (redirect strategy)
	Exchanger   CodeExchanger    // Provider client (redirect strategy)
	Credentials CredentialClient // Backend or provider client (password strategy, signup)
	Revoker     Revoker          // Optional upstream revocation on logout
}

// Gateway orchestrates login, signup, callback completion and logout. It is
// the only component that holds authentication state.
type Gateway struct {
	deps     Deps
	strategy Strategy

	mu        sync.Mutex
	state     State
	pendingID string // correlation id of the in-flight redirect login

	callbackMu sync.Mutex // one callback completion at a time
}

// New creates a Gateway in the Anonymous state. Call Restore to pick up a
// session persisted by an earlier run.
func New(strategy Strategy, deps Deps) (*Gateway, error) {
	if !strategy.Valid() {
		return nil, errors.Errorf("[auth.New] unknown login strategy %q", strategy)
	}
	if deps.Sessions == nil {
		return nil, errors.New("[auth.New] session store is required")
	}
	switch strategy {
	case StrategyRedirect:
		if deps.Flows == nil || deps.Exchanger == nil {
			return nil, errors.New("[auth.New] redirect strategy requires a flow store and a code exchanger")
		}
	case StrategyPassword:
		if deps.Credentials == nil {
			return nil, errors.New("[auth.New] password strategy requires a credential client")
		}
	}

	return &Gateway{deps: deps, strategy: strategy, state: StateAnonymous}, nil
}

// Strategy returns the configured login strategy.
func (g *Gateway) Strategy() Strategy {
	return g.strategy
}

// State returns the current lifecycle state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Restore loads a persisted session and moves to Authenticated when one exists.
func (g *Gateway) Restore(ctx context.Context) (*sessions.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, err := g.deps.Sessions.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Restore] load session")
	}
	if session == nil {
		if g.state == StateAuthenticated {
			g.state = StateAnonymous
		}
		return nil, nil
	}
	g.state = StateAuthenticated
	return session, nil
}

// Session returns the current session, or nil. A session that expired or was
// found corrupt drops the gateway back to Anonymous.
func (g *Gateway) Session(ctx context.Context) (*sessions.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, err := g.deps.Sessions.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Session] load session")
	}
	if session == nil && g.state == StateAuthenticated {
		g.state = StateAnonymous
	}
	return session, nil
}

// Signup validates creds and creates the account upstream. It never logs the
// user in; the state is left unchanged.
func (g *Gateway) Signup(ctx context.Context, creds users.Credentials) (*oauth2.SignupResult, error) {
	if err := creds.ValidateWithConfirmation(); err != nil {
		return nil, err
	}
	if g.deps.Credentials == nil {
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, "registration is not configured")
	}

	result, err := g.deps.Credentials.Signup(ctx, creds)
	if err != nil {
		log.Info().Err(err).Str("username", creds.Username).Msg("signup failed")
		return nil, err
	}
	log.Info().Str("username", creds.Username).Msg("signup successful")
	return result, nil
}

// Logout clears the local session, then revokes upstream on a best-effort
// basis and drops any pending login attempt. It is safe to call in any state.
func (g *Gateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	pendingID := g.pendingID
	g.pendingID = ""
	g.state = StateAnonymous

	session, loadErr := g.deps.Sessions.Load(ctx)
	clearErr := g.deps.Sessions.Clear(ctx)
	g.mu.Unlock()

	if pendingID != "" && g.deps.Flows != nil {
		if err := g.deps.Flows.Discard(ctx, pendingID); err != nil {
			log.Debug().Err(err).Msg("failed to discard pending login")
		}
	}

	if loadErr == nil && session != nil && g.deps.Revoker != nil {
		if err := g.deps.Revoker.Revoke(ctx, session.AccessToken, oauth2.AccessTokenHint); err != nil {
			log.Debug().Err(err).Msg("token revocation failed (non-critical)")
		}
	}

	if clearErr != nil {
		return errors.Wrap(clearErr, "[Gateway.Logout] clear session")
	}
	return nil
}

// saveLocked persists a completed login. g.mu must be held.
func (g *Gateway) saveLocked(ctx context.Context, result *oauth2.TokenResult, profile users.Profile) (*sessions.Session, error) {
	if err := g.deps.Sessions.Save(ctx, result.AccessToken, profile, result.Expiry); err != nil {
		g.state = StateAnonymous
		return nil, errors.Wrap(err, "save session")
	}
	session, err := g.deps.Sessions.Load(ctx)
	if err != nil || session == nil {
		g.state = StateAnonymous
		return nil, errors.Wrap(autherrors.ErrCorruptSession, "session not readable after save")
	}
	g.state = StateAuthenticated
	return session, nil
}
