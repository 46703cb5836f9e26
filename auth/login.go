package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/pkce"
	"github.com/jrsteele09/newsfeed-auth/sessions"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// Login performs a direct-credential login. On success the session is saved
// and the gateway is Authenticated; on failure it stays Anonymous. There are
// no retries.
func (g *Gateway) Login(ctx context.Context, username, password string) (*sessions.Session, error) {
	if g.strategy != StrategyPassword {
		return nil, errors.Wrap(autherrors.ErrInvalidState, "direct login is not enabled")
	}
	if err := (users.LoginCredentials{Username: username, Password: password}).Validate(); err != nil {
		return nil, err
	}
	if g.State() == StateAuthenticated {
		return nil, errors.Wrap(autherrors.ErrInvalidState, "already logged in")
	}

	result, err := g.deps.Credentials.PasswordLogin(ctx, username, password)
	if err != nil {
		if errors.Is(err, autherrors.ErrInvalidCredentials) {
			log.Info().Str("username", username).Msg("login rejected")
		} else {
			log.Warn().Err(err).Str("username", username).Msg("login failed")
		}
		g.mu.Lock()
		g.state = StateAnonymous
		g.mu.Unlock()
		return nil, err
	}
	if result.User == nil {
		return nil, errors.New("[Gateway.Login] login response carried no user")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	session, err := g.saveLocked(ctx, result, *result.User)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.Login]")
	}
	log.Info().Str("username", username).Msg("login successful")
	return session, nil
}

// BeginLogin starts a redirect login and returns the authorization URL. Any
// earlier unfinished attempt is abandoned.
func (g *Gateway) BeginLogin(ctx context.Context) (string, error) {
	if g.strategy != StrategyRedirect {
		return "", errors.Wrap(autherrors.ErrInvalidState, "redirect login is not enabled")
	}

	challenge, err := pkce.Generate()
	if err != nil {
		return "", errors.Wrap(err, "[Gateway.BeginLogin]")
	}
	state, err := pkce.NewState()
	if err != nil {
		return "", errors.Wrap(err, "[Gateway.BeginLogin]")
	}
	correlationID := pkce.NewCorrelationID()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateAuthenticated {
		return "", errors.Wrap(autherrors.ErrInvalidState, "already logged in")
	}

	flow := pkce.Flow{State: state, CodeVerifier: challenge.CodeVerifier, CreatedAt: time.Now()}
	if err := g.deps.Flows.Put(ctx, correlationID, flow); err != nil {
		return "", errors.Wrap(err, "[Gateway.BeginLogin] store flow")
	}
	if g.pendingID != "" {
		_ = g.deps.Flows.Discard(ctx, g.pendingID)
	}

	g.pendingID = correlationID
	g.state = StateAwaitingRedirect
	return g.deps.Exchanger.AuthCodeURL(state, challenge.CodeChallenge), nil
}

// MarkRedirected records that the authorization URL was handed to the user agent.
func (g *Gateway) MarkRedirected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateAwaitingRedirect {
		g.state = StateAwaitingCallback
	}
}

// HandleCallback completes a redirect login. The state parameter must match
// the value issued by BeginLogin; on a mismatch the stored verifier is never
// used and the attempt is abandoned. Only one of several concurrent callbacks
// can consume the verifier; the others fail with ErrNoVerifier.
func (g *Gateway) HandleCallback(ctx context.Context, params CallbackParams) (*sessions.Session, error) {
	g.callbackMu.Lock()
	defer g.callbackMu.Unlock()

	g.mu.Lock()
	if !g.state.awaiting() || g.pendingID == "" {
		g.mu.Unlock()
		return nil, autherrors.ErrNoVerifier
	}
	correlationID := g.pendingID
	g.mu.Unlock()

	if params.Error != "" {
		g.abandon(ctx, correlationID)
		return nil, &autherrors.AuthorizationDeniedError{Code: params.Error, Description: params.ErrorDescription}
	}

	flow, err := g.deps.Flows.Peek(ctx, correlationID)
	if err != nil {
		g.abandon(ctx, correlationID)
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(flow.State), []byte(params.State)) != 1 {
		log.Warn().Err(autherrors.ErrCallbackStateMismatch).Msg("aborting login attempt")
		g.abandon(ctx, correlationID)
		return nil, autherrors.ErrCallbackStateMismatch
	}
	if params.Code == "" {
		g.abandon(ctx, correlationID)
		return nil, &autherrors.ValidationError{Field: "code", Message: "authorization code is missing"}
	}

	flow, err = g.deps.Flows.Consume(ctx, correlationID)
	if err != nil {
		g.reset(correlationID)
		return nil, err
	}

	result, err := g.deps.Exchanger.ExchangeAuthorizationCode(ctx, params.Code, flow.CodeVerifier)
	if err != nil {
		log.Warn().Err(err).Msg("authorization code exchange failed")
		g.reset(correlationID)
		return nil, err
	}
	profile, err := g.deps.Exchanger.FetchUserInfo(ctx, result.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("userinfo request failed")
		g.reset(correlationID)
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pendingID != correlationID {
		// Logout or a new login started while the exchange was in flight.
		return nil, errors.Wrap(autherrors.ErrInvalidState, "login attempt was cancelled")
	}
	g.pendingID = ""
	session, err := g.saveLocked(ctx, result, *profile)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.HandleCallback]")
	}
	log.Info().Str("subject", profile.Subject).Msg("login successful")
	return session, nil
}

// abandon discards the flow and returns to Anonymous if it is still the current attempt.
func (g *Gateway) abandon(ctx context.Context, correlationID string) {
	if err := g.deps.Flows.Discard(ctx, correlationID); err != nil {
		log.Debug().Err(err).Msg("failed to discard login attempt")
	}
	g.reset(correlationID)
}

func (g *Gateway) reset(correlationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pendingID == correlationID {
		g.pendingID = ""
		g.state = StateAnonymous
	}
}
