package server

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/server/loginsession"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// LoginHandler proxies a username and password to the provider and answers
// with an application token for the authenticated user.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauth2.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		creds := users.LoginCredentials{Username: req.Username, Password: req.Password}
		if err := creds.Validate(); err != nil {
			writeError(w, err)
			return
		}

		result, err := s.provider.PasswordLogin(r.Context(), creds.Username, creds.Password)
		if err != nil {
			s.logAuthFailure(err, "login failed", creds.Username)
			writeError(w, err)
			return
		}

		response, err := s.issueAppToken(r.Context(), result)
		if err != nil {
			log.Err(err).Str("username", creds.Username).Msg("failed to issue application token")
			writeError(w, err)
			return
		}

		log.Info().Str("sub", response.User.Subject).Msg("user logged in")
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *Server) issueAppToken(ctx context.Context, result *oauth2.TokenResult) (*oauth2.LoginResponse, error) {
	profile := result.User
	if profile == nil {
		var err error
		if profile, err = s.provider.FetchUserInfo(ctx, result.AccessToken); err != nil {
			return nil, errors.Wrap(err, "[Server.issueAppToken] userinfo")
		}
	}

	appToken, claims, err := s.tokens.CreateAccessToken(*profile)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.issueAppToken] create token")
	}

	err = s.loginSessions.Upsert(claims.ID, loginsession.Session{
		User:                 *profile,
		ProviderAccessToken:  result.AccessToken,
		ProviderRefreshToken: result.RefreshToken,
		ExpiresAt:            claims.ExpiresAt.Time,
		CreatedAt:            claims.IssuedAt.Time,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Server.issueAppToken] remember provider tokens")
	}

	return &oauth2.LoginResponse{
		AccessToken: appToken,
		TokenType:   oauth2.TokenTypeBearer,
		ExpiresIn:   int(claims.ExpiresAt.Sub(claims.IssuedAt.Time) / time.Second),
		User:        *profile,
	}, nil
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauth2.SignupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		creds := users.Credentials{Username: req.Username, Email: req.Email, Password: req.Password}
		if err := creds.Validate(); err != nil {
			writeError(w, err)
			return
		}

		result, err := s.provider.Signup(r.Context(), creds)
		if err != nil {
			s.logAuthFailure(err, "signup failed", creds.Username)
			writeError(w, err)
			return
		}

		username := result.Username
		if username == "" {
			username = creds.Username
		}
		log.Info().Str("username", username).Msg("user registered")
		writeJSON(w, http.StatusCreated, oauth2.SignupResponse{Message: result.Message, Username: username})
	}
}

// LogoutHandler always succeeds. An application token is revoked locally and
// the provider tokens remembered for it are revoked upstream; a provider token
// is revoked upstream directly. Upstream failures are only logged.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer writeJSON(w, http.StatusOK, oauth2.MessageResponse{Message: "Logged out successfully"})

		raw, err := BearerToken(r)
		if err != nil {
			return
		}

		claims, err := s.tokens.RevokeAccessToken(r.Context(), raw)
		switch {
		case err == nil:
			s.revokeLoginSession(r.Context(), claims.ID)
		case errors.Is(err, autherrors.ErrForeignToken):
			s.revokeUpstream(r.Context(), raw, oauth2.AccessTokenHint)
		default:
			log.Debug().Err(err).Msg("logout with unusable token")
		}
	}
}

func (s *Server) revokeLoginSession(ctx context.Context, tokenID string) {
	session, err := s.loginSessions.Get(tokenID)
	if err != nil {
		return
	}
	s.revokeUpstream(ctx, session.ProviderAccessToken, oauth2.AccessTokenHint)
	s.revokeUpstream(ctx, session.ProviderRefreshToken, oauth2.RefreshTokenHint)
	if err := s.loginSessions.Delete(tokenID); err != nil {
		log.Debug().Err(err).Msg("login session already removed")
	}
}

func (s *Server) revokeUpstream(ctx context.Context, token, hint string) {
	if token == "" {
		return
	}
	if err := s.provider.Revoke(ctx, token, hint); err != nil {
		log.Debug().Err(err).Str("hint", hint).Msg("upstream revocation failed")
	}
}

// logAuthFailure keeps rejected credentials out of the error log; only
// provider trouble is logged as an error.
func (s *Server) logAuthFailure(err error, msg, username string) {
	if autherrors.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Err(err).Str("username", username).Msg(msg)
		return
	}
	log.Info().Str("username", username).Str("reason", autherrors.UserMessage(err)).Msg(msg)
}
