package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/newsfeed-auth/internal/config"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/server/loginsession"
	"github.com/jrsteele09/newsfeed-auth/token"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// IdentityProvider is the part of the provider client the backend proxies to.
type IdentityProvider interface {
	PasswordLogin(ctx context.Context, username, password string) (*oauth2.TokenResult, error)
	Signup(ctx context.Context, creds users.Credentials) (*oauth2.SignupResult, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*users.Profile, error)
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// Deps holds the server's collaborators
type Deps struct {
	Provider      IdentityProvider  // Upstream identity provider
	Tokens        *token.Manager    // Application token issuer/validator
	LoginSessions loginsession.Repo // Provider tokens remembered per application token
}

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	provider      IdentityProvider
	tokens        *token.Manager
	loginSessions loginsession.Repo
	authorizer    *Authorizer
	limiter       *rateLimiter
	proxies       []netip.Prefix
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Provider == nil {
		return nil, errors.New("[Server New] identity provider is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[Server New] token manager is required")
	}
	if deps.LoginSessions == nil {
		deps.LoginSessions = loginsession.NewInMemoryLoginSessionRepo()
	}

	s := &Server{
		env:           config.GetEnv(),
		mux:           http.NewServeMux(),
		config:        config,
		provider:      deps.Provider,
		tokens:        deps.Tokens,
		loginSessions: deps.LoginSessions,
		authorizer:    NewAuthorizer(deps.Tokens, deps.Provider),
	}
	proxies, err := parseTrustedProxies(config.GetTrustedProxies())
	if err != nil {
		return nil, err
	}
	s.proxies = proxies
	if config.GetEnableRateLimiting() {
		s.limiter = newRateLimiter(config.GetLoginRateLimit(), config.GetLoginRateBurst())
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Cleanup drops expired revocations, login sessions and idle rate limiters.
func (s *Server) Cleanup(ctx context.Context) {
	s.tokens.CleanupRevokedTokens(ctx)
	removed := s.loginSessions.Cleanup(time.Now())
	if s.limiter != nil {
		s.limiter.cleanup()
	}
	log.Debug().Int("login_sessions", removed).Msg("cleanup complete")
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
