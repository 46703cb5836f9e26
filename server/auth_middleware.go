package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the authenticated users.Profile
	ContextKeyUser ContextKey = "user"
)

// RequireAuth is middleware that validates a Bearer access token
// Used for API routes that expect a token in the Authorization header
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}

			identity, err := s.authorizer.Authorize(r.Context(), raw)
			if err != nil {
				if autherrors.HTTPStatus(err) != http.StatusUnauthorized {
					log.Err(err).Str("path", r.URL.Path).Msg("authorization failed")
					writeError(w, err)
					return
				}
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				writeUnauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, identity.Profile)
			next(w, r.WithContext(ctx))
		}
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="newsfeed"`)
	writeJSONError(w, "unauthorized", autherrors.UserMessage(err), http.StatusUnauthorized)
}

// UserFromContext returns the profile RequireAuth resolved for this request.
func UserFromContext(ctx context.Context) (users.Profile, bool) {
	profile, ok := ctx.Value(ContextKeyUser).(users.Profile)
	return profile, ok
}

// SubjectFromContext returns the authenticated subject, or "" outside RequireAuth.
func SubjectFromContext(ctx context.Context) string {
	profile, _ := UserFromContext(ctx)
	return profile.Subject
}
