package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
)

const maxBodyBytes = 1 << 16

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Welcome to NewsFeed API",
			"health":  RouteHealth,
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}

// PreflightHandler answers OPTIONS requests that CorsMiddleware let through
// (requests without an Origin header).
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", s.config.GetAllowedMethods())
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the profile RequireAuth resolved.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, ok := UserFromContext(r.Context())
		if !ok || SubjectFromContext(r.Context()) == "" {
			writeError(w, autherrors.ErrAuthRequired)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return &autherrors.ValidationError{Message: "request body must be valid JSON"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}

func writeJSONError(w http.ResponseWriter, code, description string, status int) {
	writeJSON(w, status, oauth2.ErrorResponse{Error: code, ErrorDescription: description})
}

// writeError responds with the status and user safe message for err.
func writeError(w http.ResponseWriter, err error) {
	status := autherrors.HTTPStatus(err)
	writeJSONError(w, errorCode(err, status), autherrors.UserMessage(err), status)
}

func errorCode(err error, status int) string {
	switch {
	case autherrors.Is(err, autherrors.ErrInvalidCredentials):
		return "invalid_grant"
	case autherrors.Is(err, autherrors.ErrAccountConflict):
		return "conflict"
	case autherrors.Is(err, autherrors.ErrRegistrationDisabled):
		return "registration_disabled"
	case autherrors.Is(err, autherrors.ErrMFARequired):
		return "mfa_required"
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "temporarily_unavailable"
	default:
		return "server_error"
	}
}
