package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the authentication core
var (
	// Credential errors
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrAccountConflict      = errors.New("username or email already exists")
	ErrRegistrationDisabled = errors.New("registration is currently disabled")
	ErrMFARequired          = errors.New("multi-factor authentication required")

	// Provider errors
	ErrUpstreamUnavailable = errors.New("authentication service unavailable")

	// Callback / PKCE errors
	ErrCallbackStateMismatch = errors.New("callback state mismatch")
	ErrNoVerifier            = errors.New("no pkce verifier for this login attempt")

	// Token errors
	ErrAuthRequired = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrForeignToken = errors.New("token not issued by this service")

	// Session errors
	ErrCorruptSession = errors.New("corrupt session data")

	// General errors
	ErrRateLimited  = errors.New("too many requests")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("operation not valid in current state")
)

// ValidationError reports the first malformed input field. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// TokenExchangeError is returned when the provider rejects a token request.
type TokenExchangeError struct {
	StatusCode  int
	Code        string // OAuth2 "error" field
	Description string // OAuth2 "error_description" field
}

func (e *TokenExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token exchange failed (%d): %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("token exchange failed (%d): %s", e.StatusCode, e.Code)
}

// UserInfoError is returned when the user-info endpoint rejects an access token.
type UserInfoError struct {
	StatusCode int
	Body       string
}

func (e *UserInfoError) Error() string {
	return fmt.Sprintf("userinfo request failed (%d): %s", e.StatusCode, e.Body)
}

// RegistrationError is a provider side rejection of a signup request.
type RegistrationError struct {
	StatusCode int
	Message    string
}

func (e *RegistrationError) Error() string {
	return "registration failed: " + e.Message
}

// AuthorizationDeniedError carries the error returned on the redirect callback.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description == "" {
		return "authorization denied: " + e.Code
	}
	return "authorization denied: " + e.Code + " - " + e.Description
}

// HTTPStatus maps an error from the taxonomy to the status code the backend responds with.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var exchangeErr *TokenExchangeError
	var userInfoErr *UserInfoError
	var registrationErr *RegistrationError

	switch {
	case err == nil:
		return http.StatusOK
	case As(err, &validationErr), Is(err, ErrMFARequired):
		return http.StatusBadRequest
	case Is(err, ErrInvalidCredentials),
		Is(err, ErrAuthRequired),
		Is(err, ErrInvalidToken),
		Is(err, ErrTokenExpired),
		Is(err, ErrTokenRevoked),
		Is(err, ErrForeignToken):
		return http.StatusUnauthorized
	case Is(err, ErrRegistrationDisabled):
		return http.StatusForbidden
	case Is(err, ErrAccountConflict):
		return http.StatusConflict
	case Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case As(err, &registrationErr):
		if registrationErr.StatusCode >= 400 && registrationErr.StatusCode < 500 {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case As(err, &userInfoErr):
		if userInfoErr.StatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case As(err, &exchangeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns a message that is safe to show an end user. Provider
// response bodies are never included.
func UserMessage(err error) string {
	var validationErr *ValidationError
	var registrationErr *RegistrationError

	switch {
	case err == nil:
		return ""
	case As(err, &validationErr):
		return validationErr.Error()
	case Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case Is(err, ErrMFARequired):
		return "Multi-factor authentication is required but not supported"
	case Is(err, ErrAccountConflict):
		return "Username or email is already taken"
	case Is(err, ErrRegistrationDisabled):
		return "Registration is currently disabled"
	case Is(err, ErrUpstreamUnavailable):
		return "Authentication service is temporarily unavailable, please try again"
	case Is(err, ErrCallbackStateMismatch), Is(err, ErrNoVerifier):
		return "Login attempt could not be verified, please start again"
	case Is(err, ErrTokenExpired):
		return "Session expired, please log in again"
	case Is(err, ErrAuthRequired), Is(err, ErrInvalidToken), Is(err, ErrTokenRevoked), Is(err, ErrForeignToken):
		return "Invalid or expired token"
	case Is(err, ErrRateLimited):
		return "Too many attempts, please wait and try again"
	case Is(err, ErrInvalidState):
		return "Not possible right now, log out or start the login again"
	case As(err, &registrationErr):
		return registrationErr.Message
	default:
		return "Authentication failed, please try again"
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
