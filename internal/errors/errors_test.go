package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &autherrors.ValidationError{Field: "username", Message: "required"}, http.StatusBadRequest},
		{"credentials", autherrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"mfa required", pkgerrors.Wrap(autherrors.ErrMFARequired, "password grant"), http.StatusBadRequest},
		{"wrapped expired", pkgerrors.Wrap(autherrors.ErrTokenExpired, "validate"), http.StatusUnauthorized},
		{"revoked", fmt.Errorf("check: %w", autherrors.ErrTokenRevoked), http.StatusUnauthorized},
		{"registration disabled", autherrors.ErrRegistrationDisabled, http.StatusForbidden},
		{"conflict", autherrors.ErrAccountConflict, http.StatusConflict},
		{"rate limited", autherrors.ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", pkgerrors.Wrap(autherrors.ErrUpstreamUnavailable, "timeout"), http.StatusServiceUnavailable},
		{"registration rejected", &autherrors.RegistrationError{StatusCode: 400, Message: "weak"}, http.StatusBadRequest},
		{"registration odd status", &autherrors.RegistrationError{StatusCode: 302}, http.StatusBadGateway},
		{"userinfo unauthorized", &autherrors.UserInfoError{StatusCode: 401}, http.StatusUnauthorized},
		{"userinfo other", &autherrors.UserInfoError{StatusCode: 404}, http.StatusBadGateway},
		{"exchange", &autherrors.TokenExchangeError{StatusCode: 400, Code: "invalid_client"}, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, autherrors.HTTPStatus(tt.err))
		})
	}
}

func TestUserMessage_HidesProviderDetails(t *testing.T) {
	err := &autherrors.TokenExchangeError{StatusCode: 400, Code: "server_error", Description: "db password=hunter2"}
	require.NotContains(t, autherrors.UserMessage(err), "hunter2")

	err2 := &autherrors.UserInfoError{StatusCode: 500, Body: "stack trace"}
	require.NotContains(t, autherrors.UserMessage(err2), "stack")
}

func TestUserMessage(t *testing.T) {
	require.Empty(t, autherrors.UserMessage(nil))
	require.Equal(t, "username: required", autherrors.UserMessage(&autherrors.ValidationError{Field: "username", Message: "required"}))
	require.Equal(t, "Multi-factor authentication is required but not supported", autherrors.UserMessage(autherrors.ErrMFARequired))
	require.Equal(t, "Invalid username or password", autherrors.UserMessage(pkgerrors.Wrap(autherrors.ErrInvalidCredentials, "login")))
	require.Equal(t, "Session expired, please log in again", autherrors.UserMessage(autherrors.ErrTokenExpired))
	require.Equal(t, "Password too common", autherrors.UserMessage(&autherrors.RegistrationError{StatusCode: 400, Message: "Password too common"}))
}

func TestErrorStrings(t *testing.T) {
	require.Equal(t, "authorization denied: access_denied", (&autherrors.AuthorizationDeniedError{Code: "access_denied"}).Error())
	require.Equal(t, "token exchange failed (400): invalid_grant", (&autherrors.TokenExchangeError{StatusCode: 400, Code: "invalid_grant"}).Error())
}
