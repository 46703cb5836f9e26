package oauth2

import (
	"time"

	"github.com/jrsteele09/newsfeed-auth/users"
)

// TokenResult is what a successful token request produced.
type TokenResult struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	Expiry       time.Time // Zero when the provider did not say

	// User is set when the exchange already resolved the identity (the
	// backend login response carries it).
	User *users.Profile
}

// SignupResult confirms an upstream account creation. It never carries a token.
type SignupResult struct {
	Message  string
	Username string
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	// AccessToken is the application bearer token the client presents on
	// every protected request: "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// User is the profile the token was issued for.
	User users.Profile `json:"user"`
}

// SignupResponse is returned from POST /auth/signup.
type SignupResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// MessageResponse is a plain acknowledgement (logout, health).
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse follows the OAuth2 error shape.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
