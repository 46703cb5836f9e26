// Package apiclient talks to the NewsFeed backend on behalf of the CLI: the
// password login, signup and logout endpoints, and bearer-authenticated API
// calls.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/users"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20

	loginPath  = "/auth/login"
	signupPath = "/auth/signup"
	logoutPath = "/auth/logout"
	mePath     = "/api/me"
)

type Option func(*Client)

// WithHTTPClient replaces the default client. Its timeout is kept as is.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

// Client is the backend's credential API. It satisfies auth.CredentialClient
// and auth.Revoker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nowFunc    func() time.Time
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[apiclient New] base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PasswordLogin exchanges credentials for an application token. The backend
// resolves the user, so the result always carries a profile.
func (c *Client) PasswordLogin(ctx context.Context, username, password string) (*oauth2.TokenResult, error) {
	creds := users.LoginCredentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var resp oauth2.LoginResponse
	err := c.do(ctx, http.MethodPost, loginPath, "", oauth2.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User.Subject == "" {
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, "login response missing token or user")
	}

	result := &oauth2.TokenResult{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		User:        &resp.User,
	}
	if resp.ExpiresIn > 0 {
		result.Expiry = c.nowFunc().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return result, nil
}

func (c *Client) Signup(ctx context.Context, creds users.Credentials) (*oauth2.SignupResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var resp oauth2.SignupResponse
	req := oauth2.SignupRequest{Username: creds.Username, Email: creds.Email, Password: creds.Password}
	if err := c.do(ctx, http.MethodPost, signupPath, "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Username == "" {
		resp.Username = creds.Username
	}
	return &oauth2.SignupResult{Message: resp.Message, Username: resp.Username}, nil
}

// Revoke logs the token out at the backend. Only access tokens are known to
// the backend; other hints are ignored.
func (c *Client) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	if token == "" || (tokenTypeHint != "" && tokenTypeHint != oauth2.AccessTokenHint) {
		return nil
	}
	return c.do(ctx, http.MethodPost, logoutPath, token, nil, nil)
}

// FetchUserInfo returns the profile the backend resolves for accessToken.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*users.Profile, error) {
	var profile users.Profile
	if err := c.do(ctx, http.MethodGet, mePath, accessToken, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(autherrors.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(autherrors.ErrUpstreamUnavailable, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(autherrors.ErrUpstreamUnavailable, "malformed backend response")
	}
	return nil
}

// statusError maps a backend error response back onto the error taxonomy.
func statusError(status int, data []byte) error {
	var body oauth2.ErrorResponse
	_ = json.Unmarshal(data, &body)

	switch status {
	case http.StatusBadRequest:
		if body.Error == "mfa_required" {
			return autherrors.ErrMFARequired
		}
		return &autherrors.ValidationError{Message: fallback(body.ErrorDescription, "invalid request")}
	case http.StatusUnauthorized:
		if body.Error == "invalid_grant" {
			return autherrors.ErrInvalidCredentials
		}
		return errors.Wrap(autherrors.ErrInvalidToken, body.ErrorDescription)
	case http.StatusForbidden:
		return autherrors.ErrRegistrationDisabled
	case http.StatusConflict:
		return autherrors.ErrAccountConflict
	case http.StatusTooManyRequests:
		return autherrors.ErrRateLimited
	case http.StatusBadGateway:
		return &autherrors.TokenExchangeError{StatusCode: status, Code: fallback(body.Error, "bad_gateway"), Description: body.ErrorDescription}
	}
	if status >= http.StatusInternalServerError {
		return errors.Wrapf(autherrors.ErrUpstreamUnavailable, "backend returned %d", status)
	}
	return &autherrors.TokenExchangeError{StatusCode: status, Code: body.Error, Description: body.ErrorDescription}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
