package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	authoauth2 "github.com/jrsteele09/newsfeed-auth/oauth2"
)

// Client talks to the external identity provider. It never retries; a
// failed request is reported to the caller as-is.
type Client struct {
	oauth2Config *oauth2.Config
	endpoints    Endpoints
	httpClient   *http.Client
}

// New creates a Client, running OIDC discovery against the issuer when one is
// configured. Explicitly configured endpoints take precedence over discovered ones.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.IssuerURL == "" {
		return NewWithEndpoints(cfg, cfg.Endpoints)
	}

	httpClient := cfg.httpClient()
	oidcProvider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrUpstreamUnavailable, "[provider.New] discovery failed for %s: %v", cfg.IssuerURL, err)
	}

	var claims struct {
		UserInfoURL   string `json:"userinfo_endpoint"`
		RevocationURL string `json:"revocation_endpoint"`
	}
	if err := oidcProvider.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[provider.New] failed to read discovery document")
	}

	discovered := Endpoints{
		AuthURL:       oidcProvider.Endpoint().AuthURL,
		TokenURL:      oidcProvider.Endpoint().TokenURL,
		UserInfoURL:   claims.UserInfoURL,
		RevocationURL: claims.RevocationURL,
	}
	cfg.HTTPClient = httpClient

	log.Debug().
		Str("issuer", cfg.IssuerURL).
		Str("token_url", discovered.TokenURL).
		Bool("revocation", discovered.RevocationURL != "").
		Msg("oidc discovery complete")

	return NewWithEndpoints(cfg, cfg.Endpoints.merge(discovered))
}

// NewWithEndpoints creates a Client without discovery.
func NewWithEndpoints(cfg Config, endpoints Endpoints) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[provider.NewWithEndpoints] client id is required")
	}
	if endpoints.TokenURL == "" {
		return nil, errors.New("[provider.NewWithEndpoints] token endpoint is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  endpoints.AuthURL,
				TokenURL: endpoints.TokenURL,
				// Fixed style; auto-detection would resend a rejected request.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		endpoints:  endpoints,
		httpClient: cfg.httpClient(),
	}, nil
}

// Endpoints returns the endpoints in use after discovery.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// AuthCodeURL builds the authorization request for the redirect strategy.
func (c *Client) AuthCodeURL(state, codeChallenge string) string {
	return c.oauth2Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", string(authoauth2.CodeMethodTypeS256)),
	)
}

// ExchangeAuthorizationCode redeems an authorization code together with the
// PKCE verifier that produced the challenge.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (*authoauth2.TokenResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &autherrors.ValidationError{Field: "code", Message: "authorization code is required"}
	}

	token, err := c.oauth2Config.Exchange(c.context(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, mapTokenError(err)
	}
	return tokenResult(token), nil
}

// PasswordLogin performs a resource-owner password grant and resolves the
// user's profile with the issued token.
func (c *Client) PasswordLogin(ctx context.Context, username, password string) (*authoauth2.TokenResult, error) {
	token, err := c.oauth2Config.PasswordCredentialsToken(c.context(ctx), username, password)
	if err != nil {
		err = mapTokenError(err)
		var exchangeErr *autherrors.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			switch {
			case isMFAChallenge(exchangeErr):
				return nil, errors.Wrap(autherrors.ErrMFARequired, exchangeErr.Error())
			case isCredentialRejection(exchangeErr):
				return nil, autherrors.ErrInvalidCredentials
			}
		}
		return nil, err
	}

	result := tokenResult(token)
	profile, err := c.FetchUserInfo(ctx, result.AccessToken)
	if err != nil {
		return nil, err
	}
	result.User = profile
	return result, nil
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokenResult(token *oauth2.Token) *authoauth2.TokenResult {
	idToken, _ := token.Extra("id_token").(string)
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = authoauth2.TokenTypeBearer
	}
	return &authoauth2.TokenResult{
		AccessToken:  token.AccessToken,
		TokenType:    tokenType,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		Expiry:       token.Expiry,
	}
}

// isMFAChallenge spots providers asking for a second factor the password
// grant cannot supply.
func isMFAChallenge(err *autherrors.TokenExchangeError) bool {
	switch err.Code {
	case "mfa_required", "interaction_required":
		return true
	}
	description := strings.ToLower(err.Description)
	return strings.Contains(description, "mfa") || strings.Contains(description, "multi-factor")
}

func isCredentialRejection(err *autherrors.TokenExchangeError) bool {
	return err.StatusCode == http.StatusUnauthorized ||
		(err.StatusCode == http.StatusBadRequest && err.Code == "invalid_grant")
}
