package provider

import (
	"net/http"
	"time"

	"github.com/jrsteele09/newsfeed-auth/internal/config"
)

// DefaultTimeout bounds every provider round trip.
const DefaultTimeout = 15 * time.Second

// Endpoints are the provider URLs the client talks to. Empty values are
// filled from discovery when an issuer is configured.
type Endpoints struct {
	AuthURL       string
	TokenURL      string
	UserInfoURL   string
	RevocationURL string
	SignupURL     string
}

// Config describes the registered client at the identity provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoints    Endpoints
	Timeout      time.Duration
	HTTPClient   *http.Client // optional; built from Timeout when nil
}

// ConfigFromOAuth maps the environment configuration onto a provider Config.
func ConfigFromOAuth(c config.OAuthConfig) Config {
	return Config{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURL(),
		Scopes:       c.GetScopes(),
		Endpoints: Endpoints{
			AuthURL:       c.GetAuthURL(),
			TokenURL:      c.GetTokenURL(),
			UserInfoURL:   c.GetUserInfoURL(),
			RevocationURL: c.GetRevocationURL(),
			SignupURL:     c.GetSignupURL(),
		},
		Timeout: c.GetProviderTimeout(),
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// merge fills empty endpoints in e from other.
func (e Endpoints) merge(other Endpoints) Endpoints {
	if e.AuthURL == "" {
		e.AuthURL = other.AuthURL
	}
	if e.TokenURL == "" {
		e.TokenURL = other.TokenURL
	}
	if e.UserInfoURL == "" {
		e.UserInfoURL = other.UserInfoURL
	}
	if e.RevocationURL == "" {
		e.RevocationURL = other.RevocationURL
	}
	if e.SignupURL == "" {
		e.SignupURL = other.SignupURL
	}
	return e
}
