package config

import "time"

// LoginStrategy selects how the end-user client reaches the Authenticated state.
type LoginStrategy string

const (
	LoginStrategyRedirect LoginStrategy = "redirect"
	LoginStrategyPassword LoginStrategy = "password"
)

type OAuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetScopes() []string
	GetAuthURL() string
	GetTokenURL() string
	GetUserInfoURL() string
	GetRevocationURL() string
	GetSignupURL() string
	GetProviderTimeout() time.Duration
	GetLoginStrategy() LoginStrategy
}

// OAuth holds the identity provider settings. Explicit endpoint URLs override
// the values found through OIDC discovery on IssuerURL.
type OAuth struct {
	IssuerURL       string        `env:"OIDC_ISSUER_URL" envDefault:"http://localhost:9000/application/o/newsfeed/"`
	ClientID        string        `env:"OIDC_CLIENT_ID" envDefault:"newsfeed-app"`
	ClientSecret    string        `env:"OIDC_CLIENT_SECRET"`
	RedirectURL     string        `env:"OIDC_REDIRECT_URL" envDefault:"http://127.0.0.1:8085/callback"`
	Scopes          []string      `env:"OIDC_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
	AuthURL         string        `env:"OIDC_AUTH_URL"`
	TokenURL        string        `env:"OIDC_TOKEN_URL"`
	UserInfoURL     string        `env:"OIDC_USERINFO_URL"`
	RevocationURL   string        `env:"OIDC_REVOCATION_URL"`
	SignupURL       string        `env:"OIDC_SIGNUP_URL"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"15s"`
	LoginStrategy   LoginStrategy `env:"LOGIN_STRATEGY" envDefault:"password"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetIssuerURL() string     { return o.IssuerURL }
func (o OAuth) GetClientID() string      { return o.ClientID }
func (o OAuth) GetClientSecret() string  { return o.ClientSecret }
func (o OAuth) GetRedirectURL() string   { return o.RedirectURL }
func (o OAuth) GetScopes() []string      { return o.Scopes }
func (o OAuth) GetAuthURL() string       { return o.AuthURL }
func (o OAuth) GetTokenURL() string      { return o.TokenURL }
func (o OAuth) GetUserInfoURL() string   { return o.UserInfoURL }
func (o OAuth) GetRevocationURL() string { return o.RevocationURL }
func (o OAuth) GetSignupURL() string     { return o.SignupURL }

func (o OAuth) GetProviderTimeout() time.Duration {
	if o.ProviderTimeout <= 0 {
		return 15 * time.Second
	}
	return o.ProviderTimeout
}

func (o OAuth) GetLoginStrategy() LoginStrategy {
	if o.LoginStrategy == LoginStrategyRedirect {
		return LoginStrategyRedirect
	}
	return LoginStrategyPassword
}
