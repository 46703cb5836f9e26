package config

import (
	"strings"
	"time"
)

type SecurityConfig interface {
	GetAppTokenSecret() string
	GetAppTokenIssuer() string
	GetAppTokenAudience() string
	GetAppTokenExpiry() time.Duration
	GetPKCEFlowTTL() time.Duration
	GetEnableRateLimiting() bool
	GetLoginRateLimit() float64
	GetLoginRateBurst() int
	GetTrustedProxies() []string
	GetRedisURL() string
}

type Security struct {
	AppTokenSecret   string        `env:"APP_TOKEN_SECRET"`
	AppTokenIssuer   string        `env:"APP_TOKEN_ISSUER" envDefault:"newsfeed-api"`
	AppTokenAudience string        `env:"APP_TOKEN_AUDIENCE" envDefault:"newsfeed-app"`
	AppTokenExpiry   time.Duration `env:"APP_TOKEN_EXPIRY" envDefault:"24h"`
	PKCEFlowTTL      time.Duration `env:"PKCE_FLOW_TTL" envDefault:"10m"`
	LoginRateLimit   float64       `env:"LOGIN_RATE_LIMIT" envDefault:"1"`
	LoginRateBurst   int           `env:"LOGIN_RATE_BURST" envDefault:"5"`
	TrustedProxies   []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	RedisURL         string        `env:"REDIS_URL"`
}

var _ SecurityConfig = Security{}

func (s Security) GetAppTokenSecret() string   { return s.AppTokenSecret }
func (s Security) GetAppTokenIssuer() string   { return s.AppTokenIssuer }
func (s Security) GetAppTokenAudience() string { return s.AppTokenAudience }

func (s Security) GetAppTokenExpiry() time.Duration {
	if s.AppTokenExpiry <= 0 {
		return 24 * time.Hour
	}
	return s.AppTokenExpiry
}

func (s Security) GetPKCEFlowTTL() time.Duration {
	if s.PKCEFlowTTL <= 0 {
		return 10 * time.Minute
	}
	return s.PKCEFlowTTL
}

// GetEnableRateLimiting is true unless LOGIN_RATE_LIMIT is set to zero or below.
func (s Security) GetEnableRateLimiting() bool {
	return s.LoginRateLimit > 0
}

func (s Security) GetLoginRateLimit() float64 { return s.LoginRateLimit }

func (s Security) GetLoginRateBurst() int {
	if s.LoginRateBurst <= 0 {
		return 1
	}
	return s.LoginRateBurst
}

// GetTrustedProxies lists the addresses or CIDR ranges whose forwarding
// headers are believed. Empty means the peer address is always used.
func (s Security) GetTrustedProxies() []string {
	var proxies []string
	for _, p := range s.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

func (s Security) GetRedisURL() string { return s.RedisURL }
