package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// DefaultAccessTokenExpiry is the lifetime of an application token.
const DefaultAccessTokenExpiry = 24 * time.Hour

// Manager issues and validates the backend's own bearer tokens.
type Manager struct {
	signer            Signer
	issuer            string
	audience          string
	revokedCache      RevokedTokenCache
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:       signer,
		issuer:       "newsfeed-api",
		audience:     "newsfeed-app",
		revokedCache: NewInMemoryRevokedTokenCache(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// CreateAccessToken mints a signed token for profile.
func (m *Manager) CreateAccessToken(profile users.Profile) (string, *Claims, error) {
	if profile.Subject == "" {
		return "", nil, errors.New("[Manager.CreateAccessToken] profile has no subject")
	}

	now := m.nowFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,                                         // Who minted the token
			Audience:  jwt.ClaimStrings{m.audience},                     // Who may accept it
			Subject:   profile.Subject,                                  // Provider user id
			IssuedAt:  jwt.NewNumericDate(now),                          // Issued At
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)), // Expiry
			ID:        uuid.New().String(),                              // Unique token ID for revocation
		},
		Email:             profile.Email,
		Name:              profile.Name,
		PreferredUsername: profile.PreferredUsername,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Manager.CreateAccessToken] sign")
	}
	return signed, claims, nil
}

// Validate verifies a token minted by this manager. Tokens that are not JWTs,
// or carry another issuer, return ErrForeignToken so callers can try a
// different authority.
func (m *Manager) Validate(ctx context.Context, rawToken string) (*Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, autherrors.ErrAuthRequired
	}

	var unverified jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, &unverified); err != nil {
		return nil, autherrors.ErrForeignToken
	}
	if unverified.Issuer != m.issuer {
		return nil, autherrors.ErrForeignToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, autherrors.ErrTokenExpired
	case err != nil:
		return nil, errors.Wrap(autherrors.ErrInvalidToken, err.Error())
	case claims.Subject == "":
		return nil, errors.Wrap(autherrors.ErrInvalidToken, "token has no subject")
	}

	if claims.ID != "" {
		revoked, err := m.revokedCache.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, errors.Wrap(err, "[Manager.Validate] revocation lookup")
		}
		if revoked {
			return nil, autherrors.ErrTokenRevoked
		}
	}
	return claims, nil
}

// RevokeAccessToken verifies rawToken and records its jti until it expires.
// It returns the revoked token's claims.
func (m *Manager) RevokeAccessToken(ctx context.Context, rawToken string) (*Claims, error) {
	claims, err := m.Validate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("[Manager.RevokeAccessToken] token missing jti claim")
	}
	if err := m.revokedCache.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, errors.Wrap(err, "[Manager.RevokeAccessToken] record revocation")
	}
	return claims, nil
}

// CleanupRevokedTokens drops revocation entries for tokens that have expired anyway.
func (m *Manager) CleanupRevokedTokens(ctx context.Context) {
	m.revokedCache.Cleanup(ctx)
}
