package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/token"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// UserInfoFetcher resolves a provider access token to the user it belongs to.
type UserInfoFetcher interface {
	FetchUserInfo(ctx context.Context, accessToken string) (*users.Profile, error)
}

// Identity is the caller resolved from a bearer token.
type Identity struct {
	Profile users.Profile
	Claims  *token.Claims // nil when the token was issued by the provider
}

// Authorizer resolves bearer tokens. Application tokens are checked locally;
// anything this backend did not mint is tried against the provider's
// user-info endpoint.
type Authorizer struct {
	tokens   *token.Manager
	userInfo UserInfoFetcher
}

func NewAuthorizer(tokens *token.Manager, userInfo UserInfoFetcher) *Authorizer {
	return &Authorizer{tokens: tokens, userInfo: userInfo}
}

func (a *Authorizer) Authorize(ctx context.Context, rawToken string) (*Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, autherrors.ErrAuthRequired
	}

	claims, err := a.tokens.Validate(ctx, rawToken)
	if err == nil {
		return &Identity{Profile: claims.Profile(), Claims: claims}, nil
	}
	if !errors.Is(err, autherrors.ErrForeignToken) || a.userInfo == nil {
		return nil, err
	}

	profile, err := a.userInfo.FetchUserInfo(ctx, rawToken)
	if err != nil {
		var userInfoErr *autherrors.UserInfoError
		if errors.As(err, &userInfoErr) && userInfoErr.StatusCode < http.StatusInternalServerError {
			return nil, errors.Wrap(autherrors.ErrInvalidToken, "provider rejected token")
		}
		return nil, errors.Wrap(err, "[Authorizer.Authorize] userinfo")
	}
	return &Identity{Profile: *profile}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", autherrors.ErrAuthRequired
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		log.Debug().Msg("malformed authorization header")
		return "", errors.Wrap(autherrors.ErrInvalidToken, "malformed authorization header")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", autherrors.ErrAuthRequired
	}
	return raw, nil
}
