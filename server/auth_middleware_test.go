package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/server"
	"github.com/jrsteele09/newsfeed-auth/users"
)

func TestSubjectFromContext(t *testing.T) {
	require.Empty(t, server.SubjectFromContext(context.Background()))
	_, ok := server.UserFromContext(context.Background())
	require.False(t, ok)

	ctx := context.WithValue(context.Background(), server.ContextKeyUser, ann)
	require.Equal(t, ann.Subject, server.SubjectFromContext(ctx))
	profile, ok := server.UserFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, ann, profile)

	ctx = context.WithValue(context.Background(), server.ContextKeyUser, users.Profile{Name: "no subject"})
	require.Empty(t, server.SubjectFromContext(ctx))
}

func TestAuthorizer_Authorize(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.userInfo["oauth-token"] = ann
	authorizer := server.NewAuthorizer(f.tokens, f.provider)

	appToken, _, err := f.tokens.CreateAccessToken(ann)
	require.NoError(t, err)

	identity, err := authorizer.Authorize(context.Background(), appToken)
	require.NoError(t, err)
	require.Equal(t, ann.Subject, identity.Profile.Subject)
	require.NotNil(t, identity.Claims)
	require.Equal(t, ann.Subject, identity.Claims.Subject)

	identity, err = authorizer.Authorize(context.Background(), "oauth-token")
	require.NoError(t, err)
	require.Equal(t, ann, identity.Profile)
	require.Nil(t, identity.Claims)

	_, err = authorizer.Authorize(context.Background(), "unknown-token")
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)

	_, err = authorizer.Authorize(context.Background(), "  ")
	require.ErrorIs(t, err, autherrors.ErrAuthRequired)
}
