package apiclient

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/newsfeed-auth/sessions"
)

// BearerTransport attaches the stored session's access token to outgoing
// requests. Requests go out unauthenticated when there is no session or the
// token is blank; requests that already carry an Authorization header are
// left alone.
type BearerTransport struct {
	Sessions sessions.Store
	Base     http.RoundTripper
}

var _ http.RoundTripper = (*BearerTransport)(nil)

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	session, err := t.Sessions.Load(req.Context())
	if err != nil {
		return nil, errors.Wrap(err, "[BearerTransport.RoundTrip] load session")
	}
	if session == nil || strings.TrimSpace(session.AccessToken) == "" {
		return base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+session.AccessToken)
	return base.RoundTrip(authed)
}

// NewAuthenticatedHTTPClient returns an http.Client that authenticates every
// request with the stored session.
func NewAuthenticatedHTTPClient(store sessions.Store) *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &BearerTransport{Sessions: store},
	}
}
