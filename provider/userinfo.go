package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/users"
)

const maxBodyBytes = 1 << 20

// FetchUserInfo resolves the profile behind an access token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*users.Profile, error) {
	if c.endpoints.UserInfoURL == "" {
		return nil, errors.New("[Client.FetchUserInfo] userinfo endpoint is not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, autherrors.ErrAuthRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.UserInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.FetchUserInfo] build request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, err.Error())
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Wrapf(autherrors.ErrUpstreamUnavailable, "userinfo endpoint returned %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &autherrors.UserInfoError{StatusCode: resp.StatusCode, Body: sanitizeMessage(string(body))}
	}

	var profile users.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &autherrors.UserInfoError{StatusCode: resp.StatusCode, Body: "malformed userinfo response"}
	}
	if profile.Subject == "" {
		return nil, &autherrors.UserInfoError{StatusCode: resp.StatusCode, Body: "userinfo response has no subject"}
	}
	return &profile, nil
}
