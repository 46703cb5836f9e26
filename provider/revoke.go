package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Revoke asks the provider to invalidate a token (RFC 7009). It is a no-op
// when the provider has no revocation endpoint. Callers treat failures as
// best-effort.
func (c *Client) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	if c.endpoints.RevocationURL == "" || token == "" {
		return nil
	}

	form := url.Values{
		"token":     {token},
		"client_id": {c.oauth2Config.ClientID},
	}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	if c.oauth2Config.ClientSecret != "" {
		form.Set("client_secret", c.oauth2Config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[Client.Revoke] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Client.Revoke] request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("[Client.Revoke] revocation endpoint returned %d", resp.StatusCode)
	}
	return nil
}
