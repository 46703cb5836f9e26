package provider

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
)

const maxMessageLength = 200

// mapTokenError converts x/oauth2 token endpoint failures into the error taxonomy.
func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if status >= http.StatusInternalServerError {
			return errors.Wrapf(autherrors.ErrUpstreamUnavailable, "token endpoint returned %d", status)
		}
		return &autherrors.TokenExchangeError{
			StatusCode:  status,
			Code:        retrieveErr.ErrorCode,
			Description: sanitizeMessage(retrieveErr.ErrorDescription),
		}
	}
	if isTransportError(err) {
		return errors.Wrap(autherrors.ErrUpstreamUnavailable, err.Error())
	}
	// 2xx with an unusable body (missing access_token and similar)
	return &autherrors.TokenExchangeError{StatusCode: http.StatusOK, Code: "invalid_response", Description: sanitizeMessage(err.Error())}
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// sanitizeMessage keeps a provider message short and printable so it can be shown to a user.
func sanitizeMessage(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxMessageLength {
		s = strings.TrimSpace(string(runes[:maxMessageLength])) + "..."
	}
	return s
}
