package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/users"
)

const defaultSignupMessage = "Account created successfully. You can now log in."

type signupRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
}

type fieldError struct {
	String string `json:"string"`
	Code   string `json:"code"`
}

type signupResponse struct {
	Message          string                  `json:"message"`
	Username         string                  `json:"username"`
	Detail           string                  `json:"detail"`
	Error            string                  `json:"error"`
	ErrorDescription string                  `json:"error_description"`
	ResponseErrors   map[string][]fieldError `json:"response_errors"`
}

func (r signupResponse) reason() string {
	switch {
	case r.ErrorDescription != "":
		return r.ErrorDescription
	case r.Detail != "":
		return r.Detail
	case r.Error != "":
		return r.Error
	default:
		return ""
	}
}

// Signup creates an account at the provider's enrollment endpoint. It never
// establishes a session; the user logs in afterwards.
func (c *Client) Signup(ctx context.Context, creds users.Credentials) (*oauth2.SignupResult, error) {
	if c.endpoints.SignupURL == "" {
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, "user registration is not configured")
	}

	payload, err := json.Marshal(signupRequest{
		Username:       creds.Username,
		Email:          creds.Email,
		Password:       creds.Password,
		PasswordRepeat: creds.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Signup] encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.SignupURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Signup] build request")
	}
	req.Header.Set("Content-Type", "application/json")
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

	var parsed signupResponse
	_ = json.Unmarshal(body, &parsed)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Error().Str("url", c.endpoints.SignupURL).Msg("enrollment endpoint not found")
		return nil, errors.Wrap(autherrors.ErrUpstreamUnavailable, "user registration is not configured")
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Wrapf(autherrors.ErrUpstreamUnavailable, "enrollment endpoint returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusConflict:
		return nil, autherrors.ErrAccountConflict
	case resp.StatusCode == http.StatusForbidden:
		return nil, autherrors.ErrRegistrationDisabled
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, registrationError(resp.StatusCode, parsed)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &autherrors.RegistrationError{StatusCode: resp.StatusCode, Message: "Registration process incomplete"}
	}

	// Some providers answer field errors with 200.
	if len(parsed.ResponseErrors) > 0 {
		return nil, registrationError(http.StatusBadRequest, parsed)
	}

	result := &oauth2.SignupResult{Message: parsed.Message, Username: parsed.Username}
	if result.Message == "" {
		result.Message = defaultSignupMessage
	}
	if result.Username == "" {
		result.Username = creds.Username
	}
	return result, nil
}

func registrationError(status int, parsed signupResponse) error {
	for _, field := range []string{"username", "email"} {
		if len(parsed.ResponseErrors[field]) > 0 {
			return autherrors.ErrAccountConflict
		}
	}
	for _, field := range []string{"password", "non_field_errors"} {
		if errs := parsed.ResponseErrors[field]; len(errs) > 0 && errs[0].String != "" {
			return &autherrors.RegistrationError{StatusCode: status, Message: sanitizeMessage(errs[0].String)}
		}
	}

	message := sanitizeMessage(parsed.reason())
	if message == "" {
		message = "Invalid registration data"
	}
	return &autherrors.RegistrationError{StatusCode: status, Message: message}
}
