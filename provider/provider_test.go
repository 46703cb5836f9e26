package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/oauth2"
	"github.com/jrsteele09/newsfeed-auth/pkce"
	"github.com/jrsteele09/newsfeed-auth/provider"
	"github.com/jrsteele09/newsfeed-auth/users"
)

// fakeProvider is a scriptable identity provider.
type fakeProvider struct {
	t          *testing.T
	server     *httptest.Server
	tokenCalls atomic.Int32

	tokenHandler    http.HandlerFunc
	userInfoHandler http.HandlerFunc
	signupHandler   http.HandlerFunc
	revokeHandler   http.HandlerFunc
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	fp := &fakeProvider{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		fp.tokenCalls.Add(1)
		fp.tokenHandler(w, r)
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) { fp.userInfoHandler(w, r) })
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) { fp.signupHandler(w, r) })
	mux.HandleFunc("POST /revoke", func(w http.ResponseWriter, r *http.Request) { fp.revokeHandler(w, r) })
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 fp.server.URL,
			"authorization_endpoint": fp.server.URL + "/authorize",
			"token_endpoint":         fp.server.URL + "/token",
			"userinfo_endpoint":      fp.server.URL + "/userinfo",
			"revocation_endpoint":    fp.server.URL + "/revoke",
			"jwks_uri":               fp.server.URL + "/jwks",
		})
	})

	fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-1", "token_type": "Bearer", "expires_in": 3600, "id_token": "id-1",
		})
	}
	fp.userInfoHandler = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sub": "user-1", "email": "ann@example.com", "name": "Ann", "preferred_username": "ann",
		})
	}
	fp.signupHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"message": "created"})
	}
	fp.revokeHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	fp.server = httptest.NewServer(mux)
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) endpoints() provider.Endpoints {
	return provider.Endpoints{
		AuthURL:       fp.server.URL + "/authorize",
		TokenURL:      fp.server.URL + "/token",
		UserInfoURL:   fp.server.URL + "/userinfo",
		RevocationURL: fp.server.URL + "/revoke",
		SignupURL:     fp.server.URL + "/signup",
	}
}

func (fp *fakeProvider) client() *provider.Client {
	fp.t.Helper()
	c, err := provider.NewWithEndpoints(testConfig(), fp.endpoints())
	require.NoError(fp.t, err)
	return c
}

func testConfig() provider.Config {
	return provider.Config{
		ClientID:    "newsfeed-app",
		RedirectURL: "http://127.0.0.1:8085/callback",
		Scopes:      []string{"openid", "profile", "email"},
		Timeout:     2 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthCodeURL(t *testing.T) {
	fp := newFakeProvider(t)
	challenge, err := pkce.Generate()
	require.NoError(t, err)

	raw := fp.client().AuthCodeURL("state-1", challenge.CodeChallenge)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "/authorize", u.Path)
	require.Equal(t, string(oauth2.CodeResponseType), q.Get("response_type"))
	require.Equal(t, "newsfeed-app", q.Get("client_id"))
	require.Equal(t, "http://127.0.0.1:8085/callback", q.Get("redirect_uri"))
	require.Equal(t, "openid profile email", q.Get("scope"))
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, challenge.CodeChallenge, q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestExchangeAuthorizationCode(t *testing.T) {
	fp := newFakeProvider(t)
	var form url.Values
	fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-1", "token_type": "Bearer", "expires_in": 3600, "id_token": "id-1",
		})
	}

	result, err := fp.client().ExchangeAuthorizationCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	require.Equal(t, "access-1", result.AccessToken)
	require.Equal(t, "id-1", result.IDToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), result.Expiry, time.Minute)

	require.Equal(t, string(oauth2.AuthorizationCodeGrant), form.Get("grant_type"))
	require.Equal(t, "code-1", form.Get("code"))
	require.Equal(t, "verifier-1", form.Get("code_verifier"))
	require.Equal(t, "newsfeed-app", form.Get("client_id"))
	require.Equal(t, "http://127.0.0.1:8085/callback", form.Get("redirect_uri"))
}

func TestExchangeAuthorizationCode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rejected grant",
			status: http.StatusBadRequest,
			body:   map[string]any{"error": "invalid_grant", "error_description": "code expired"},
			check: func(t *testing.T, err error) {
				var exchangeErr *autherrors.TokenExchangeError
				require.ErrorAs(t, err, &exchangeErr)
				require.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
				require.Equal(t, "invalid_grant", exchangeErr.Code)
				require.Equal(t, "code expired", exchangeErr.Description)
			},
		},
		{
			name:   "provider down",
			status: http.StatusBadGateway,
			body:   map[string]any{"error": "bad_gateway"},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) { writeJSON(w, tt.status, tt.body) }

			_, err := fp.client().ExchangeAuthorizationCode(context.Background(), "code-1", "verifier-1")
			require.Error(t, err)
			tt.check(t, err)
			require.Equal(t, int32(1), fp.tokenCalls.Load(), "no retries")
		})
	}
}

func TestExchangeAuthorizationCode_Timeout(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "late"})
	}

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	c, err := provider.NewWithEndpoints(cfg, fp.endpoints())
	require.NoError(t, err)

	_, err = c.ExchangeAuthorizationCode(context.Background(), "code-1", "verifier-1")
	require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
}

func TestExchangeAuthorizationCode_EmptyCode(t *testing.T) {
	fp := newFakeProvider(t)
	_, err := fp.client().ExchangeAuthorizationCode(context.Background(), " ", "verifier-1")

	var validationErr *autherrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Zero(t, fp.tokenCalls.Load())
}

func TestFetchUserInfo(t *testing.T) {
	fp := newFakeProvider(t)
	c := fp.client()

	profile, err := c.FetchUserInfo(context.Background(), "access-1")
	require.NoError(t, err)
	require.Equal(t, users.Profile{Subject: "user-1", Email: "ann@example.com", Name: "Ann", PreferredUsername: "ann"}, *profile)

	_, err = c.FetchUserInfo(context.Background(), "wrong")
	var userInfoErr *autherrors.UserInfoError
	require.ErrorAs(t, err, &userInfoErr)
	require.Equal(t, http.StatusUnauthorized, userInfoErr.StatusCode)
	require.Equal(t, http.StatusUnauthorized, autherrors.HTTPStatus(err))
}

func TestFetchUserInfo_MissingSubject(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfoHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"email": "ann@example.com"})
	}

	_, err := fp.client().FetchUserInfo(context.Background(), "access-1")
	var userInfoErr *autherrors.UserInfoError
	require.ErrorAs(t, err, &userInfoErr)
}

func TestFetchUserInfo_ServerError(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfoHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }

	_, err := fp.client().FetchUserInfo(context.Background(), "access-1")
	require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
}

func TestPasswordLogin(t *testing.T) {
	fp := newFakeProvider(t)
	var form url.Values
	fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "access-1", "token_type": "Bearer"})
	}

	result, err := fp.client().PasswordLogin(context.Background(), "ann", "password1")
	require.NoError(t, err)
	require.Equal(t, "access-1", result.AccessToken)
	require.NotNil(t, result.User)
	require.Equal(t, "user-1", result.User.Subject)
	require.True(t, result.Expiry.IsZero())

	require.Equal(t, string(oauth2.PasswordGrant), form.Get("grant_type"))
	require.Equal(t, "ann", form.Get("username"))
	require.Equal(t, "password1", form.Get("password"))
}

func TestPasswordLogin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   error
	}{
		{"invalid grant", http.StatusBadRequest, map[string]any{"error": "invalid_grant"}, autherrors.ErrInvalidCredentials},
		{"unauthorized", http.StatusUnauthorized, map[string]any{"error": "invalid_client"}, autherrors.ErrInvalidCredentials},
		{"unavailable", http.StatusServiceUnavailable, map[string]any{}, autherrors.ErrUpstreamUnavailable},
		{"mfa required", http.StatusBadRequest, map[string]any{"error": "mfa_required"}, autherrors.ErrMFARequired},
		{"interaction required", http.StatusBadRequest, map[string]any{"error": "interaction_required"}, autherrors.ErrMFARequired},
		{"totp stage", http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Multi-factor authentication required"}, autherrors.ErrMFARequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) { writeJSON(w, tt.status, tt.body) }

			_, err := fp.client().PasswordLogin(context.Background(), "ann", "password1")
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, int32(1), fp.tokenCalls.Load())
		})
	}
}

func TestPasswordLogin_OtherRejection(t *testing.T) {
	fp := newFakeProvider(t)
	fp.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
	}

	_, err := fp.client().PasswordLogin(context.Background(), "ann", "password1")
	var exchangeErr *autherrors.TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, "unsupported_grant_type", exchangeErr.Code)
}

func TestSignup(t *testing.T) {
	fp := newFakeProvider(t)
	var got map[string]string
	fp.signupHandler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{})
	}

	result, err := fp.client().Signup(context.Background(), users.Credentials{
		Username: "ann", Email: "ann@example.com", Password: "password1",
	})
	require.NoError(t, err)
	require.Equal(t, "ann", result.Username)
	require.NotEmpty(t, result.Message)
	require.Equal(t, "ann", got["username"])
	require.Equal(t, "ann@example.com", got["email"])
	require.Equal(t, "password1", got["password"])
}

func TestSignup_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]any
		wantStatus int
		want       error
	}{
		{"conflict", http.StatusConflict, map[string]any{"detail": "exists"}, http.StatusConflict, autherrors.ErrAccountConflict},
		{"disabled", http.StatusForbidden, map[string]any{}, http.StatusForbidden, autherrors.ErrRegistrationDisabled},
		{"unavailable", http.StatusInternalServerError, map[string]any{}, http.StatusServiceUnavailable, autherrors.ErrUpstreamUnavailable},
		{"not configured", http.StatusNotFound, map[string]any{}, http.StatusServiceUnavailable, autherrors.ErrUpstreamUnavailable},
		{
			"field conflict on 200", http.StatusOK,
			map[string]any{"response_errors": map[string]any{"username": []map[string]string{{"string": "taken"}}}},
			http.StatusConflict, autherrors.ErrAccountConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.signupHandler = func(w http.ResponseWriter, r *http.Request) { writeJSON(w, tt.status, tt.body) }

			_, err := fp.client().Signup(context.Background(), users.Credentials{Username: "ann", Email: "ann@example.com", Password: "password1"})
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.wantStatus, autherrors.HTTPStatus(err))
		})
	}
}

func TestSignup_BadRequestMessageIsSanitized(t *testing.T) {
	fp := newFakeProvider(t)
	fp.signupHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "password\n too   common"})
	}

	_, err := fp.client().Signup(context.Background(), users.Credentials{Username: "ann", Email: "ann@example.com", Password: "password1"})
	var regErr *autherrors.RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "password too common", regErr.Message)
	require.Equal(t, http.StatusBadRequest, autherrors.HTTPStatus(err))
}

func TestRevoke(t *testing.T) {
	fp := newFakeProvider(t)
	var form url.Values
	fp.revokeHandler = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.WriteHeader(http.StatusOK)
	}

	require.NoError(t, fp.client().Revoke(context.Background(), "access-1", "access_token"))
	require.Equal(t, "access-1", form.Get("token"))
	require.Equal(t, "access_token", form.Get("token_type_hint"))
	require.Equal(t, "newsfeed-app", form.Get("client_id"))

	fp.revokeHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) }
	require.Error(t, fp.client().Revoke(context.Background(), "access-1", ""))
}

func TestRevoke_NoEndpointIsNoop(t *testing.T) {
	fp := newFakeProvider(t)
	endpoints := fp.endpoints()
	endpoints.RevocationURL = ""
	c, err := provider.NewWithEndpoints(testConfig(), endpoints)
	require.NoError(t, err)

	require.NoError(t, c.Revoke(context.Background(), "access-1", ""))
}

func TestNew_Discovery(t *testing.T) {
	fp := newFakeProvider(t)
	cfg := testConfig()
	cfg.IssuerURL = fp.server.URL
	cfg.Endpoints.SignupURL = fp.server.URL + "/signup"

	c, err := provider.New(context.Background(), cfg)
	require.NoError(t, err)

	endpoints := c.Endpoints()
	require.Equal(t, fp.server.URL+"/token", endpoints.TokenURL)
	require.Equal(t, fp.server.URL+"/userinfo", endpoints.UserInfoURL)
	require.Equal(t, fp.server.URL+"/revoke", endpoints.RevocationURL)
	require.Equal(t, fp.server.URL+"/signup", endpoints.SignupURL)
}

func TestNew_DiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	cfg := testConfig()
	cfg.IssuerURL = server.URL
	_, err := provider.New(context.Background(), cfg)
	require.ErrorIs(t, err, autherrors.ErrUpstreamUnavailable)
}

func TestNewWithEndpoints_RequiresTokenURL(t *testing.T) {
	_, err := provider.NewWithEndpoints(testConfig(), provider.Endpoints{})
	require.Error(t, err)
}
