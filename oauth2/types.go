package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint. Only the authorization code flow is used.
type ResponseType string

const (
	// CodeResponseType asks the provider for an authorization code that is
	// later exchanged, together with the PKCE verifier, at the token endpoint.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 sends code_challenge = BASE64URL(SHA256(code_verifier)).
	// The plain method is never used.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code plus code_verifier for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// PasswordGrant exchanges a username and password for tokens. Only the
	// backend uses it, proxying the credentials of the custom login form.
	PasswordGrant GrantType = "password"
)

// TokenTypeHint values for RFC 7009 revocation requests.
const (
	AccessTokenHint  = "access_token"
	RefreshTokenHint = "refresh_token"
)

// TokenTypeBearer is the only token type issued to clients.
const TokenTypeBearer = "bearer"
