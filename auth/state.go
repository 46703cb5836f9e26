package auth

// State is the gateway's position in the login lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAwaitingRedirect
	StateAwaitingCallback
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func (s State) awaiting() bool {
	return s == StateAwaitingRedirect || s == StateAwaitingCallback
}

// Strategy selects how a login is initiated. Both strategies end in the same
// Authenticated state and share the session store.
type Strategy string

const (
	// StrategyRedirect sends the user agent to the provider (authorization code + PKCE).
	StrategyRedirect Strategy = "redirect"
	// StrategyPassword posts credentials to the backend, which proxies them to the provider.
	StrategyPassword Strategy = "password"
)

func (s Strategy) Valid() bool {
	return s == StrategyRedirect || s == StrategyPassword
}

// CallbackParams are the query parameters delivered to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}
