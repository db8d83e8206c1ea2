package auth

import "fmt"

// ConfigError reports credentials that are incomplete for the chosen
// strategy. It is fatal to generation.
type ConfigError struct {
	Strategy string
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("auth config error: %s authentication requires %s", e.Strategy, e.Missing)
}

// TokenError reports a failed OAuth2 token fetch. It is fatal to the single
// invocation that triggered the fetch, never to the server.
type TokenError struct {
	Detail string
	Status int // token endpoint status when the response was received
	Err    error
}

func (e *TokenError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oauth2 token error: %s (token endpoint status %d)", e.Detail, e.Status)
	}
	return "oauth2 token error: " + e.Detail
}

func (e *TokenError) Unwrap() error { return e.Err }
