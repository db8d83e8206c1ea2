// Package auth resolves an authentication strategy from a security scheme
// and runtime credentials, and applies it to outbound requests.
//
// Each strategy variant mutates one request with the correct credential:
// basic and bearer set the Authorization header, api_key sets the
// configured header or query parameter (never both), and oauth2 performs a
// client-credentials token fetch with a cached, single-flight refreshed
// token before setting the bearer header.
package auth

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/apiforge/mcpgen/pkg/spec"
)

// Credentials carries the runtime secret material for every strategy
// variant. Only the fields for the resolved variant are consulted.
type Credentials struct {
	// basic
	Username string
	Password string
	// bearer
	Token string
	// api_key
	APIKey         string
	APIKeyName     string
	APIKeyLocation string // "header" or "query", defaults to header
	// oauth2 client credentials
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// Strategy applies one authentication variant to an outbound request.
type Strategy interface {
	Apply(req *http.Request) error
}

// Context pairs a resolved strategy with its scheme type. One Context is
// shared by every tool of a generation so that a refreshed OAuth2 token is
// visible to all of them.
type Context struct {
	Type     spec.SchemeType
	strategy Strategy
}

// Apply mutates req to carry the resolved credentials. For OAuth2 this may
// block on a token fetch; a fetch failure returns a *TokenError and the
// request must not be sent.
func (c *Context) Apply(req *http.Request) error {
	if c == nil || c.strategy == nil {
		return nil
	}
	return c.strategy.Apply(req)
}

// Resolve produces the auth Context for a generation run. override, when
// non-empty, names the strategy to use and takes precedence over the
// document's declared scheme; otherwise declared (which may be nil) decides.
// Incomplete credentials fail with a *ConfigError naming the missing field.
func Resolve(override spec.SchemeType, declared *spec.SecurityScheme, creds Credentials) (*Context, error) {
	scheme := declared
	if override != spec.SchemeNone {
		scheme = &spec.SecurityScheme{Type: override}
		if declared != nil && declared.Type == override {
			// Keep the declared details (key name, token URL) when the
			// override merely confirms the spec's scheme.
			scheme = declared
		}
	}
	if scheme == nil || scheme.Type == spec.SchemeNone {
		return &Context{Type: spec.SchemeNone}, nil
	}

	switch scheme.Type {
	case spec.SchemeBasic:
		if creds.Username == "" || creds.Password == "" {
			return nil, &ConfigError{Strategy: "basic", Missing: "username and password"}
		}
		return &Context{Type: spec.SchemeBasic, strategy: &basicStrategy{
			username: creds.Username,
			password: creds.Password,
		}}, nil

	case spec.SchemeBearer:
		if creds.Token == "" {
			return nil, &ConfigError{Strategy: "bearer", Missing: "a token"}
		}
		return &Context{Type: spec.SchemeBearer, strategy: &bearerStrategy{token: creds.Token}}, nil

	case spec.SchemeAPIKey:
		name := creds.APIKeyName
		if name == "" {
			name = scheme.Name
		}
		location := spec.Location(creds.APIKeyLocation)
		if location == "" {
			location = scheme.In
		}
		if location == "" {
			location = spec.InHeader
		}
		switch {
		case creds.APIKey == "":
			return nil, &ConfigError{Strategy: "api_key", Missing: "a key value"}
		case name == "":
			return nil, &ConfigError{Strategy: "api_key", Missing: "a key name"}
		case location != spec.InHeader && location != spec.InQuery:
			return nil, &ConfigError{Strategy: "api_key", Missing: "a location of header or query"}
		}
		return &Context{Type: spec.SchemeAPIKey, strategy: &apiKeyStrategy{
			name:     name,
			value:    creds.APIKey,
			location: location,
		}}, nil

	case spec.SchemeOAuth2:
		tokenURL := creds.TokenURL
		if tokenURL == "" {
			tokenURL = scheme.TokenURL
		}
		switch {
		case tokenURL == "":
			return nil, &ConfigError{Strategy: "oauth2", Missing: "a token URL"}
		case creds.ClientID == "":
			return nil, &ConfigError{Strategy: "oauth2", Missing: "a client ID"}
		case creds.ClientSecret == "":
			return nil, &ConfigError{Strategy: "oauth2", Missing: "a client secret"}
		}
		return &Context{Type: spec.SchemeOAuth2, strategy: newOAuth2Strategy(oauth2Config{
			tokenURL:     tokenURL,
			clientID:     creds.ClientID,
			clientSecret: creds.ClientSecret,
			scope:        creds.Scope,
			client:       &http.Client{Timeout: 30 * time.Second},
		})}, nil
	}
	return nil, &ConfigError{Strategy: string(scheme.Type), Missing: "a supported strategy type"}
}

type basicStrategy struct {
	username string
	password string
}

func (s *basicStrategy) Apply(req *http.Request) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(s.username + ":" + s.password))
	req.Header.Set("Authorization", "Basic "+encoded)
	return nil
}

type bearerStrategy struct {
	token string
}

func (s *bearerStrategy) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return nil
}

type apiKeyStrategy struct {
	name     string
	value    string
	location spec.Location
}

func (s *apiKeyStrategy) Apply(req *http.Request) error {
	switch s.location {
	case spec.InQuery:
		q := req.URL.Query()
		q.Set(s.name, s.value)
		req.URL.RawQuery = q.Encode()
	default:
		req.Header.Set(s.name, s.value)
	}
	return nil
}
