package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/mcpgen/pkg/spec"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/items?page=2", nil)
	require.NoError(t, err)
	return req
}

func TestResolveNoScheme(t *testing.T) {
	ctx, err := Resolve(spec.SchemeNone, nil, Credentials{})
	require.NoError(t, err)
	assert.Equal(t, spec.SchemeNone, ctx.Type)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestResolveBasic(t *testing.T) {
	ctx, err := Resolve(spec.SchemeBasic, nil, Credentials{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	// base64("alice:s3cret")
	assert.Equal(t, "Basic YWxpY2U6czNjcmV0", req.Header.Get("Authorization"))
}

func TestResolveBasicMissingCredentials(t *testing.T) {
	_, err := Resolve(spec.SchemeBasic, nil, Credentials{Username: "alice"})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "basic", cerr.Strategy)
}

func TestResolveBearer(t *testing.T) {
	ctx, err := Resolve(spec.SchemeBearer, nil, Credentials{Token: "tok-123"})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
}

func TestResolveBearerMissingToken(t *testing.T) {
	_, err := Resolve(spec.SchemeBearer, nil, Credentials{})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "bearer", cerr.Strategy)
}

func TestResolveAPIKeyHeader(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeAPIKey, Name: "X-API-Key", In: spec.InHeader}
	ctx, err := Resolve(spec.SchemeNone, declared, Credentials{APIKey: "secret123"})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "secret123", req.Header.Get("X-API-Key"))
	assert.NotContains(t, req.URL.RawQuery, "secret123", "header keys must not leak into the query")
}

func TestResolveAPIKeyQuery(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeAPIKey, Name: "apikey", In: spec.InQuery}
	ctx, err := Resolve(spec.SchemeNone, declared, Credentials{APIKey: "secret123"})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "secret123", req.URL.Query().Get("apikey"))
	assert.Equal(t, "2", req.URL.Query().Get("page"), "existing query params survive")
	assert.Empty(t, req.Header.Get("apikey"), "query keys must not leak into headers")
}

func TestResolveAPIKeyMissingName(t *testing.T) {
	_, err := Resolve(spec.SchemeAPIKey, nil, Credentials{APIKey: "secret"})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "api_key", cerr.Strategy)
	assert.Contains(t, cerr.Error(), "name")
}

func TestResolveAPIKeyCredentialOverridesDeclared(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeAPIKey, Name: "X-Spec-Key", In: spec.InHeader}
	ctx, err := Resolve(spec.SchemeAPIKey, declared, Credentials{
		APIKey:         "secret",
		APIKeyName:     "X-Config-Key",
		APIKeyLocation: "query",
	})
	require.NoError(t, err)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "secret", req.URL.Query().Get("X-Config-Key"))
	assert.Empty(t, req.Header.Get("X-Spec-Key"))
}

func TestResolveOverrideBeatsDeclared(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeAPIKey, Name: "X-API-Key", In: spec.InHeader}
	ctx, err := Resolve(spec.SchemeBearer, declared, Credentials{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, spec.SchemeBearer, ctx.Type)

	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("X-API-Key"))
}

func TestResolveOverrideKeepsDeclaredDetails(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeAPIKey, Name: "X-API-Key", In: spec.InHeader}
	ctx, err := Resolve(spec.SchemeAPIKey, declared, Credentials{APIKey: "secret"})
	require.NoError(t, err)

	// The override confirms the declared type, so the declared key name
	// still applies.
	req := newRequest(t)
	require.NoError(t, ctx.Apply(req))
	assert.Equal(t, "secret", req.Header.Get("X-API-Key"))
}

func TestResolveOAuth2MissingClientSecret(t *testing.T) {
	_, err := Resolve(spec.SchemeOAuth2, nil, Credentials{
		TokenURL: "https://auth.example.com/token",
		ClientID: "client",
	})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "oauth2", cerr.Strategy)
}

func TestResolveOAuth2TokenURLFromSpec(t *testing.T) {
	declared := &spec.SecurityScheme{Type: spec.SchemeOAuth2, TokenURL: "https://auth.example.com/token"}
	ctx, err := Resolve(spec.SchemeNone, declared, Credentials{
		ClientID:     "client",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, spec.SchemeOAuth2, ctx.Type)
}

func TestNilContextApply(t *testing.T) {
	var ctx *Context
	require.NoError(t, ctx.Apply(newRequest(t)))
}
