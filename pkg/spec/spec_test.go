package spec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petsJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Pets", "version": "1.2.0"},
  "servers": [{"url": "https://api.example.com/v1/"}],
  "paths": {
    "/pets": {
      "get": {
        "summary": "List pets",
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "ok"}}
      },
      "post": {
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {"schema": {"type": "object", "properties": {"name": {"type": "string"}}}}
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/pets/{petId}": {
      "parameters": [
        {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}
      ],
      "get": {"responses": {"200": {"description": "ok"}}},
      "delete": {"responses": {"204": {"description": "gone"}}}
    }
  }
}`

const petsYAML = `
openapi: 3.0.3
info:
  title: Pets
  version: 1.2.0
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
`

func TestNormalizeJSON(t *testing.T) {
	doc, err := Normalize([]byte(petsJSON), FormatAuto)
	require.NoError(t, err)

	assert.Equal(t, "Pets", doc.Title)
	assert.Equal(t, "1.2.0", doc.Version)
	assert.Equal(t, "https://api.example.com/v1", doc.BaseURL, "trailing slash is trimmed")

	require.Len(t, doc.Operations, 4)
	keys := make([]string, 0, len(doc.Operations))
	for _, op := range doc.Operations {
		keys = append(keys, op.Key())
	}
	// Paths sort lexicographically, methods in fixed order within a path.
	assert.Equal(t, []string{
		"GET /pets",
		"POST /pets",
		"GET /pets/{petId}",
		"DELETE /pets/{petId}",
	}, keys)
}

func TestNormalizeYAML(t *testing.T) {
	doc, err := Normalize([]byte(petsYAML), FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, "Pets", doc.Title)
	require.Len(t, doc.Operations, 1)
	assert.Equal(t, "GET /pets", doc.Operations[0].Key())
}

func TestNormalizeDeterministic(t *testing.T) {
	first, err := Normalize([]byte(petsJSON), FormatJSON)
	require.NoError(t, err)
	second, err := Normalize([]byte(petsJSON), FormatJSON)
	require.NoError(t, err)

	require.Equal(t, len(first.Operations), len(second.Operations))
	for i := range first.Operations {
		assert.Equal(t, first.Operations[i].Key(), second.Operations[i].Key())
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	_, err := Normalize(nil, FormatAuto)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestNormalizeMalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{"openapi": "3.0.0",`), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "malformed JSON")
}

func TestNormalizeHonorsFormatHint(t *testing.T) {
	// Valid YAML handed in with a JSON hint must fail as JSON.
	_, err := Normalize([]byte("openapi: 3.0.0\n"), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestNormalizeRejectsSwagger2(t *testing.T) {
	raw := `{"swagger": "2.0", "info": {"title": "Old", "version": "1"}, "paths": {}}`
	_, err := Normalize([]byte(raw), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestNormalizeRejectsDanglingRef(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Broken", "version": "1"},
	  "paths": {
	    "/items": {
	      "get": {
	        "parameters": [{"$ref": "#/components/parameters/NoSuchParam"}],
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	_, err := Normalize([]byte(raw), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestNormalizePathParamWithoutPlaceholder(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Bad", "version": "1"},
	  "paths": {
	    "/items": {
	      "get": {
	        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	_, err := Normalize([]byte(raw), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "placeholder")
	assert.Equal(t, "GET /items", perr.Operation, "the failing operation is named")
	assert.Contains(t, perr.Error(), `"id"`, "the failing parameter is named")
}

func TestNormalizePathLevelParamWithoutPlaceholder(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Bad", "version": "1"},
	  "paths": {
	    "/items": {
	      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
	      "post": {"responses": {"200": {"description": "ok"}}}
	    }
	  }
	}`
	_, err := Normalize([]byte(raw), FormatJSON)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "placeholder")
	assert.Equal(t, "POST /items", perr.Operation)
}

func TestFlattenParametersOverride(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Merge", "version": "1"},
	  "paths": {
	    "/items": {
	      "parameters": [
	        {"name": "limit", "in": "query", "schema": {"type": "integer"}},
	        {"name": "verbose", "in": "query", "schema": {"type": "boolean"}}
	      ],
	      "get": {
	        "parameters": [
	          {"name": "limit", "in": "query", "required": true, "schema": {"type": "string"}}
	        ],
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	doc, err := Normalize([]byte(raw), FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)

	params := doc.Operations[0].Parameters
	require.Len(t, params, 2)

	// The operation-level limit wins and keeps the path-level position.
	assert.Equal(t, "limit", params[0].Name)
	assert.True(t, params[0].Required)
	require.NotNil(t, params[0].Schema.Value.Type)
	assert.True(t, params[0].Schema.Value.Type.Is("string"))
	assert.Equal(t, "verbose", params[1].Name)
}

func TestPathParamsForcedRequired(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "PathReq", "version": "1"},
	  "paths": {
	    "/items/{id}": {
	      "get": {
	        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	doc, err := Normalize([]byte(raw), FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Operations[0].Parameters, 1)
	assert.True(t, doc.Operations[0].Parameters[0].Required)
}

func TestRequestBodyPrefersJSON(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Body", "version": "1"},
	  "paths": {
	    "/upload": {
	      "post": {
	        "requestBody": {
	          "content": {
	            "text/plain": {"schema": {"type": "string"}},
	            "application/json": {"schema": {"type": "object"}}
	          }
	        },
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	doc, err := Normalize([]byte(raw), FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, doc.Operations[0].RequestBody)
	assert.Equal(t, "application/json", doc.Operations[0].RequestBody.ContentType)
}

func TestExtractSchemeVariants(t *testing.T) {
	tests := []struct {
		name    string
		schemes string
		want    SecurityScheme
	}{
		{
			name:    "api key in header",
			schemes: `{"key": {"type": "apiKey", "name": "X-API-Key", "in": "header"}}`,
			want:    SecurityScheme{Type: SchemeAPIKey, Name: "X-API-Key", In: InHeader},
		},
		{
			name:    "api key in query",
			schemes: `{"key": {"type": "apiKey", "name": "apikey", "in": "query"}}`,
			want:    SecurityScheme{Type: SchemeAPIKey, Name: "apikey", In: InQuery},
		},
		{
			name:    "http basic",
			schemes: `{"auth": {"type": "http", "scheme": "basic"}}`,
			want:    SecurityScheme{Type: SchemeBasic},
		},
		{
			name:    "http bearer",
			schemes: `{"auth": {"type": "http", "scheme": "bearer"}}`,
			want:    SecurityScheme{Type: SchemeBearer},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{
			  "openapi": "3.0.0",
			  "info": {"title": "Secure", "version": "1"},
			  "components": {"securitySchemes": ` + tt.schemes + `},
			  "paths": {}
			}`
			doc, err := Normalize([]byte(raw), FormatJSON)
			require.NoError(t, err)
			require.NotNil(t, doc.Security)
			assert.Equal(t, tt.want, *doc.Security)
		})
	}
}

func TestExtractSchemeOAuth2ClientCredentials(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Secure", "version": "1"},
	  "components": {"securitySchemes": {"oauth": {
	    "type": "oauth2",
	    "flows": {"clientCredentials": {
	      "tokenUrl": "https://auth.example.com/token",
	      "scopes": {"read": "read access", "write": "write access"}
	    }}
	  }}},
	  "paths": {}
	}`
	doc, err := Normalize([]byte(raw), FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, doc.Security)
	assert.Equal(t, SchemeOAuth2, doc.Security.Type)
	assert.Equal(t, "https://auth.example.com/token", doc.Security.TokenURL)
	assert.Equal(t, []string{"read", "write"}, doc.Security.Scopes)
}

func TestNoDeclaredScheme(t *testing.T) {
	doc, err := Normalize([]byte(petsYAML), FormatYAML)
	require.NoError(t, err)
	assert.Nil(t, doc.Security)
}

func TestRequestBodyFallbackDeterministic(t *testing.T) {
	raw := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Body", "version": "1"},
	  "paths": {
	    "/upload": {
	      "post": {
	        "requestBody": {
	          "content": {
	            "text/plain": {"schema": {"type": "string"}},
	            "application/xml": {"schema": {"type": "string"}}
	          }
	        },
	        "responses": {"200": {"description": "ok"}}
	      }
	    }
	  }
	}`
	// Without a JSON body the lexicographically first content type wins,
	// every run.
	for i := 0; i < 5; i++ {
		doc, err := Normalize([]byte(raw), FormatJSON)
		require.NoError(t, err)
		require.NotNil(t, doc.Operations[0].RequestBody)
		assert.Equal(t, "application/xml", doc.Operations[0].RequestBody.ContentType)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Detail: "outer", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestParseErrorIncludesCause(t *testing.T) {
	err := &ParseError{Detail: "document failed validation", Err: errors.New("invalid paths: /pets")}
	assert.Contains(t, err.Error(), "invalid paths: /pets")
}
