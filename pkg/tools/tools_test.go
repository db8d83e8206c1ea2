package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/mcpgen/pkg/auth"
	"github.com/apiforge/mcpgen/pkg/spec"
)

func TestToolName(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"GET", "/items/{id}", "get_items_id"},
		{"GET", "/items", "get_items"},
		{"POST", "/items", "post_items"},
		{"DELETE", "/users/{userId}/pets/{petId}", "delete_users_userid_pets_petid"},
		{"GET", "/", "get"},
		{"GET", "/v1.0/status", "get_v1_0_status"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ToolName(tt.method, tt.path))
		})
	}
}

func TestSynthesize(t *testing.T) {
	doc := &spec.Document{
		Title:   "Pets",
		BaseURL: "https://api.example.com/v1",
		Operations: []spec.Operation{
			{Method: "GET", Path: "/pets", Summary: "List pets"},
			{Method: "GET", Path: "/pets/{petId}"},
		},
	}
	authCtx, err := auth.Resolve(spec.SchemeNone, nil, auth.Credentials{})
	require.NoError(t, err)

	descs, err := Synthesize(doc, authCtx, "")
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, "get_pets", descs[0].Name)
	assert.Equal(t, "List pets", descs[0].Description)
	assert.Equal(t, "https://api.example.com/v1", descs[0].BaseURL)

	assert.Equal(t, "get_pets_petid", descs[1].Name)
	assert.Equal(t, "Invoke GET /pets/{petId}.", descs[1].Description)

	// Every tool shares the one auth context.
	assert.Same(t, descs[0].Auth, descs[1].Auth)
}

func TestSynthesizeBaseURLOverride(t *testing.T) {
	doc := &spec.Document{
		BaseURL:    "https://spec.example.com",
		Operations: []spec.Operation{{Method: "GET", Path: "/pets"}},
	}
	descs, err := Synthesize(doc, nil, "https://override.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", descs[0].BaseURL)
}

func TestSynthesizeNameCollision(t *testing.T) {
	doc := &spec.Document{
		Operations: []spec.Operation{
			{Method: "GET", Path: "/items/{id}"},
			{Method: "GET", Path: "/items/id"},
		},
	}
	_, err := Synthesize(doc, nil, "")
	var cerr *NameCollisionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "get_items_id", cerr.Name)
	assert.Equal(t, "GET /items/{id}", cerr.First)
	assert.Equal(t, "GET /items/id", cerr.Second)
}

func TestDescribeDeprecated(t *testing.T) {
	doc := &spec.Document{
		Operations: []spec.Operation{
			{Method: "GET", Path: "/old", Summary: "Old endpoint", Deprecated: true},
		},
	}
	descs, err := Synthesize(doc, nil, "")
	require.NoError(t, err)
	assert.Contains(t, descs[0].Description, "deprecated")
}
