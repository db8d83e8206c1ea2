// Package tools synthesizes callable tool descriptors from the canonical
// operation model. Each descriptor carries a deterministic name, a JSON
// Schema for its input, and the operation plus shared auth context its
// invocation closure binds to.
package tools

import (
	"fmt"
	"strings"

	"github.com/apiforge/mcpgen/pkg/auth"
	"github.com/apiforge/mcpgen/pkg/spec"
)

// Descriptor is one synthesized tool. Descriptors are created once per
// generation run and are immutable thereafter.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	Operation   spec.Operation
	BaseURL     string
	Auth        *auth.Context
}

// Synthesize derives one Descriptor per operation in doc. baseURL overrides
// the document's servers[0].url when non-empty. All descriptors share
// authCtx so a refreshed OAuth2 token is visible to every tool. Name
// collisions and untranslatable schemas fail the whole generation.
func Synthesize(doc *spec.Document, authCtx *auth.Context, baseURL string) ([]Descriptor, error) {
	if baseURL == "" {
		baseURL = doc.BaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	claimed := make(map[string]string, len(doc.Operations))
	out := make([]Descriptor, 0, len(doc.Operations))

	for _, op := range doc.Operations {
		name := ToolName(op.Method, op.Path)
		if first, exists := claimed[name]; exists {
			return nil, &NameCollisionError{Name: name, First: first, Second: op.Key()}
		}
		claimed[name] = op.Key()

		schema, err := BuildInputSchema(op)
		if err != nil {
			return nil, err
		}

		out = append(out, Descriptor{
			Name:        name,
			Description: describe(op),
			InputSchema: schema,
			Operation:   op,
			BaseURL:     baseURL,
			Auth:        authCtx,
		})
	}
	return out, nil
}

// ToolName derives the deterministic tool slug for an operation: method and
// path lower-cased, parameter braces stripped, slashes turned into
// underscores. GET /items/{id} becomes get_items_id.
func ToolName(method, path string) string {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(path)
	cleaned = strings.Trim(cleaned, "/")

	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == "" {
			continue
		}
		parts = append(parts, sanitizeSegment(seg))
	}
	return strings.Join(parts, "_")
}

// sanitizeSegment keeps tool names within the character set MCP clients
// accept: lower-case alphanumerics, underscore, hyphen.
func sanitizeSegment(seg string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(seg) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func describe(op spec.Operation) string {
	var parts []string
	if op.Summary != "" {
		parts = append(parts, op.Summary)
	}
	if op.Description != "" {
		parts = append(parts, op.Description)
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Invoke %s %s.", op.Method, op.Path))
	}
	if op.Deprecated {
		parts = append(parts, "WARNING: this operation is deprecated.")
	}
	return strings.Join(parts, "\n\n")
}
