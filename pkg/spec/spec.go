// Package spec normalizes OpenAPI 3.x documents into the canonical operation
// model the rest of the generator works from.
//
// Normalization is a pure transformation: raw JSON or YAML text in, an
// immutable Document out. Loading the text from disk, a URL, or the spec
// catalog is the source package's job.
package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Location is a parameter's binding site on the outbound request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// Format hints for Normalize. FormatAuto sniffs the payload.
const (
	FormatAuto = ""
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Parameter is one operation input with its binding location and schema.
type Parameter struct {
	Name     string
	In       Location
	Required bool
	Schema   *openapi3.SchemaRef
}

// RequestBody describes an operation's request payload.
type RequestBody struct {
	ContentType string
	Required    bool
	Schema      *openapi3.SchemaRef
}

// Operation is one (HTTP method, path template) entry of the document.
// Values are immutable once Normalize returns.
type Operation struct {
	Method      string
	Path        string
	ID          string // operationId when declared, otherwise empty
	Summary     string
	Description string
	Deprecated  bool
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   map[string]*openapi3.ResponseRef
}

// Key returns the "METHOD /path" identity used in error reporting.
func (op Operation) Key() string { return op.Method + " " + op.Path }

// SchemeType enumerates the security scheme variants the generator handles.
type SchemeType string

const (
	SchemeNone   SchemeType = ""
	SchemeBasic  SchemeType = "basic"
	SchemeBearer SchemeType = "bearer"
	SchemeAPIKey SchemeType = "api_key"
	SchemeOAuth2 SchemeType = "oauth2"
)

// SecurityScheme is the document's declared authentication mechanism.
type SecurityScheme struct {
	Type SchemeType
	// api_key only
	Name string
	In   Location
	// oauth2 client-credentials only
	TokenURL string
	Scopes   []string
}

// Document is the canonical model of one OpenAPI specification.
type Document struct {
	Title      string
	Version    string
	BaseURL    string // servers[0].url, may be empty
	Operations []Operation
	Security   *SecurityScheme // first declared scheme, nil when absent
}

// methodOrder fixes the operation ordering within a path so that
// normalization is deterministic across runs.
var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// Normalize parses raw OpenAPI text into a Document. formatHint is one of
// FormatAuto, FormatJSON, or FormatYAML; with FormatAuto the payload is
// sniffed. Versions below 3.0 and unresolvable internal references fail
// with a *ParseError rather than producing a partial model.
func Normalize(raw []byte, formatHint string) (*Document, error) {
	if len(raw) == 0 {
		return nil, &ParseError{Detail: "empty specification"}
	}
	if err := checkSyntax(raw, formatHint); err != nil {
		return nil, err
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, &ParseError{Detail: "invalid OpenAPI document", Err: err}
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		return nil, &ParseError{Detail: fmt.Sprintf("unsupported OpenAPI version %q, need 3.x", doc.OpenAPI)}
	}
	// Ahead of document validation, which rejects the same documents with a
	// message that names neither the operation nor the parameter.
	if err := checkPathPlaceholders(doc); err != nil {
		return nil, err
	}
	// Resolves internal $refs and surfaces dangling ones.
	if err := doc.Validate(context.Background(), openapi3.DisableExamplesValidation(), openapi3.DisableSchemaDefaultsValidation()); err != nil {
		return nil, &ParseError{Detail: "document failed validation", Err: err}
	}

	out := &Document{}
	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Version = doc.Info.Version
	}
	if len(doc.Servers) > 0 {
		out.BaseURL = strings.TrimRight(doc.Servers[0].URL, "/")
	}
	out.Security = extractScheme(doc)

	if doc.Paths == nil {
		return out, nil
	}

	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		byMethod := operationsByMethod(item)
		for _, method := range methodOrder {
			op := byMethod[method]
			if op == nil {
				continue
			}
			canonical, err := normalizeOperation(method, path, item, op)
			if err != nil {
				return nil, err
			}
			out.Operations = append(out.Operations, canonical)
		}
	}
	return out, nil
}

// checkSyntax rejects malformed payloads before the OpenAPI loader touches
// them, so syntax failures carry the right error and honor the format hint.
func checkSyntax(raw []byte, formatHint string) error {
	format := formatHint
	if format == FormatAuto {
		if looksLikeJSON(raw) {
			format = FormatJSON
		} else {
			format = FormatYAML
		}
	}
	switch format {
	case FormatJSON:
		var probe any
		if err := json.Unmarshal(raw, &probe); err != nil {
			return &ParseError{Detail: "malformed JSON", Err: err}
		}
	case FormatYAML:
		var probe any
		if err := yaml.Unmarshal(raw, &probe); err != nil {
			return &ParseError{Detail: "malformed YAML", Err: err}
		}
	default:
		return &ParseError{Detail: fmt.Sprintf("unknown format hint %q", formatHint)}
	}
	return nil
}

func looksLikeJSON(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func operationsByMethod(item *openapi3.PathItem) map[string]*openapi3.Operation {
	return map[string]*openapi3.Operation{
		"GET":     item.Get,
		"PUT":     item.Put,
		"POST":    item.Post,
		"DELETE":  item.Delete,
		"OPTIONS": item.Options,
		"HEAD":    item.Head,
		"PATCH":   item.Patch,
		"TRACE":   item.Trace,
	}
}

func normalizeOperation(method, path string, item *openapi3.PathItem, op *openapi3.Operation) (Operation, error) {
	canonical := Operation{
		Method:      method,
		Path:        path,
		ID:          op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Deprecated:  op.Deprecated,
		Tags:        op.Tags,
	}

	params, err := flattenParameters(method, path, item.Parameters, op.Parameters)
	if err != nil {
		return Operation{}, err
	}
	canonical.Parameters = params

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		canonical.RequestBody = normalizeRequestBody(op.RequestBody.Value)
	}
	if op.Responses != nil {
		canonical.Responses = op.Responses.Map()
	}
	return canonical, nil
}

// flattenParameters merges path-level and operation-level parameters.
// An operation-level parameter replaces a path-level one sharing the same
// name and location.
func flattenParameters(method, path string, pathLevel, opLevel openapi3.Parameters) ([]Parameter, error) {
	type key struct {
		name string
		in   Location
	}
	var order []key
	merged := make(map[key]Parameter)

	add := func(refs openapi3.Parameters) error {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				return &ParseError{
					Detail:    "unresolved parameter reference",
					Operation: method + " " + path,
				}
			}
			p := ref.Value
			k := key{name: p.Name, in: Location(p.In)}
			if _, seen := merged[k]; !seen {
				order = append(order, k)
			}
			merged[k] = Parameter{
				Name:     p.Name,
				In:       Location(p.In),
				Required: p.Required || p.In == "path",
				Schema:   p.Schema,
			}
		}
		return nil
	}

	if err := add(pathLevel); err != nil {
		return nil, err
	}
	if err := add(opLevel); err != nil {
		return nil, err
	}

	out := make([]Parameter, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out, nil
}

func normalizeRequestBody(rb *openapi3.RequestBody) *RequestBody {
	// JSON bodies first, then the lexicographically first declared content
	// type so the pick is stable across runs.
	for _, ct := range []string{"application/json", "application/vnd.api+json"} {
		if mt := rb.Content.Get(ct); mt != nil {
			return &RequestBody{ContentType: ct, Required: rb.Required, Schema: mt.Schema}
		}
	}
	types := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		types = append(types, ct)
	}
	sort.Strings(types)
	if len(types) > 0 {
		ct := types[0]
		return &RequestBody{ContentType: ct, Required: rb.Required, Schema: rb.Content[ct].Schema}
	}
	return nil
}

// checkPathPlaceholders enforces that every declared path parameter, at the
// path level or the operation level, has a matching {name} placeholder in
// the path template. The failing operation and parameter are named.
func checkPathPlaceholders(doc *openapi3.T) error {
	if doc.Paths == nil {
		return nil
	}
	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		byMethod := operationsByMethod(item)
		for _, method := range methodOrder {
			op := byMethod[method]
			if op == nil {
				continue
			}
			for _, refs := range []openapi3.Parameters{item.Parameters, op.Parameters} {
				for _, ref := range refs {
					if ref == nil || ref.Value == nil || ref.Value.In != "path" {
						continue
					}
					name := ref.Value.Name
					if !strings.Contains(path, "{"+name+"}") {
						return &ParseError{
							Detail:    fmt.Sprintf("path parameter %q has no {%s} placeholder in path template", name, name),
							Operation: method + " " + path,
						}
					}
				}
			}
		}
	}
	return nil
}

// extractScheme maps the document's first declared security scheme onto the
// generator's variants. Unrecognized scheme types are ignored rather than
// failing generation; the explicit auth override covers them.
func extractScheme(doc *openapi3.T) *SecurityScheme {
	if doc.Components == nil || len(doc.Components.SecuritySchemes) == 0 {
		return nil
	}
	names := make([]string, 0, len(doc.Components.SecuritySchemes))
	for name := range doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := doc.Components.SecuritySchemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		s := ref.Value
		switch s.Type {
		case "apiKey":
			in := InHeader
			if s.In == "query" {
				in = InQuery
			}
			return &SecurityScheme{Type: SchemeAPIKey, Name: s.Name, In: in}
		case "http":
			switch s.Scheme {
			case "basic":
				return &SecurityScheme{Type: SchemeBasic}
			case "bearer":
				return &SecurityScheme{Type: SchemeBearer}
			}
		case "oauth2":
			if s.Flows != nil && s.Flows.ClientCredentials != nil {
				flow := s.Flows.ClientCredentials
				scopes := make([]string, 0, len(flow.Scopes))
				for scope := range flow.Scopes {
					scopes = append(scopes, scope)
				}
				sort.Strings(scopes)
				return &SecurityScheme{Type: SchemeOAuth2, TokenURL: flow.TokenURL, Scopes: scopes}
			}
		}
	}
	return nil
}
