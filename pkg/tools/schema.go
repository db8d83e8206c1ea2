package tools

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/apiforge/mcpgen/pkg/spec"
)

// maxSchemaDepth bounds the property recursion. Schemas nested deeper than
// this are treated as unsupported rather than risking unbounded output.
const maxSchemaDepth = 32

// BuildInputSchema converts an operation's parameters and request body into
// a single JSON Schema object for tool input validation. Every parameter
// becomes one property; an object request body becomes a structured "body"
// property. Unsupported constructs (cyclic references, excessive nesting)
// fail with a *SchemaError instead of an approximate schema.
func BuildInputSchema(op spec.Operation) (map[string]any, error) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	properties := schema["properties"].(map[string]any)
	var required []string

	for _, p := range op.Parameters {
		prop, err := translateSchema(p.Schema, translateCtx{
			operation: op.Key(),
			field:     p.Name,
			visited:   map[*openapi3.Schema]bool{},
		})
		if err != nil {
			return nil, err
		}
		if prop == nil {
			// A parameter without a schema still binds as a string.
			prop = map[string]any{"type": "string"}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Schema != nil {
		body, err := translateSchema(op.RequestBody.Schema, translateCtx{
			operation: op.Key(),
			field:     "body",
			visited:   map[*openapi3.Schema]bool{},
		})
		if err != nil {
			return nil, err
		}
		if body != nil {
			if _, ok := body["description"]; !ok {
				body["description"] = "The request body."
			}
			properties["body"] = body
			if op.RequestBody.Required {
				required = append(required, "body")
			}
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, nil
}

type translateCtx struct {
	operation string
	field     string
	depth     int
	visited   map[*openapi3.Schema]bool
}

func (c translateCtx) descend() translateCtx {
	c.depth++
	return c
}

// translateSchema recursively maps an OpenAPI schema onto a JSON Schema
// fragment. Handles allOf merging, oneOf/anyOf variants, objects, arrays,
// enum, format, and default.
func translateSchema(ref *openapi3.SchemaRef, ctx translateCtx) (map[string]any, error) {
	if ref == nil || ref.Value == nil {
		return nil, nil
	}
	val := ref.Value

	if ctx.visited[val] {
		return nil, &SchemaError{Operation: ctx.operation, Field: ctx.field, Detail: "cyclic schema reference"}
	}
	if ctx.depth > maxSchemaDepth {
		return nil, &SchemaError{Operation: ctx.operation, Field: ctx.field, Detail: "schema nesting exceeds supported depth"}
	}
	ctx.visited[val] = true
	defer delete(ctx.visited, val)

	prop := map[string]any{}

	if len(val.AllOf) > 0 {
		for _, sub := range val.AllOf {
			merged, err := translateSchema(sub, ctx.descend())
			if err != nil {
				return nil, err
			}
			for k, v := range merged {
				prop[k] = v
			}
		}
	}
	if len(val.OneOf) > 0 {
		variants, err := translateVariants(val.OneOf, ctx)
		if err != nil {
			return nil, err
		}
		prop["oneOf"] = variants
	}
	if len(val.AnyOf) > 0 {
		variants, err := translateVariants(val.AnyOf, ctx)
		if err != nil {
			return nil, err
		}
		prop["anyOf"] = variants
	}

	if val.Type != nil && len(*val.Type) > 0 {
		if types := *val.Type; len(types) == 1 {
			prop["type"] = types[0]
		} else {
			// 3.1 multi-type schemas keep the whole list; JSON Schema
			// accepts a type array.
			prop["type"] = append([]string(nil), types...)
		}
	}
	if val.Format != "" {
		prop["format"] = val.Format
	}
	if val.Description != "" {
		prop["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		prop["enum"] = val.Enum
	}
	if val.Default != nil {
		prop["default"] = val.Default
	}

	if val.Type != nil && val.Type.Is("object") && len(val.Properties) > 0 {
		objProps := map[string]any{}
		for name, sub := range val.Properties {
			child := ctx.descend()
			child.field = ctx.field + "." + name
			translated, err := translateSchema(sub, child)
			if err != nil {
				return nil, err
			}
			objProps[name] = translated
		}
		prop["properties"] = objProps
		if len(val.Required) > 0 {
			prop["required"] = val.Required
		}
	}
	if val.Type != nil && val.Type.Is("array") {
		if val.Items == nil || val.Items.Value == nil {
			return nil, &SchemaError{Operation: ctx.operation, Field: ctx.field, Detail: "array schema without items"}
		}
		items, err := translateSchema(val.Items, ctx.descend())
		if err != nil {
			return nil, err
		}
		prop["items"] = items
	}

	return prop, nil
}

func translateVariants(refs openapi3.SchemaRefs, ctx translateCtx) ([]any, error) {
	variants := make([]any, 0, len(refs))
	for _, sub := range refs {
		translated, err := translateSchema(sub, ctx.descend())
		if err != nil {
			return nil, err
		}
		variants = append(variants, translated)
	}
	return variants, nil
}
