package tools

import "fmt"

// NameCollisionError reports two operations whose derived tool names
// collide. Generation fails rather than silently renaming, since a renamed
// tool would no longer correspond predictably to its path.
type NameCollisionError struct {
	Name   string
	First  string // "METHOD /path" of the operation that claimed the name
	Second string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("tool name %q collides: derived from both %s and %s", e.Name, e.First, e.Second)
}

// SchemaError reports an OpenAPI schema construct that cannot be translated
// into a correct input schema. Generation fails rather than producing an
// approximate schema.
type SchemaError struct {
	Operation string
	Field     string
	Detail    string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema translation error at %s, field %q: %s", e.Operation, e.Field, e.Detail)
	}
	return fmt.Sprintf("schema translation error at %s: %s", e.Operation, e.Detail)
}
