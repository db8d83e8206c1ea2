package spec

// ParseError reports a specification that cannot be turned into a canonical
// model: malformed syntax, an unsupported version, a dangling $ref, or a
// structural violation such as an undeclared path placeholder.
type ParseError struct {
	Detail    string
	Operation string // "METHOD /path" when the failure is scoped to one operation
	Err       error
}

func (e *ParseError) Error() string {
	msg := "spec parse error"
	if e.Operation != "" {
		msg += " at " + e.Operation
	}
	msg += ": " + e.Detail
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
