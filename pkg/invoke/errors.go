package invoke

import "fmt"

// ArgumentError reports caller-supplied arguments that fail the tool's
// input schema. No request is built when this is returned.
type ArgumentError struct {
	Tool   string
	Field  string
	Detail string
}

func (e *ArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid arguments for %s: field %q: %s", e.Tool, e.Field, e.Detail)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail)
}

// UpstreamError reports a transport-level failure reaching the target API:
// connection refused, DNS failure, or timeout. A non-2xx response is not an
// UpstreamError; it is a reported outcome on the Result.
type UpstreamError struct {
	Tool    string
	URL     string
	Timeout bool
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream unreachable for %s: timeout calling %s", e.Tool, e.URL)
	}
	return fmt.Sprintf("upstream unreachable for %s: %v", e.Tool, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
