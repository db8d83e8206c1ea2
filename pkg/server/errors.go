package server

import "fmt"

// AssemblyError reports a tool the host rejected at registration time. The
// host's reason is surfaced rather than masked; generation aborts and no
// partially assembled server is served.
type AssemblyError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("server assembly error: tool %q rejected: %s", e.Tool, e.Reason)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
