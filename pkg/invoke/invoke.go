// Package invoke executes one tool call: it validates the caller's
// arguments against the descriptor's input schema, binds them into an HTTP
// request, applies the shared auth strategy last, performs the call with a
// bounded timeout, and maps the response into an InvocationResult.
//
// A single invocation moves through validating, binding, authenticating,
// and calling; failures in any stage are contained to that call and never
// invalidate other tools.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
	"github.com/yosida95/uritemplate/v3"

	"github.com/apiforge/mcpgen/pkg/spec"
	"github.com/apiforge/mcpgen/pkg/tools"
)

// DefaultTimeout bounds a single upstream call when no override is given.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream body is read into memory.
const maxResponseBytes = 8 << 20

// Result is the outcome of one invocation that reached the target API.
// Status may be any upstream code; a non-2xx status is a reported outcome,
// not an error. Body holds parsed JSON when the response declared it,
// otherwise nil; RawBody always carries the response text.
type Result struct {
	Status      int
	Headers     map[string]string
	ContentType string
	Body        any
	RawBody     string
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Invoker performs tool invocations against the target API through one
// shared HTTP client.
type Invoker struct {
	client  *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient replaces the underlying HTTP transport.
func WithHTTPClient(c *http.Client) Option {
	return func(inv *Invoker) { inv.client = c }
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		if d > 0 {
			inv.timeout = d
		}
	}
}

// WithLogger redirects invocation logging.
func WithLogger(l *log.Logger) Option {
	return func(inv *Invoker) { inv.logger = l }
}

// New creates an Invoker with the default client and timeout.
func New(opts ...Option) *Invoker {
	inv := &Invoker{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke executes one tool call. Argument violations return an
// *ArgumentError before any request is built; transport failures return an
// *UpstreamError; an OAuth2 refresh failure surfaces the auth package's
// *TokenError. Upstream non-2xx responses return a Result, not an error.
func (inv *Invoker) Invoke(ctx context.Context, desc *tools.Descriptor, args map[string]any) (*Result, error) {
	callID := uuid.NewString()
	if args == nil {
		args = map[string]any{}
	}

	if err := inv.validate(desc, args); err != nil {
		return nil, err
	}

	req, err := inv.bind(ctx, desc, args)
	if err != nil {
		return nil, err
	}

	// Auth goes on last so credentials override caller-supplied values at
	// the same location.
	if err := desc.Auth.Apply(req); err != nil {
		return nil, err
	}

	inv.logger.Printf("[INFO] call %s: %s %s", callID, req.Method, req.URL.Redacted())

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()
	resp, err := inv.client.Do(req.WithContext(callCtx))
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded
		inv.logger.Printf("[WARN] call %s failed: %v", callID, err)
		return nil, &UpstreamError{Tool: desc.Name, URL: req.URL.Redacted(), Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()

	result, err := readResult(desc, resp)
	if err != nil {
		return nil, err
	}
	inv.logger.Printf("[INFO] call %s: upstream status %d", callID, result.Status)
	return result, nil
}

// validate checks args against the descriptor's input schema. The first
// violation is reported with its field name.
func (inv *Invoker) validate(desc *tools.Descriptor, args map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(desc.InputSchema)
	docLoader := gojsonschema.NewGoLoader(args)

	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &ArgumentError{Tool: desc.Name, Detail: "arguments are not a valid JSON object: " + err.Error()}
	}
	if !res.Valid() {
		first := res.Errors()[0]
		field := first.Field()
		if field == "(root)" {
			if prop, ok := first.Details()["property"].(string); ok {
				field = prop
			}
		}
		return &ArgumentError{Tool: desc.Name, Field: field, Detail: first.Description()}
	}
	return nil
}

// bind builds the outbound request: path template expansion, query and
// header collection, cookie binding, and body serialization.
func (inv *Invoker) bind(ctx context.Context, desc *tools.Descriptor, args map[string]any) (*http.Request, error) {
	op := desc.Operation

	path, err := expandPath(desc, args)
	if err != nil {
		return nil, err
	}

	fullURL := desc.BaseURL + path
	parsed, err := url.Parse(fullURL)
	if err != nil {
		return nil, &ArgumentError{Tool: desc.Name, Detail: "bound arguments produce an invalid URL: " + err.Error()}
	}

	query := parsed.Query()
	for _, p := range op.Parameters {
		if p.In != spec.InQuery {
			continue
		}
		v, present := args[p.Name]
		if !present {
			continue
		}
		if err := addQueryValues(query, p.Name, v); err != nil {
			return nil, &ArgumentError{Tool: desc.Name, Field: p.Name, Detail: err.Error()}
		}
	}
	parsed.RawQuery = query.Encode()

	var body io.Reader
	contentType := ""
	if op.RequestBody != nil {
		if v, present := args["body"]; present {
			payload, err := json.Marshal(v)
			if err != nil {
				return nil, &ArgumentError{Tool: desc.Name, Field: "body", Detail: "body is not serializable: " + err.Error()}
			}
			body = bytes.NewReader(payload)
			contentType = op.RequestBody.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, parsed.String(), body)
	if err != nil {
		return nil, &ArgumentError{Tool: desc.Name, Detail: "cannot build request: " + err.Error()}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, p := range op.Parameters {
		v, present := args[p.Name]
		if !present {
			continue
		}
		switch p.In {
		case spec.InHeader:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, &ArgumentError{Tool: desc.Name, Field: p.Name, Detail: "header value is not a scalar"}
			}
			req.Header.Set(p.Name, s)
		case spec.InCookie:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, &ArgumentError{Tool: desc.Name, Field: p.Name, Detail: "cookie value is not a scalar"}
			}
			req.AddCookie(&http.Cookie{Name: p.Name, Value: s})
		}
	}
	return req, nil
}

// expandPath substitutes path parameters into the operation's template with
// RFC 6570 simple expansion, which percent-encodes each value.
func expandPath(desc *tools.Descriptor, args map[string]any) (string, error) {
	op := desc.Operation
	if !strings.Contains(op.Path, "{") {
		return op.Path, nil
	}

	tmpl, err := uritemplate.New(op.Path)
	if err != nil {
		return "", &ArgumentError{Tool: desc.Name, Detail: "invalid path template: " + err.Error()}
	}

	values := uritemplate.Values{}
	for _, p := range op.Parameters {
		if p.In != spec.InPath {
			continue
		}
		v, present := args[p.Name]
		if !present {
			// Required path params are enforced by schema validation; a
			// missing one here means the schema and template disagree.
			return "", &ArgumentError{Tool: desc.Name, Field: p.Name, Detail: "path parameter is missing"}
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return "", &ArgumentError{Tool: desc.Name, Field: p.Name, Detail: "path value is not a scalar"}
		}
		values.Set(p.Name, uritemplate.String(s))
	}

	expanded, err := tmpl.Expand(values)
	if err != nil {
		return "", &ArgumentError{Tool: desc.Name, Detail: "path expansion failed: " + err.Error()}
	}
	return expanded, nil
}

func addQueryValues(query url.Values, name string, v any) error {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			s, err := cast.ToStringE(item)
			if err != nil {
				return errors.New("query array item is not a scalar")
			}
			query.Add(name, s)
		}
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return errors.New("query value is not a scalar")
	}
	query.Add(name, s)
	return nil
}

func readResult(desc *tools.Descriptor, resp *http.Response) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{Tool: desc.Name, URL: resp.Request.URL.Redacted(), Err: err}
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	result := &Result{
		Status:      resp.StatusCode,
		Headers:     headers,
		ContentType: resp.Header.Get("Content-Type"),
		RawBody:     string(raw),
	}

	if isJSONContent(result.ContentType) && len(raw) > 0 {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			result.Body = parsed
		}
		// An unparsable body with a JSON content type is still returned
		// raw; upstream correctness is not this layer's concern.
	}
	return result, nil
}

func isJSONContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}
