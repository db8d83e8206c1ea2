// Package server assembles synthesized tool descriptors into a running MCP
// server. Registration happens once; the tool set is fixed for the lifetime
// of a Handle, and regenerating requires a fresh pass through
// normalization and synthesis.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/apiforge/mcpgen/pkg/invoke"
	"github.com/apiforge/mcpgen/pkg/tools"
)

// Config is the identity and listen surface of one assembled server.
type Config struct {
	Name    string
	Version string
	Host    string
	Port    int
}

// Addr returns the host:port the HTTP transports listen on.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Handle is an assembled, immutable tool server.
type Handle struct {
	cfg   Config
	mcp   *mcpserver.MCPServer
	names []string
}

// Assemble registers every descriptor with the MCP tool host under its
// name, input schema, and invocation closure. A rejected registration
// fails with an *AssemblyError; a server is never partially assembled.
func Assemble(cfg Config, descs []tools.Descriptor, inv *invoke.Invoker) (*Handle, error) {
	if cfg.Name == "" {
		cfg.Name = "Generated MCP Server"
	}
	if cfg.Version == "" {
		cfg.Version = "0.0.0"
	}

	srv := mcpserver.NewMCPServer(cfg.Name, cfg.Version,
		mcpserver.WithToolCapabilities(false),
	)

	handle := &Handle{cfg: cfg, mcp: srv}
	seen := make(map[string]bool, len(descs))

	for i := range descs {
		desc := &descs[i]
		if desc.Name == "" {
			return nil, &AssemblyError{Tool: desc.Operation.Key(), Reason: "empty tool name"}
		}
		if seen[desc.Name] {
			// The synthesizer guarantees uniqueness; the host would
			// silently overwrite, so re-check here.
			return nil, &AssemblyError{Tool: desc.Name, Reason: "duplicate registration"}
		}
		seen[desc.Name] = true

		rawSchema, err := json.Marshal(desc.InputSchema)
		if err != nil {
			return nil, &AssemblyError{Tool: desc.Name, Reason: "input schema is not representable as JSON", Err: err}
		}

		tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, rawSchema)
		srv.AddTool(tool, toolHandler(desc, inv))
		handle.names = append(handle.names, desc.Name)
	}
	return handle, nil
}

// toolHandler adapts one descriptor's invocation into the host's handler
// shape. Invocation failures travel the protocol's error-result path; they
// never crash the process.
func toolHandler(desc *tools.Descriptor, inv *invoke.Invoker) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := inv.Invoke(ctx, desc, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.OK() {
			return mcp.NewToolResultError(fmt.Sprintf("upstream status %d: %s", result.Status, result.RawBody)), nil
		}
		if result.Body != nil {
			pretty, err := json.MarshalIndent(result.Body, "", "  ")
			if err == nil {
				return mcp.NewToolResultText(string(pretty)), nil
			}
		}
		return mcp.NewToolResultText(result.RawBody), nil
	}
}

// Name returns the server's declared name.
func (h *Handle) Name() string { return h.cfg.Name }

// Addr returns the host:port the HTTP transports listen on.
func (h *Handle) Addr() string { return h.cfg.Addr() }

// ToolNames returns the registered tool names in registration order.
func (h *Handle) ToolNames() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// ServeStdio serves the tool set over stdin/stdout and blocks until the
// client disconnects.
func (h *Handle) ServeStdio() error {
	return mcpserver.ServeStdio(h.mcp)
}

// ServeHTTP serves the tool set over streamable HTTP at basePath and
// blocks. basePath defaults to /mcp.
func (h *Handle) ServeHTTP(basePath string) error {
	if basePath == "" {
		basePath = "/mcp"
	}
	streamable := mcpserver.NewStreamableHTTPServer(h.mcp,
		mcpserver.WithEndpointPath(basePath),
	)
	return streamable.Start(h.cfg.Addr())
}

// Handler returns an http.Handler serving the tool set at basePath, for
// mounting several generated servers on one mux.
func (h *Handle) Handler(basePath string) http.Handler {
	if basePath == "" {
		basePath = "/mcp"
	}
	return mcpserver.NewStreamableHTTPServer(h.mcp,
		mcpserver.WithEndpointPath(basePath),
	)
}
