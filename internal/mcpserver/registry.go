// -----------------------------------------------------------------------
// Tool Registry - prefix mounting and in-process dispatch for bulk calls
// -----------------------------------------------------------------------

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
)

// RegisteredTool pairs a tool definition with its handler.
type RegisteredTool struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Registry owns the MCP server and a handler index. Sub-servers mount under
// prefixes; the index lets the bulk dispatch tools invoke any mounted tool
// in-process without a transport round-trip.
type Registry struct {
	server   *server.MCPServer
	handlers map[string]server.ToolHandlerFunc
	logger   arbor.ILogger
}

func NewRegistry(name, version string) *Registry {
	return &Registry{
		server: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		handlers: make(map[string]server.ToolHandlerFunc),
		logger:   common.GetLogger(),
	}
}

// Server exposes the underlying MCP server for transport wiring.
func (r *Registry) Server() *server.MCPServer {
	return r.server
}

// Mount registers every tool under "<prefix>_<name>". An empty prefix mounts
// tools under their bare names.
func (r *Registry) Mount(prefix string, tools []RegisteredTool) {
	for _, registered := range tools {
		tool := registered.Tool
		if prefix != "" {
			tool.Name = prefix + "_" + tool.Name
		}
		r.server.AddTool(tool, registered.Handler)
		r.handlers[tool.Name] = registered.Handler
	}
}

// Invoke dispatches one tool call in-process. Handler errors and unknown
// tools come back as error results, never as Go errors, so bulk dispatch
// can treat every call uniformly.
func (r *Registry) Invoke(ctx context.Context, name string, arguments map[string]interface{}) *mcp.CallToolResult {
	handler, ok := r.handlers[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown tool %q", name))
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = arguments

	result, err := handler(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("tool %q returned no result", name))
	}
	return result
}
