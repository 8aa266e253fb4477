package mcpserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// yamlResult renders a structured response as a hierarchical text document.
// Nil-valued optional fields are omitted through the models' yaml tags.
func yamlResult(v interface{}) (*mcp.CallToolResult, error) {
	rendered, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(rendered)), nil
}

// errorResult reports a classified error to the caller without failing the
// transport-level call.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
