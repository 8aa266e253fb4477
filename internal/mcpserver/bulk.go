// -----------------------------------------------------------------------
// Bulk Dispatch - sequential multi-tool invocation
// -----------------------------------------------------------------------

package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// BulkCallResult reports one invocation within a bulk call.
type BulkCallResult struct {
	Tool      string                 `json:"tool" yaml:"tool"`
	Arguments map[string]interface{} `json:"arguments" yaml:"arguments"`
	IsError   bool                   `json:"isError" yaml:"isError"`
	Content   []string               `json:"content" yaml:"content"`
}

// MountBulkTools registers the two dispatch tools under their bare names.
// Calls run strictly sequentially in input order; with continue_on_error
// false, dispatch halts after the first error and returns the accumulated
// prefix.
func (r *Registry) MountBulkTools() {
	r.Mount("", []RegisteredTool{
		{Tool: callToolsBulkTool(), Handler: r.handleCallToolsBulk},
		{Tool: callToolBulkTool(), Handler: r.handleCallToolBulk},
	})
}

func callToolsBulkTool() mcp.Tool {
	return mcp.NewTool("call_tools_bulk",
		mcp.WithDescription("Invoke several tools in one request, in order"),
		mcp.WithArray("tool_calls",
			mcp.Required(),
			mcp.Description("Calls to make, each with a tool name and an arguments object"),
		),
		mcp.WithBoolean("continue_on_error",
			mcp.Description("Keep going after a failed call (default: true)"),
		),
	)
}

func callToolBulkTool() mcp.Tool {
	return mcp.NewTool("call_tool_bulk",
		mcp.WithDescription("Invoke one tool several times with varying arguments, in order"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool name to invoke"),
		),
		mcp.WithArray("tool_arguments",
			mcp.Required(),
			mcp.Description("One arguments object per invocation"),
		),
		mcp.WithBoolean("continue_on_error",
			mcp.Description("Keep going after a failed call (default: true)"),
		),
	)
}

func (r *Registry) handleCallToolsBulk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["tool_calls"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("tool_calls must be a list of {tool, arguments} objects"), nil
	}
	continueOnError := request.GetBool("continue_on_error", true)

	results := make([]BulkCallResult, 0, len(raw))
	for _, entry := range raw {
		call, ok := entry.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("each tool call must be a {tool, arguments} object"), nil
		}
		name, _ := call["tool"].(string)
		arguments, _ := call["arguments"].(map[string]interface{})

		result := r.invokeOne(ctx, name, arguments)
		results = append(results, result)
		if result.IsError && !continueOnError {
			break
		}
	}
	return yamlResult(results)
}

func (r *Registry) handleCallToolBulk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("tool")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := request.GetArguments()["tool_arguments"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("tool_arguments must be a list of argument objects"), nil
	}
	continueOnError := request.GetBool("continue_on_error", true)

	results := make([]BulkCallResult, 0, len(raw))
	for _, entry := range raw {
		arguments, _ := entry.(map[string]interface{})

		result := r.invokeOne(ctx, name, arguments)
		results = append(results, result)
		if result.IsError && !continueOnError {
			break
		}
	}
	return yamlResult(results)
}

func (r *Registry) invokeOne(ctx context.Context, name string, arguments map[string]interface{}) BulkCallResult {
	invoked := r.Invoke(ctx, name, arguments)
	return BulkCallResult{
		Tool:      name,
		Arguments: arguments,
		IsError:   invoked.IsError,
		Content:   textContent(invoked),
	}
}

func textContent(result *mcp.CallToolResult) []string {
	texts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	return texts
}
