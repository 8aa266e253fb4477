// -----------------------------------------------------------------------
// Manage Sub-server - knowledge base lifecycle tools
// -----------------------------------------------------------------------

package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/models"
)

// ManageServer exposes knowledge base lifecycle operations. Mounted under
// the "manage" prefix.
type ManageServer struct {
	manager interfaces.KnowledgeBaseManager
	logger  arbor.ILogger
}

func NewManageServer(manager interfaces.KnowledgeBaseManager) *ManageServer {
	return &ManageServer{manager: manager, logger: common.GetLogger()}
}

func (s *ManageServer) Tools() []RegisteredTool {
	return []RegisteredTool{
		{Tool: createKnowledgeBaseTool(), Handler: s.handleCreate},
		{Tool: getByNameTool(), Handler: s.handleGetByName},
		{Tool: getByBackendIDTool(), Handler: s.handleGetByBackendID},
		{Tool: deleteByNameTool(), Handler: s.handleDeleteByName},
		{Tool: deleteByBackendIDTool(), Handler: s.handleDeleteByBackendID},
		{Tool: updateByNameTool(), Handler: s.handleUpdateByName},
		{Tool: updateByBackendIDTool(), Handler: s.handleUpdateByBackendID},
	}
}

func createKnowledgeBaseTool() mcp.Tool {
	return mcp.NewTool("create",
		mcp.WithDescription("Create a new knowledge base"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unique knowledge base name"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Knowledge base type: docs or memory"),
		),
		mcp.WithString("data_source",
			mcp.Required(),
			mcp.Description("Origin descriptor: a URL or a workspace name"),
		),
		mcp.WithString("description",
			mcp.Description("Human-readable description"),
		),
	)
}

func getByNameTool() mcp.Tool {
	return mcp.NewTool("get_by_name",
		mcp.WithDescription("Retrieve a knowledge base by its name"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Knowledge base name")),
	)
}

func getByBackendIDTool() mcp.Tool {
	return mcp.NewTool("get_by_backend_id",
		mcp.WithDescription("Retrieve a knowledge base by its backend collection id"),
		mcp.WithString("backend_id", mcp.Required(), mcp.Description("Backend collection id")),
	)
}

func deleteByNameTool() mcp.Tool {
	return mcp.NewTool("delete_by_name",
		mcp.WithDescription("Delete a knowledge base and all its documents by name"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Knowledge base name")),
	)
}

func deleteByBackendIDTool() mcp.Tool {
	return mcp.NewTool("delete_by_backend_id",
		mcp.WithDescription("Delete a knowledge base and all its documents by backend collection id"),
		mcp.WithString("backend_id", mcp.Required(), mcp.Description("Backend collection id")),
	)
}

func updateByNameTool() mcp.Tool {
	return mcp.NewTool("update_by_name",
		mcp.WithDescription("Update the name or description of a knowledge base, selected by name"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Current knowledge base name")),
		mcp.WithString("new_name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
	)
}

func updateByBackendIDTool() mcp.Tool {
	return mcp.NewTool("update_by_backend_id",
		mcp.WithDescription("Update the name or description of a knowledge base, selected by backend collection id"),
		mcp.WithString("backend_id", mcp.Required(), mcp.Description("Backend collection id")),
		mcp.WithString("new_name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
	)
}

func (s *ManageServer) handleCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err)
	}
	kbType, err := request.RequireString("type")
	if err != nil {
		return errorResult(err)
	}
	dataSource, err := request.RequireString("data_source")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.manager.Create(ctx, models.KnowledgeBaseCreateProto{
		Name:        name,
		Type:        kbType,
		DataSource:  dataSource,
		Description: request.GetString("description", ""),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("Create knowledge base failed")
		return errorResult(err)
	}
	return yamlResult(kb)
}

func (s *ManageServer) handleGetByName(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.manager.GetByName(ctx, name)
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(kb)
}

func (s *ManageServer) handleGetByBackendID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backendID, err := request.RequireString("backend_id")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.manager.GetByBackendID(ctx, backendID)
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(kb)
}

func (s *ManageServer) handleDeleteByName(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.DeleteByName(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("Delete knowledge base failed")
		return errorResult(err)
	}
	return mcp.NewToolResultText("Knowledge base deleted"), nil
}

func (s *ManageServer) handleDeleteByBackendID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backendID, err := request.RequireString("backend_id")
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.DeleteByBackendID(ctx, backendID); err != nil {
		s.logger.Warn().Err(err).Str("backend_id", backendID).Msg("Delete knowledge base failed")
		return errorResult(err)
	}
	return mcp.NewToolResultText("Knowledge base deleted"), nil
}

func (s *ManageServer) handleUpdateByName(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.UpdateByName(ctx, name, updateFromRequest(request)); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Knowledge base updated"), nil
}

func (s *ManageServer) handleUpdateByBackendID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backendID, err := request.RequireString("backend_id")
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.UpdateByBackendID(ctx, backendID, updateFromRequest(request)); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Knowledge base updated"), nil
}

// updateFromRequest reads the optional update fields; absent parameters
// leave the corresponding field unchanged.
func updateFromRequest(request mcp.CallToolRequest) models.KnowledgeBaseUpdateProto {
	update := models.KnowledgeBaseUpdateProto{}
	if newName := request.GetString("new_name", ""); newName != "" {
		update.Name = &newName
	}
	if description := request.GetString("description", ""); description != "" {
		update.Description = &description
	}
	return update
}
