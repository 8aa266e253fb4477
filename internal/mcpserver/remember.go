// -----------------------------------------------------------------------
// Remember Sub-server - per-project memory tools
// -----------------------------------------------------------------------

package mcpserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

const (
	recallStyleSize    = 3
	initialMemoryCount = 50
)

// MemoryServer exposes project memory tools. Mounted under the "memory"
// prefix. The project context is process-scoped: one stdio transport serves
// one session, so a single mutex-guarded slot stands in for per-request
// scope.
type MemoryServer struct {
	manager interfaces.KnowledgeBaseManager
	logger  arbor.ILogger

	mu      sync.Mutex
	context *models.ProjectContext
}

func NewMemoryServer(manager interfaces.KnowledgeBaseManager) *MemoryServer {
	return &MemoryServer{manager: manager, logger: common.GetLogger()}
}

func (s *MemoryServer) Tools() []RegisteredTool {
	return []RegisteredTool{
		{Tool: setProjectTool(), Handler: s.handleSetProject},
		{Tool: getProjectNameTool(), Handler: s.handleGetProjectName},
		{Tool: encodingTool(), Handler: s.handleEncoding},
		{Tool: encodingsTool(), Handler: s.handleEncodings},
		{Tool: recallTool(), Handler: s.handleRecall},
		{Tool: recallLastTool(), Handler: s.handleRecallLast},
		{Tool: updateEncodingTool(), Handler: s.handleUpdateEncoding},
		{Tool: deleteEncodingTool(), Handler: s.handleDeleteEncoding},
	}
}

func setProjectTool() mcp.Tool {
	return mcp.NewTool("set_project",
		mcp.WithDescription("Bind this session to a project, creating its memory knowledge base if needed"),
		mcp.WithString("project_name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithBoolean("return_memories",
			mcp.Description("Include the most recent memories in the response (default: true)"),
		),
	)
}

func getProjectNameTool() mcp.Tool {
	return mcp.NewTool("get_project_name",
		mcp.WithDescription("Return the currently bound project name"),
	)
}

func encodingTool() mcp.Tool {
	return mcp.NewTool("encoding",
		mcp.WithDescription("Store one memory for the current project"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Memory title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Memory content")),
	)
}

func encodingsTool() mcp.Tool {
	return mcp.NewTool("encodings",
		mcp.WithDescription("Store several memories for the current project"),
		mcp.WithArray("memories",
			mcp.Required(),
			mcp.Description("Memories to store, each with a title and content"),
		),
	)
}

func recallTool() mcp.Tool {
	return mcp.NewTool("recall",
		mcp.WithDescription("Search the current project's memories"),
		mcp.WithArray("questions",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Question phrases to search for"),
		),
	)
}

func recallLastTool() mcp.Tool {
	return mcp.NewTool("recall_last",
		mcp.WithDescription("Return the most recently stored memories"),
		mcp.WithNumber("count", mcp.Description("How many memories to return (default: 10)")),
	)
}

func updateEncodingTool() mcp.Tool {
	return mcp.NewTool("update_encoding",
		mcp.WithDescription("Rewrite one stored memory"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Memory document id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
	)
}

func deleteEncodingTool() mcp.Tool {
	return mcp.NewTool("delete_encoding",
		mcp.WithDescription("Delete one stored memory"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Memory document id")),
	)
}

// projectKB returns the bound memory knowledge base; every tool except
// set_project requires one.
func (s *MemoryServer) projectKB() (*models.KnowledgeBase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context == nil {
		return nil, kberrors.New(kberrors.KindGeneric, "no project set; call set_project first")
	}
	return s.context.KnowledgeBase, nil
}

func (s *MemoryServer) handleSetProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project_name")
	if err != nil {
		return errorResult(err)
	}
	returnMemories := request.GetBool("return_memories", true)

	kb, err := s.manager.TryGetByName(ctx, projectName)
	if err != nil {
		return errorResult(err)
	}
	if kb == nil {
		kb, err = s.manager.Create(ctx, models.KnowledgeBaseCreateProto{
			Name:        projectName,
			Type:        models.KnowledgeBaseTypeMemory,
			DataSource:  fmt.Sprintf("Workspace-`%s`", projectName),
			Description: fmt.Sprintf("This is the memory knowledge base for %s.", projectName),
		})
		if err != nil {
			return errorResult(err)
		}
	}

	s.mu.Lock()
	s.context = &models.ProjectContext{ProjectName: projectName, KnowledgeBase: kb}
	s.mu.Unlock()

	response := models.MemoryInitResponse{
		ProjectName:     projectName,
		MemoryBackendID: kb.BackendID,
		MemoryCount:     kb.DocCount,
		Memories:        []models.Document{},
	}
	if returnMemories {
		memories, err := s.manager.GetRecentDocuments(ctx, kb, initialMemoryCount)
		if err != nil {
			return errorResult(err)
		}
		response.Memories = memories
	}
	return yamlResult(response)
}

func (s *MemoryServer) handleGetProjectName(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context == nil {
		return errorResult(kberrors.New(kberrors.KindGeneric, "no project set; call set_project first"))
	}
	return mcp.NewToolResultText(s.context.ProjectName), nil
}

func (s *MemoryServer) handleEncoding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return errorResult(err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.InsertDocuments(ctx, kb, []models.DocumentProto{{Title: title, Content: content}}); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Memory encoded"), nil
}

func (s *MemoryServer) handleEncodings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	memories := parseMemories(request.GetArguments()["memories"])
	docs := make([]models.DocumentProto, 0, len(memories))
	for _, memory := range memories {
		docs = append(docs, memory.ToDocumentProto())
	}

	if err := s.manager.InsertDocuments(ctx, kb, docs); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d memories encoded", len(docs))), nil
}

func (s *MemoryServer) handleRecall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	questions := request.GetStringSlice("questions", nil)
	outcomes, err := s.manager.SearchByName(ctx, []string{kb.Name}, questions, recallStyleSize, recallStyleSize)
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(outcomes)
}

func (s *MemoryServer) handleRecallLast(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	count := request.GetInt("count", 10)
	memories, err := s.manager.GetRecentDocuments(ctx, kb, count)
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(memories)
}

func (s *MemoryServer) handleUpdateEncoding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return errorResult(err)
	}
	title, err := request.RequireString("title")
	if err != nil {
		return errorResult(err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.UpdateDocument(ctx, kb, docID, models.DocumentProto{Title: title, Content: content}); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Memory updated"), nil
}

func (s *MemoryServer) handleDeleteEncoding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return errorResult(err)
	}

	kb, err := s.projectKB()
	if err != nil {
		return errorResult(err)
	}

	if err := s.manager.DeleteDocument(ctx, kb, docID); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Memory deleted"), nil
}

// parseMemories reads the loosely-typed memories argument; entries missing
// both fields are dropped.
func parseMemories(raw interface{}) []models.Memory {
	entries, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	memories := make([]models.Memory, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		memory := models.Memory{}
		if title, ok := fields["title"].(string); ok {
			memory.Title = title
		}
		if content, ok := fields["content"].(string); ok {
			memory.Content = content
		}
		if memory.Title == "" && memory.Content == "" {
			continue
		}
		memories = append(memories, memory)
	}
	return memories
}
