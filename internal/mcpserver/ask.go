// -----------------------------------------------------------------------
// Ask Sub-server - question answering over documentation knowledge bases
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

// Answer styles select how many hits and highlight fragments each question
// gets back.
const (
	styleConcise       = "concise"
	styleNormal        = "normal"
	styleComprehensive = "comprehensive"
	styleExhaustive    = "exhaustive"
)

// answerStyleSize maps a style to both n_hits and n_fragments.
func answerStyleSize(style string) int {
	switch style {
	case styleConcise:
		return 1
	case styleComprehensive:
		return 6
	case styleExhaustive:
		return 9
	default:
		return 3
	}
}

// AskServer exposes read-only question tools. Mounted under the "ask"
// prefix.
type AskServer struct {
	manager interfaces.KnowledgeBaseManager
	logger  arbor.ILogger
}

func NewAskServer(manager interfaces.KnowledgeBaseManager) *AskServer {
	return &AskServer{manager: manager, logger: common.GetLogger()}
}

func (s *AskServer) Tools() []RegisteredTool {
	return []RegisteredTool{
		{Tool: documentationAvailableTool(), Handler: s.handleDocumentationAvailable},
		{Tool: questionsTool(), Handler: s.handleQuestions},
		{Tool: questionsForKBTool(), Handler: s.handleQuestionsForKB},
	}
}

func documentationAvailableTool() mcp.Tool {
	return mcp.NewTool("documentation_available",
		mcp.WithDescription("List the documentation knowledge bases available for questions"),
	)
}

func questionsTool() mcp.Tool {
	return mcp.NewTool("questions",
		mcp.WithDescription("Ask questions across all knowledge bases"),
		mcp.WithArray("questions",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Question phrases to search for"),
		),
		mcp.WithString("answer_style",
			mcp.Description("Answer size: concise, normal, comprehensive or exhaustive (default: normal)"),
		),
	)
}

func questionsForKBTool() mcp.Tool {
	return mcp.NewTool("questions_for_kb",
		mcp.WithDescription("Ask questions against specific knowledge bases"),
		mcp.WithArray("knowledge_base_names",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Knowledge base names to search in"),
		),
		mcp.WithArray("questions",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Question phrases to search for"),
		),
		mcp.WithString("answer_style",
			mcp.Description("Answer size: concise, normal, comprehensive or exhaustive (default: normal)"),
		),
	)
}

func (s *AskServer) handleDocumentationAvailable(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbs, err := s.manager.List(ctx)
	if err != nil {
		return errorResult(err)
	}

	docs := make([]models.KnowledgeBase, 0, len(kbs))
	for _, kb := range kbs {
		if kb.Type == models.KnowledgeBaseTypeDocs {
			docs = append(docs, kb)
		}
	}
	return yamlResult(docs)
}

func (s *AskServer) handleQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	questions := request.GetStringSlice("questions", nil)
	size := answerStyleSize(request.GetString("answer_style", styleNormal))

	outcomes, err := s.manager.Search(ctx, questions, size, size)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Question search failed")
		return errorResult(err)
	}
	return yamlResult(outcomes)
}

func (s *AskServer) handleQuestionsForKB(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := request.GetStringSlice("knowledge_base_names", nil)
	questions := request.GetStringSlice("questions", nil)
	size := answerStyleSize(request.GetString("answer_style", styleNormal))

	outcomes, err := s.manager.SearchByName(ctx, names, questions, size, size)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Question search failed")
		return errorResult(err)
	}
	return yamlResult(outcomes)
}
