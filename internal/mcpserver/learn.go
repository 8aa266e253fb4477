// -----------------------------------------------------------------------
// Learn Sub-server - web documentation ingestion tools
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

const defaultMaxChildPages = 500

// LearnServer exposes documentation ingestion tools. Mounted under the
// "learn" prefix.
type LearnServer struct {
	manager      interfaces.KnowledgeBaseManager
	orchestrator interfaces.CrawlOrchestrator
	probe        interfaces.WebProbe
	logger       arbor.ILogger
}

func NewLearnServer(manager interfaces.KnowledgeBaseManager, orchestrator interfaces.CrawlOrchestrator, probe interfaces.WebProbe) *LearnServer {
	return &LearnServer{
		manager:      manager,
		orchestrator: orchestrator,
		probe:        probe,
		logger:       common.GetLogger(),
	}
}

func (s *LearnServer) Tools() []RegisteredTool {
	return []RegisteredTool{
		{Tool: urlsFromWebpageTool(), Handler: s.handleURLsFromWebpage},
		{Tool: fromWebDocumentationTool(), Handler: s.handleFromWebDocumentation},
		{Tool: activeDocumentationRequestsTool(), Handler: s.handleActiveDocumentationRequests},
	}
}

func urlsFromWebpageTool() mcp.Tool {
	return mcp.NewTool("urls_from_webpage",
		mcp.WithDescription("List the crawlable URLs linked from a webpage"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Webpage URL to inspect")),
	)
}

func fromWebDocumentationTool() mcp.Tool {
	return mcp.NewTool("from_web_documentation",
		mcp.WithDescription("Create a documentation knowledge base and crawl a website into it"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Knowledge base name"),
		),
		mcp.WithString("data_source",
			mcp.Required(),
			mcp.Description("Documentation root URL to crawl"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What this documentation covers"),
		),
		mcp.WithString("version",
			mcp.Description("Documentation version label"),
		),
		mcp.WithArray("exclude_paths",
			mcp.WithStringItems(),
			mcp.Description("Path prefixes to exclude from the crawl"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Reuse an existing knowledge base of the same name (default: false)"),
		),
		mcp.WithNumber("max_child_page_limit",
			mcp.Description("Reject seed pages linking to more crawlable URLs than this (default: 500)"),
		),
	)
}

func activeDocumentationRequestsTool() mcp.Tool {
	return mcp.NewTool("active_documentation_requests",
		mcp.WithDescription("List running and recently finished documentation crawls"),
	)
}

func (s *LearnServer) handleURLsFromWebpage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return errorResult(err)
	}

	extraction, err := s.probe.ExtractURLs(ctx, url, "", "")
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(extraction.URLsToCrawl)
}

func (s *LearnServer) handleFromWebDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proto := models.LearnWebDocumentationProto{}
	var err error
	if proto.Name, err = request.RequireString("name"); err != nil {
		return errorResult(err)
	}
	if proto.DataSource, err = request.RequireString("data_source"); err != nil {
		return errorResult(err)
	}
	if proto.Description, err = request.RequireString("description"); err != nil {
		return errorResult(err)
	}
	proto.Version = request.GetString("version", "")
	proto.ExcludePaths = request.GetStringSlice("exclude_paths", nil)
	proto.Overwrite = request.GetBool("overwrite", false)
	limit := request.GetInt("max_child_page_limit", defaultMaxChildPages)

	return yamlResult(s.learnFromWebDocumentation(ctx, proto, limit))
}

// learnFromWebDocumentation validates, resolves the target knowledge base
// and launches the crawl. Business failures come back as a typed
// CrawlStartFailure result, never as a tool error.
func (s *LearnServer) learnFromWebDocumentation(ctx context.Context, proto models.LearnWebDocumentationProto, limit int) interface{} {
	failure := func(reason string) models.CrawlStartFailure {
		s.logger.Warn().Str("url", proto.DataSource).Str("reason", reason).Msg("Documentation crawl not started")
		return models.CrawlStartFailure{URL: proto.DataSource, Status: "failed", Reason: reason}
	}

	params, err := s.orchestrator.ValidateCrawl(ctx, proto.DataSource, limit)
	if err != nil {
		return failure(err.Error())
	}

	kb, err := s.manager.TryGetByName(ctx, proto.Name)
	if err != nil {
		return failure(err.Error())
	}
	if kb != nil && !proto.Overwrite {
		return failure("knowledge base \"" + proto.Name + "\" already exists and overwrite is false")
	}
	if kb == nil {
		kb, err = s.manager.Create(ctx, proto.ToKnowledgeBaseCreateProto())
		if err != nil {
			return failure(err.Error())
		}
	}

	containerID, err := s.orchestrator.CrawlDomain(ctx, *params, kb.BackendID, proto.ExcludePaths)
	if err != nil {
		return failure(err.Error())
	}

	return models.CrawlStartSuccess{
		URL:             proto.DataSource,
		KnowledgeBaseID: kb.BackendID,
		ContainerID:     containerID,
		Status:          "started",
	}
}

func (s *LearnServer) handleActiveDocumentationRequests(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.orchestrator.ListCrawls(ctx)
	if err != nil {
		return errorResult(err)
	}
	return yamlResult(jobs)
}
