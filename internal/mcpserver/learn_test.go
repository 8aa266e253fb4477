package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

func callTool(t *testing.T, registry *Registry, name string, args map[string]interface{}) string {
	t.Helper()
	result := registry.Invoke(context.Background(), name, args)
	require.False(t, result.IsError, "tool %s returned error: %v", name, result.Content)
	return result.Content[0].(mcp.TextContent).Text
}

func learnRegistry(manager *managerStub, orchestrator *orchestratorStub, probe *probeStub) *Registry {
	registry := NewRegistry("test", "0.0.1")
	registry.Mount("learn", NewLearnServer(manager, orchestrator, probe).Tools())
	return registry
}

func TestFromWebDocumentation(t *testing.T) {
	args := map[string]interface{}{
		"name":        "X",
		"data_source": "https://ex.com/docs/",
		"description": "d",
	}

	t.Run("creates the knowledge base and starts the crawl", func(t *testing.T) {
		manager := newManagerStub()
		orchestrator := &orchestratorStub{}
		registry := learnRegistry(manager, orchestrator, &probeStub{})

		text := callTool(t, registry, "learn_from_web_documentation", args)

		var success models.CrawlStartSuccess
		require.NoError(t, yaml.Unmarshal([]byte(text), &success))
		assert.Equal(t, "https://ex.com/docs/", success.URL)
		assert.Equal(t, "container-1", success.ContainerID)
		assert.Equal(t, "started", success.Status)

		require.Len(t, manager.created, 1)
		assert.Equal(t, models.KnowledgeBaseTypeDocs, manager.created[0].Type)
		assert.Equal(t, success.KnowledgeBaseID, orchestrator.crawledID)
	})

	t.Run("existing knowledge base without overwrite fails without launching", func(t *testing.T) {
		manager := newManagerStub()
		manager.addKB("X", "docs", 5)
		orchestrator := &orchestratorStub{}
		registry := learnRegistry(manager, orchestrator, &probeStub{})

		text := callTool(t, registry, "learn_from_web_documentation", args)

		var failure models.CrawlStartFailure
		require.NoError(t, yaml.Unmarshal([]byte(text), &failure))
		assert.Equal(t, "failed", failure.Status)
		assert.Contains(t, failure.Reason, "already exists")
		assert.Zero(t, orchestrator.crawlCalls)
	})

	t.Run("existing knowledge base with overwrite reuses it", func(t *testing.T) {
		manager := newManagerStub()
		existing := manager.addKB("X", "docs", 5)
		orchestrator := &orchestratorStub{}
		registry := learnRegistry(manager, orchestrator, &probeStub{})

		withOverwrite := map[string]interface{}{
			"name": "X", "data_source": "https://ex.com/docs/", "description": "d",
			"overwrite": true,
		}
		text := callTool(t, registry, "learn_from_web_documentation", withOverwrite)

		var success models.CrawlStartSuccess
		require.NoError(t, yaml.Unmarshal([]byte(text), &success))
		assert.Equal(t, existing.BackendID, success.KnowledgeBaseID)
		assert.Empty(t, manager.created)
	})

	t.Run("validation rejection is a typed failure, not a tool error", func(t *testing.T) {
		manager := newManagerStub()
		orchestrator := &orchestratorStub{
			validateErr: kberrors.New(kberrors.KindValidationNoIndexNofollow,
				"page declares both noindex and nofollow"),
		}
		registry := learnRegistry(manager, orchestrator, &probeStub{})

		text := callTool(t, registry, "learn_from_web_documentation", args)

		var failure models.CrawlStartFailure
		require.NoError(t, yaml.Unmarshal([]byte(text), &failure))
		assert.Contains(t, failure.Reason, "noindex")
		assert.Contains(t, failure.Reason, "nofollow")
		assert.Empty(t, manager.created)
		assert.Zero(t, orchestrator.crawlCalls)
	})

	t.Run("launch failure is a typed failure", func(t *testing.T) {
		manager := newManagerStub()
		orchestrator := &orchestratorStub{
			crawlErr: kberrors.New(kberrors.KindContainerStartFailed, "failed to start crawl container"),
		}
		registry := learnRegistry(manager, orchestrator, &probeStub{})

		text := callTool(t, registry, "learn_from_web_documentation", args)

		var failure models.CrawlStartFailure
		require.NoError(t, yaml.Unmarshal([]byte(text), &failure))
		assert.Equal(t, "failed", failure.Status)
		assert.Contains(t, failure.Reason, "start crawl container")
	})
}

func TestURLsFromWebpage(t *testing.T) {
	probe := &probeStub{result: &interfaces.ExtractionResult{
		URLsToCrawl: []string{"https://ex.com/docs/a", "https://ex.com/docs/b"},
		SkippedURLs: []string{"https://ex.com/docs/legacy"},
	}}
	registry := learnRegistry(newManagerStub(), &orchestratorStub{}, probe)

	text := callTool(t, registry, "learn_urls_from_webpage", map[string]interface{}{
		"url": "https://ex.com/docs/",
	})

	var urls []string
	require.NoError(t, yaml.Unmarshal([]byte(text), &urls))
	assert.Equal(t, []string{"https://ex.com/docs/a", "https://ex.com/docs/b"}, urls)
}

func TestActiveDocumentationRequests(t *testing.T) {
	orchestrator := &orchestratorStub{jobs: []models.CrawlJob{
		{ID: "c1", State: "running", Labels: map[string]string{"crawl-domain": "https://ex.com"}},
	}}
	registry := learnRegistry(newManagerStub(), orchestrator, &probeStub{})

	text := callTool(t, registry, "learn_active_documentation_requests", nil)

	var jobs []models.CrawlJob
	require.NoError(t, yaml.Unmarshal([]byte(text), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "c1", jobs[0].ID)
}
