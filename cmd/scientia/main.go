package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/containers"
	"github.com/ternarybob/scientia/internal/mcpserver"
	"github.com/ternarybob/scientia/internal/services/crawler"
	"github.com/ternarybob/scientia/internal/services/kb"
	"github.com/ternarybob/scientia/internal/storage/elastic"
	"github.com/ternarybob/scientia/internal/webprobe"
)

func main() {
	// Load configuration
	configPath := os.Getenv("SCIENTIA_CONFIG")
	if configPath == "" {
		configPath = "scientia.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// With the stdio transport the console writer shares the process
	// stdout with the protocol stream, so the level stays at warn.
	logger := common.InitLogger(config)

	// Initialize backend storage and verify connectivity before
	// accepting any tool calls.
	store, err := elastic.NewStore(config.Elasticsearch, config.Crawler.ESPipeline)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize search backend")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Elasticsearch.PingTimeout)*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal().Err(err).Str("host", config.Elasticsearch.Host).Msg("Search backend is unreachable")
	}

	runtime, err := containers.NewDockerRuntime(config.Crawler.DockerSocket)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize container runtime")
	}
	defer runtime.Close()

	manager := kb.NewManager(store, config.KnowledgeBase.BaseIndexPrefix)
	probe := webprobe.NewProbe()
	orchestrator := crawler.NewOrchestrator(runtime, probe, config.Crawler, store.WorkerSettings())

	// Assemble the tool surface
	registry := mcpserver.NewRegistry("scientia", common.GetVersion())
	registry.Mount("manage", mcpserver.NewManageServer(manager).Tools())
	registry.Mount("ask", mcpserver.NewAskServer(manager).Tools())
	registry.Mount("learn", mcpserver.NewLearnServer(manager, orchestrator, probe).Tools())
	registry.Mount("memory", mcpserver.NewMemoryServer(manager).Tools())
	registry.MountBulkTools()

	// Periodic removal of exited crawl containers
	janitor := crawler.NewJanitor(orchestrator, config.Crawler.CleanupSchedule)
	if err := janitor.Start(); err != nil {
		logger.Fatal().Err(err).Str("schedule", config.Crawler.CleanupSchedule).Msg("Failed to start cleanup schedule")
	}
	defer janitor.Stop()

	switch config.Server.Transport {
	case "sse":
		sseServer := server.NewSSEServer(registry.Server())
		logger.Info().Int("port", config.Server.SSEPort).Msg("Serving MCP over SSE")
		if err := sseServer.Start(fmt.Sprintf(":%d", config.Server.SSEPort)); err != nil {
			logger.Fatal().Err(err).Msg("MCP server failed")
		}
	default:
		if err := server.ServeStdio(registry.Server()); err != nil {
			logger.Fatal().Err(err).Msg("MCP server failed")
		}
	}
}
