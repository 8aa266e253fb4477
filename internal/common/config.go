package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Elasticsearch ElasticsearchConfig `toml:"elasticsearch" validate:"required"`
	Crawler       CrawlerConfig       `toml:"crawler"`
	KnowledgeBase KnowledgeBaseConfig `toml:"knowledge_base"`
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
}

// ElasticsearchConfig contains backend connection settings. Exactly one
// authentication method must be set: api_key, or username+password.
type ElasticsearchConfig struct {
	Host           string `toml:"host" validate:"required,url"`
	APIKey         string `toml:"api_key"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	RequestTimeout int    `toml:"request_timeout"` // seconds, default 600
	PingTimeout    int    `toml:"ping_timeout"`    // seconds, default 5
	BulkMaxItems   int    `toml:"bulk_max_items"`  // default 200
	BulkMaxBytes   int    `toml:"bulk_max_bytes"`  // default 10 MiB
}

// CrawlerConfig contains crawl worker settings
type CrawlerConfig struct {
	DockerImage       string `toml:"docker_image"`
	DockerSocket      string `toml:"docker_socket"`      // empty = environment default
	ESPipeline        string `toml:"es_pipeline"`        // ingest pipeline for crawled docs
	MemoryReservation int64  `toml:"memory_reservation"` // bytes, default 512 MiB
	CleanupSchedule   string `toml:"cleanup_schedule"`   // cron expr, empty = disabled
}

// KnowledgeBaseConfig contains collection naming settings
type KnowledgeBaseConfig struct {
	BaseIndexPrefix string `toml:"base_index_prefix"`
}

// ServerConfig selects the MCP transport
type ServerConfig struct {
	Transport string `toml:"transport" validate:"oneof=stdio sse"`
	SSEPort   int    `toml:"sse_port"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// IndexPattern returns the wildcard matching every collection owned by this
// service.
func (c *KnowledgeBaseConfig) IndexPattern() string {
	return c.BaseIndexPrefix + "-*"
}

// DefaultConfig returns the configuration defaults applied before file and
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Elasticsearch: ElasticsearchConfig{
			Host:           "https://localhost:9200",
			RequestTimeout: 600,
			PingTimeout:    5,
			BulkMaxItems:   200,
			BulkMaxBytes:   10 * 1024 * 1024,
		},
		Crawler: CrawlerConfig{
			DockerImage:       "docker.elastic.co/integrations/crawler:latest",
			ESPipeline:        "ent-search-generic-ingestion",
			MemoryReservation: 512 * 1024 * 1024,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			BaseIndexPrefix: "kbmcp",
		},
		Server: ServerConfig{
			Transport: "stdio",
			SSEPort:   8642,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration from a TOML file, then applies
// environment overrides and validates. A missing file is not an error: the
// server can run entirely from environment variables.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides layers environment variables over file values.
func applyEnvOverrides(config *Config) {
	setString := func(key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}

	setString("ES_HOST", &config.Elasticsearch.Host)
	setString("ES_API_KEY", &config.Elasticsearch.APIKey)
	setString("ES_USERNAME", &config.Elasticsearch.Username)
	setString("ES_PASSWORD", &config.Elasticsearch.Password)
	setInt("ES_REQUEST_TIMEOUT", &config.Elasticsearch.RequestTimeout)
	setInt("ES_BULK_API_MAX_ITEMS", &config.Elasticsearch.BulkMaxItems)
	setInt("ES_BULK_API_MAX_SIZE_BYTES", &config.Elasticsearch.BulkMaxBytes)

	setString("CRAWLER_DOCKER_IMAGE", &config.Crawler.DockerImage)
	setString("CRAWLER_DOCKER_SOCKET", &config.Crawler.DockerSocket)
	setString("CRAWLER_ES_PIPELINE", &config.Crawler.ESPipeline)

	setString("KB_BASE_INDEX_PREFIX", &config.KnowledgeBase.BaseIndexPrefix)

	setString("MCP_TRANSPORT", &config.Server.Transport)
	setString("MCP_LOG_LEVEL", &config.Logging.Level)
}

// Validate checks structural constraints and the authentication invariant.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	hasAPIKey := c.Elasticsearch.APIKey != ""
	hasBasic := c.Elasticsearch.Username != "" || c.Elasticsearch.Password != ""

	if hasAPIKey && hasBasic {
		return fmt.Errorf("invalid configuration: cannot use both API key and basic authentication")
	}
	if !hasAPIKey && !hasBasic {
		return fmt.Errorf("invalid configuration: one of api_key or username+password is required")
	}
	if hasBasic && (c.Elasticsearch.Username == "" || c.Elasticsearch.Password == "") {
		return fmt.Errorf("invalid configuration: basic authentication requires both username and password")
	}

	return nil
}
