package crawler

import (
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scientia/internal/models"
)

// workerConfigPath is where the worker image reads its config document.
const workerConfigPath = "/config/crawl.yml"

type crawlRule struct {
	Policy  string `yaml:"policy"`
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
}

type crawlDomain struct {
	URL        string      `yaml:"url"`
	SeedURLs   []string    `yaml:"seed_urls"`
	CrawlRules []crawlRule `yaml:"crawl_rules"`
}

type workerConfig struct {
	Domains       []crawlDomain          `yaml:"domains"`
	LogLevel      string                 `yaml:"log_level"`
	OutputSink    string                 `yaml:"output_sink"`
	OutputIndex   string                 `yaml:"output_index"`
	Elasticsearch map[string]interface{} `yaml:"elasticsearch"`
}

// buildWorkerConfig renders the crawl config document. Rule order matters:
// exclusions first, then the path-prefix allowance, then a catch-all deny.
// The backend settings block is composed verbatim.
func buildWorkerConfig(params models.CrawlParams, backendID string, excludePaths []string, backendSettings map[string]interface{}) ([]byte, error) {
	rules := make([]crawlRule, 0, len(excludePaths)+2)
	for _, exclude := range excludePaths {
		rules = append(rules, crawlRule{
			Policy:  "deny",
			Type:    "begins",
			Pattern: pathComponent(exclude),
		})
	}
	rules = append(rules,
		crawlRule{Policy: "allow", Type: "begins", Pattern: params.FilterPattern},
		crawlRule{Policy: "deny", Type: "regex", Pattern: ".*"},
	)

	config := workerConfig{
		Domains: []crawlDomain{
			{
				URL:        params.Domain,
				SeedURLs:   []string{params.SeedURL},
				CrawlRules: rules,
			},
		},
		LogLevel:      "DEBUG",
		OutputSink:    "elasticsearch",
		OutputIndex:   backendID,
		Elasticsearch: backendSettings,
	}

	rendered, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to render crawl config: %w", err)
	}
	return rendered, nil
}

// pathComponent reduces a full URL to its path so exclusions written either
// way ("/old/" or "https://ex.com/old/") behave the same.
func pathComponent(exclude string) string {
	if parsed, err := url.Parse(exclude); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return exclude
}
