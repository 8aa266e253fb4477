package models

// CrawlParams are the parameters derived from a seed URL: the origin to
// crawl, the URL to start from, and the path prefix pages must match.
type CrawlParams struct {
	SeedURL       string `json:"seed_url" yaml:"seed_url"`
	Domain        string `json:"domain" yaml:"domain"`
	FilterPattern string `json:"filter_pattern" yaml:"filter_pattern"`
}

// CrawlJob describes one crawl worker container.
type CrawlJob struct {
	ID     string            `json:"id" yaml:"id"`
	Names  []string          `json:"names,omitempty" yaml:"names,omitempty"`
	Image  string            `json:"image" yaml:"image"`
	State  string            `json:"state" yaml:"state"`
	Status string            `json:"status,omitempty" yaml:"status,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// CleanupSummary reports a bulk removal of completed crawl containers.
type CleanupSummary struct {
	Removed int `json:"removed" yaml:"removed"`
	Total   int `json:"total" yaml:"total"`
}

// LearnWebDocumentationProto carries the parameters for learning from web
// documentation: the knowledge base to create (or reuse) and the crawl
// boundaries.
type LearnWebDocumentationProto struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	DataSource   string   `json:"data_source" yaml:"data_source"`
	Description  string   `json:"description" yaml:"description"`
	ExcludePaths []string `json:"exclude_paths,omitempty" yaml:"exclude_paths,omitempty"`
	Overwrite    bool     `json:"overwrite" yaml:"overwrite"`
}

// ToKnowledgeBaseCreateProto maps the learn request onto a docs-typed
// knowledge base create request.
func (p *LearnWebDocumentationProto) ToKnowledgeBaseCreateProto() KnowledgeBaseCreateProto {
	return KnowledgeBaseCreateProto{
		Name:        p.Name,
		Type:        KnowledgeBaseTypeDocs,
		DataSource:  p.DataSource,
		Description: p.Description,
	}
}

// CrawlStartSuccess is the typed result of a crawl that launched.
type CrawlStartSuccess struct {
	URL             string `json:"url" yaml:"url"`
	KnowledgeBaseID string `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	ContainerID     string `json:"container_id" yaml:"container_id"`
	Status          string `json:"status" yaml:"status"`
}

// CrawlStartFailure is the typed result of a crawl that could not start.
// Business failures (validation, existing knowledge base without overwrite,
// launch errors) surface as this result, never as a tool error.
type CrawlStartFailure struct {
	URL    string `json:"url" yaml:"url"`
	Status string `json:"status" yaml:"status"`
	Reason string `json:"reason" yaml:"reason"`
}
