package interfaces

import (
	"context"

	"github.com/ternarybob/scientia/internal/models"
)

// CrawlOrchestrator validates crawl targets and runs each crawl as an
// isolated container worker tracked by label.
type CrawlOrchestrator interface {
	// ValidateCrawl derives the crawl parameters for the URL and checks the
	// seed page: robots directives and child URL count.
	ValidateCrawl(ctx context.Context, url string, maxChildLimit int) (*models.CrawlParams, error)

	// CrawlDomain builds the worker config, launches the worker container
	// targeting the given backend collection, and returns the container id.
	CrawlDomain(ctx context.Context, params models.CrawlParams, backendID string, excludePaths []string) (string, error)

	// PullImage pre-fetches the worker image.
	PullImage(ctx context.Context) error

	// ListCrawls enumerates every managed crawl container.
	ListCrawls(ctx context.Context) ([]models.CrawlJob, error)

	// GetCrawlLogs collects the worker's combined log stream.
	GetCrawlLogs(ctx context.Context, containerID string) (string, error)

	// StopCrawl force-removes a crawl container.
	StopCrawl(ctx context.Context, containerID string) error

	// RemoveCompletedCrawls removes every exited managed container.
	// Individual failures are collected, not raised.
	RemoveCompletedCrawls(ctx context.Context) (*models.CleanupSummary, error)
}

// ExtractionResult is the outcome of probing one webpage: the page's robots
// meta directives and its links partitioned into crawlable and nofollow.
type ExtractionResult struct {
	NoIndex     bool
	NoFollow    bool
	URLsToCrawl []string
	SkippedURLs []string
}

// WebProbe fetches a URL and reports robots directives and link sets.
type WebProbe interface {
	// ExtractURLs fetches the page and returns its links, restricted to the
	// given origin and path prefix when the filters are non-empty.
	ExtractURLs(ctx context.Context, url string, domainFilter string, pathFilter string) (*ExtractionResult, error)
}
