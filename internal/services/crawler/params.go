package crawler

import (
	"net/url"
	"strings"

	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

// DeriveCrawlParams splits a seed URL into the crawl parameters. The filter
// pattern is the URL path, truncated to the last slash when the final
// segment looks like a file; an empty path becomes "/".
func DeriveCrawlParams(seedURL string) (*models.CrawlParams, error) {
	parsed, err := url.Parse(seedURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, kberrors.Newf(kberrors.KindValidationHTTP, "invalid seed URL %q", seedURL)
	}

	pattern := parsed.Path
	if !strings.HasSuffix(pattern, "/") {
		if idx := strings.LastIndex(pattern, "/"); idx >= 0 {
			lastSegment := pattern[idx+1:]
			if strings.Contains(lastSegment, ".") {
				pattern = pattern[:idx+1]
			}
		}
	}
	if pattern == "" {
		pattern = "/"
	}

	return &models.CrawlParams{
		SeedURL:       seedURL,
		Domain:        parsed.Scheme + "://" + parsed.Host,
		FilterPattern: pattern,
	}, nil
}
