// -----------------------------------------------------------------------
// Web Probe - seed page inspection for crawl validation
// -----------------------------------------------------------------------

package webprobe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "scientia-probe/1.0"
)

// Probe implements interfaces.WebProbe by fetching a page once and reading
// its robots directives and anchor links.
type Probe struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewProbe builds a probe with a shared request budget of two fetches per
// second across callers.
func NewProbe() *Probe {
	return &Probe{
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  common.GetLogger(),
	}
}

// ExtractURLs fetches the page and returns its robots directives plus its
// links, partitioned by rel=nofollow. Links are absolutized against the page
// URL, stripped of fragment and query, deduplicated and sorted. A non-empty
// domainFilter restricts links to that scheme+authority; a non-empty
// pathFilter restricts them to that path prefix.
func (p *Probe) ExtractURLs(ctx context.Context, pageURL string, domainFilter string, pathFilter string) (*interfaces.ExtractionResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindValidationHTTP, fmt.Sprintf("invalid URL %s", pageURL), err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindValidationHTTP, fmt.Sprintf("failed to fetch %s", pageURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, kberrors.Newf(kberrors.KindValidationHTTP, "fetching %s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindValidationHTTP, fmt.Sprintf("failed to parse %s", pageURL), err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindValidationHTTP, fmt.Sprintf("invalid URL %s", pageURL), err)
	}

	result := &interfaces.ExtractionResult{}
	result.NoIndex, result.NoFollow = robotsDirectives(doc)

	crawlable := make(map[string]struct{})
	skipped := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link := normalizeLink(base, href)
		if link == nil {
			return
		}

		if domainFilter != "" && link.Scheme+"://"+link.Host != domainFilter {
			return
		}
		if pathFilter != "" && !strings.HasPrefix(link.Path, pathFilter) {
			return
		}

		rel, _ := sel.Attr("rel")
		if relContains(rel, "nofollow") {
			skipped[link.String()] = struct{}{}
		} else {
			crawlable[link.String()] = struct{}{}
		}
	})

	result.URLsToCrawl = sortedKeys(crawlable)
	result.SkippedURLs = sortedKeys(skipped)

	p.logger.Debug().
		Str("url", pageURL).
		Int("crawlable", len(result.URLsToCrawl)).
		Int("skipped", len(result.SkippedURLs)).
		Msg("Extracted page links")

	return result, nil
}

// robotsDirectives reads every robots meta tag, case-insensitively.
func robotsDirectives(doc *goquery.Document) (noIndex, noFollow bool) {
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if !strings.EqualFold(name, "robots") {
			return
		}
		content, _ := sel.Attr("content")
		content = strings.ToLower(content)
		if strings.Contains(content, "noindex") {
			noIndex = true
		}
		if strings.Contains(content, "nofollow") {
			noFollow = true
		}
	})
	return noIndex, noFollow
}

// normalizeLink absolutizes an href against the page URL and strips the
// fragment and query. Non-http(s) schemes are dropped.
func normalizeLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return nil
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}

	resolved.Fragment = ""
	resolved.RawQuery = ""
	return resolved
}

func relContains(rel, value string) bool {
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, value) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
