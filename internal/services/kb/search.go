package kb

import (
	"context"

	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

const (
	// minScore is the relevance floor; phrases whose best hit falls below it
	// come back as zero hits.
	minScore = 10

	// searchAggName keys the per-knowledge-base terms aggregation.
	searchAggName = "knowledge_bases"

	noHitsMessage = "No hits found in one of the search responses."

	unknownKBName = "<Unknown KB>"
	untitledDoc   = "<No Title>"

	highlightFragmentSize = 500
)

func (m *Manager) Search(ctx context.Context, phrases []string, nHits, nFragments int) ([]models.SearchOutcome, error) {
	return m.SearchByName(ctx, nil, phrases, nHits, nFragments)
}

// SearchByName fans the phrases out in one multi-search request. The name
// restriction is applied in the query filter rather than the index pattern,
// so renamed knowledge bases are matched through the runtime projection.
// Output order matches phrase order; a zero-hit or failed phrase yields a
// SearchResultError without aborting the batch.
func (m *Manager) SearchByName(ctx context.Context, names []string, phrases []string, nHits, nFragments int) ([]models.SearchOutcome, error) {
	outcomes := make([]models.SearchOutcome, 0, len(phrases))
	if len(phrases) == 0 {
		return outcomes, nil
	}

	requests := make([]interfaces.SearchRequest, 0, len(phrases))
	for _, phrase := range phrases {
		requests = append(requests, interfaces.SearchRequest{
			Pattern: m.pattern(),
			Query:   phraseQuery(phrase, names, nHits, nFragments),
		})
	}

	responses, err := m.store.MultiSearch(ctx, requests)
	if err != nil {
		return nil, err
	}
	if len(responses) != len(phrases) {
		return nil, kberrors.Newf(kberrors.KindSearch,
			"backend returned %d responses for %d phrases", len(responses), len(phrases))
	}

	for i, response := range responses {
		outcomes = append(outcomes, assemblePhraseOutcome(phrases[i], response))
	}
	return outcomes, nil
}

func assemblePhraseOutcome(phrase string, response interfaces.SearchResponse) models.SearchOutcome {
	if response.Error != "" {
		return models.SearchResultError{Phrase: phrase, Error: response.Error}
	}
	if len(response.Hits) == 0 {
		return models.SearchResultError{Phrase: phrase, Error: noHitsMessage}
	}

	result := models.SearchResult{Phrase: phrase}
	for _, hit := range response.Hits {
		result.Results = append(result.Results, projectHit(hit))
	}
	for _, bucket := range response.Aggregations[searchAggName] {
		result.Summaries = append(result.Summaries, models.KnowledgeBaseSummary{
			KnowledgeBaseName: bucket.Key,
			Matches:           bucket.DocCount,
		})
	}
	return result
}

// projectHit maps one backend hit to the document read shape. Content
// prefers highlight fragments and falls back to the raw body values.
func projectHit(hit interfaces.SearchHit) models.Document {
	doc := models.Document{
		ID:                hit.ID,
		Score:             hit.Score,
		KnowledgeBaseName: unknownKBName,
		Title:             untitledDoc,
	}

	if name := firstString(hit.Fields[runtimeNameField]); name != "" {
		doc.KnowledgeBaseName = name
	}
	if title := firstString(hit.Fields["title"]); title != "" {
		doc.Title = title
	}
	if url := firstString(hit.Fields["url"]); url != "" {
		doc.URL = &url
	}

	if fragments := hit.Highlight["body"]; len(fragments) > 0 {
		doc.Content = fragments
	} else {
		doc.Content = allStrings(hit.Fields["body"])
	}
	return doc
}

func firstString(values []interface{}) string {
	if len(values) == 0 {
		return ""
	}
	if s, ok := values[0].(string); ok {
		return s
	}
	return ""
}

func allStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
