package models

// SearchOutcome is the per-phrase result of a multi-phrase search: either a
// SearchResult or a SearchResultError. The concrete type is the tag.
type SearchOutcome interface {
	SearchPhrase() string
}

// SearchResult holds the top hits for one phrase plus the per-knowledge-base
// match summaries. Summaries count the full matched set, not just the
// returned hits, so the summed matches can exceed len(Results).
type SearchResult struct {
	Phrase    string                 `json:"phrase" yaml:"phrase"`
	Results   []Document             `json:"results" yaml:"results"`
	Summaries []KnowledgeBaseSummary `json:"summaries" yaml:"summaries"`
}

func (r SearchResult) SearchPhrase() string { return r.Phrase }

// SearchResultError reports a phrase-local failure (typically zero hits).
// It never aborts the rest of the batch.
type SearchResultError struct {
	Phrase string `json:"phrase" yaml:"phrase"`
	Error  string `json:"error" yaml:"error"`
}

func (r SearchResultError) SearchPhrase() string { return r.Phrase }

// KnowledgeBaseSummary is one bucket of the per-knowledge-base terms
// aggregation for a single phrase.
type KnowledgeBaseSummary struct {
	KnowledgeBaseName string `json:"knowledge_base_name" yaml:"knowledge_base_name"`
	Matches           int    `json:"matches" yaml:"matches"`
}
