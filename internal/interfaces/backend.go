package interfaces

import "context"

// CollectionMapping is the mapping of one backend collection as returned by
// GetMappings: the caller-owned metadata block, the runtime (query-time)
// fields, and the stored field properties.
type CollectionMapping struct {
	Meta       map[string]interface{}
	Runtime    map[string]interface{}
	Properties map[string]interface{}
}

// BulkOp is one document insert within a bulk request.
type BulkOp struct {
	Collection string
	Doc        map[string]interface{}
}

// BulkResult reports the outcome of a bulk insert. The operation is atomic
// per document, not across the batch: ItemErrors lists the failures.
type BulkResult struct {
	Errors     bool
	ItemErrors []string
}

// SearchHit is one hit of a backend search response. Fields holds the
// requested doc-value fields (always array-valued); Highlight maps field
// name to fragment list.
type SearchHit struct {
	ID        string
	Index     string
	Score     float64
	Fields    map[string][]interface{}
	Highlight map[string][]string
}

// AggregationBucket is one bucket of a terms aggregation.
type AggregationBucket struct {
	Key      string
	DocCount int
}

// SearchResponse is one backend search response. For multi-search, Error
// carries a response-local failure without failing the whole batch.
type SearchResponse struct {
	Hits         []SearchHit
	Aggregations map[string][]AggregationBucket
	Error        string
}

// SearchRequest pairs an index pattern with a query body for multi-search.
type SearchRequest struct {
	Pattern string
	Query   map[string]interface{}
}

// BackendStore is the document/vector store consumer contract. The adapter
// behind it owns connection multiplexing and transient-status retries and
// must be safe for concurrent use.
type BackendStore interface {
	// CreateCollection creates a collection with the given full mapping
	// (properties, _meta and runtime blocks included).
	CreateCollection(ctx context.Context, id string, mappings map[string]interface{}) error

	// DeleteCollection destroys a collection and its documents.
	DeleteCollection(ctx context.Context, id string) error

	// PutMapping updates mapping blocks (_meta, runtime) of a collection
	// without touching the data mapping.
	PutMapping(ctx context.Context, id string, mapping map[string]interface{}) error

	// GetMappings returns the mappings of every collection matching the
	// pattern, keyed by collection id.
	GetMappings(ctx context.Context, pattern string) (map[string]CollectionMapping, error)

	// Stats returns the observed document count per collection matching the
	// pattern.
	Stats(ctx context.Context, pattern string) (map[string]int, error)

	// BulkIndex inserts documents; per-item failures are reported in the
	// result, not as an error.
	BulkIndex(ctx context.Context, ops []BulkOp) (*BulkResult, error)

	// UpdateDoc applies a partial update to a single document.
	UpdateDoc(ctx context.Context, id string, docID string, fields map[string]interface{}) error

	// DeleteDoc removes a single document.
	DeleteDoc(ctx context.Context, id string, docID string) error

	// Search runs one query against the pattern.
	Search(ctx context.Context, pattern string, query map[string]interface{}) (*SearchResponse, error)

	// MultiSearch runs independent queries in one request; responses are
	// positional.
	MultiSearch(ctx context.Context, searches []SearchRequest) ([]SearchResponse, error)

	// Ping probes backend liveness.
	Ping(ctx context.Context) error

	// WorkerSettings returns the backend-connection block composed verbatim
	// into crawl worker configs.
	WorkerSettings() map[string]interface{}
}
