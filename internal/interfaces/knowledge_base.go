package interfaces

import (
	"context"

	"github.com/ternarybob/scientia/internal/models"
)

// KnowledgeBaseManager is the collection-model abstraction the sub-servers
// consume: knowledge base lifecycle, document lifecycle, and multi-phrase
// search. Implementations enforce name uniqueness and the backend id
// derivation; the backend store stays authoritative for all state.
type KnowledgeBaseManager interface {
	// List returns every knowledge base under the configured prefix, sorted
	// by name (case-insensitive).
	List(ctx context.Context) ([]models.KnowledgeBase, error)

	// Create makes a new knowledge base; fails with AlreadyExists when the
	// name is taken.
	Create(ctx context.Context, proto models.KnowledgeBaseCreateProto) (*models.KnowledgeBase, error)

	// Update rewrites the metadata and runtime name projection. The data
	// mapping is never touched.
	Update(ctx context.Context, kb *models.KnowledgeBase, update models.KnowledgeBaseUpdateProto) error

	// Delete destroys the backing collection.
	Delete(ctx context.Context, kb *models.KnowledgeBase) error

	GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error)
	TryGetByName(ctx context.Context, name string) (*models.KnowledgeBase, error)
	GetByBackendID(ctx context.Context, backendID string) (*models.KnowledgeBase, error)
	TryGetByBackendID(ctx context.Context, backendID string) (*models.KnowledgeBase, error)
	GetByBackendIDOrName(ctx context.Context, idOrName string) (*models.KnowledgeBase, error)

	UpdateByName(ctx context.Context, name string, update models.KnowledgeBaseUpdateProto) error
	UpdateByBackendID(ctx context.Context, backendID string, update models.KnowledgeBaseUpdateProto) error
	DeleteByName(ctx context.Context, name string) error
	DeleteByBackendID(ctx context.Context, backendID string) error

	// InsertDocuments bulk-inserts documents, stamping the insert time. A
	// zero-document call is a no-op.
	InsertDocuments(ctx context.Context, kb *models.KnowledgeBase, docs []models.DocumentProto) error
	UpdateDocument(ctx context.Context, kb *models.KnowledgeBase, docID string, update models.DocumentProto) error
	DeleteDocument(ctx context.Context, kb *models.KnowledgeBase, docID string) error

	// GetRecentDocuments returns up to n documents ordered by insert time
	// descending.
	GetRecentDocuments(ctx context.Context, kb *models.KnowledgeBase, n int) ([]models.Document, error)

	// Search fans the phrases out across all knowledge bases under the
	// prefix; output order matches phrase order.
	Search(ctx context.Context, phrases []string, nHits, nFragments int) ([]models.SearchOutcome, error)

	// SearchByName restricts candidates to the named knowledge bases; an
	// empty name list means no restriction.
	SearchByName(ctx context.Context, names []string, phrases []string, nHits, nFragments int) ([]models.SearchOutcome, error)
}
