// -----------------------------------------------------------------------
// Knowledge Base Manager - lifecycle, documents and search over the backend
// -----------------------------------------------------------------------

package kb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

// Manager implements interfaces.KnowledgeBaseManager. The backend store is
// authoritative for all state; the manager holds no cache, so every lookup
// re-reads collection metadata.
type Manager struct {
	store  interfaces.BackendStore
	prefix string
	logger arbor.ILogger
	now    func() time.Time
}

func NewManager(store interfaces.BackendStore, prefix string) *Manager {
	return &Manager{
		store:  store,
		prefix: prefix,
		logger: common.GetLogger(),
		now:    time.Now,
	}
}

func (m *Manager) pattern() string {
	return m.prefix + "-*"
}

// newBackendID derives the collection id for a new knowledge base:
// <prefix>-<type>.<sanitized-data-source>-<8 hex chars>.
func (m *Manager) newBackendID(proto models.KnowledgeBaseCreateProto) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return m.prefix + "-" + proto.Type + "." + SanitizeDataSource(proto.DataSource) + "-" + suffix
}

func (m *Manager) List(ctx context.Context) ([]models.KnowledgeBase, error) {
	mappings, err := m.store.GetMappings(ctx, m.pattern())
	if err != nil {
		return nil, err
	}
	stats, err := m.store.Stats(ctx, m.pattern())
	if err != nil {
		return nil, err
	}

	kbs := make([]models.KnowledgeBase, 0, len(mappings))
	for backendID, mapping := range mappings {
		kb, ok := kbFromMeta(backendID, mapping.Meta)
		if !ok {
			continue
		}
		kb.DocCount = stats[backendID]
		kbs = append(kbs, kb)
	}

	sort.Slice(kbs, func(i, j int) bool {
		a, b := strings.ToLower(kbs[i].Name), strings.ToLower(kbs[j].Name)
		if a != b {
			return a < b
		}
		return kbs[i].BackendID < kbs[j].BackendID
	})
	return kbs, nil
}

func (m *Manager) Create(ctx context.Context, proto models.KnowledgeBaseCreateProto) (*models.KnowledgeBase, error) {
	existing, err := m.TryGetByName(ctx, proto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, kberrors.Newf(kberrors.KindAlreadyExists, "knowledge base %q already exists", proto.Name)
	}

	backendID := m.newBackendID(proto)
	if err := m.store.CreateCollection(ctx, backendID, collectionMappings(proto)); err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("name", proto.Name).
		Str("backend_id", backendID).
		Msg("Knowledge base created")

	return &models.KnowledgeBase{
		Name:        proto.Name,
		Type:        proto.Type,
		DataSource:  proto.DataSource,
		Description: proto.Description,
		BackendID:   backendID,
	}, nil
}

func (m *Manager) Update(ctx context.Context, kb *models.KnowledgeBase, update models.KnowledgeBaseUpdateProto) error {
	if update.Name != nil && *update.Name != kb.Name {
		existing, err := m.TryGetByName(ctx, *update.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return kberrors.Newf(kberrors.KindAlreadyExists, "knowledge base %q already exists", *update.Name)
		}
	}

	merged := update.ApplyTo(kb.ToCreateProto())
	if err := m.store.PutMapping(ctx, kb.BackendID, metadataMappings(merged)); err != nil {
		return err
	}

	kb.Name = merged.Name
	kb.Description = merged.Description
	return nil
}

func (m *Manager) Delete(ctx context.Context, kb *models.KnowledgeBase) error {
	if err := m.store.DeleteCollection(ctx, kb.BackendID); err != nil {
		return err
	}
	m.logger.Info().Str("name", kb.Name).Str("backend_id", kb.BackendID).Msg("Knowledge base deleted")
	return nil
}

func (m *Manager) GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	kbs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	var found []models.KnowledgeBase
	for _, kb := range kbs {
		if kb.Name == name {
			found = append(found, kb)
		}
	}

	switch len(found) {
	case 0:
		return nil, kberrors.Newf(kberrors.KindNotFound, "knowledge base %q not found", name)
	case 1:
		return &found[0], nil
	default:
		return nil, kberrors.Newf(kberrors.KindNonUnique, "found %d knowledge bases named %q", len(found), name)
	}
}

func (m *Manager) TryGetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	kb, err := m.GetByName(ctx, name)
	if kberrors.IsKind(err, kberrors.KindNotFound) || kberrors.IsKind(err, kberrors.KindNonUnique) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return kb, nil
}

func (m *Manager) GetByBackendID(ctx context.Context, backendID string) (*models.KnowledgeBase, error) {
	kbs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range kbs {
		if kbs[i].BackendID == backendID {
			return &kbs[i], nil
		}
	}
	return nil, kberrors.Newf(kberrors.KindNotFound, "knowledge base with backend id %q not found", backendID)
}

func (m *Manager) TryGetByBackendID(ctx context.Context, backendID string) (*models.KnowledgeBase, error) {
	kb, err := m.GetByBackendID(ctx, backendID)
	if kberrors.IsKind(err, kberrors.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// GetByBackendIDOrName resolves an identifier that callers may supply either
// way; the backend id form wins when both match.
func (m *Manager) GetByBackendIDOrName(ctx context.Context, idOrName string) (*models.KnowledgeBase, error) {
	kb, err := m.TryGetByBackendID(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if kb != nil {
		return kb, nil
	}
	kb, err = m.TryGetByName(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if kb != nil {
		return kb, nil
	}
	return nil, kberrors.Newf(kberrors.KindNotFound, "no knowledge base with backend id or name %q", idOrName)
}

func (m *Manager) UpdateByName(ctx context.Context, name string, update models.KnowledgeBaseUpdateProto) error {
	kb, err := m.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return m.Update(ctx, kb, update)
}

func (m *Manager) UpdateByBackendID(ctx context.Context, backendID string, update models.KnowledgeBaseUpdateProto) error {
	kb, err := m.GetByBackendID(ctx, backendID)
	if err != nil {
		return err
	}
	return m.Update(ctx, kb, update)
}

func (m *Manager) DeleteByName(ctx context.Context, name string) error {
	kb, err := m.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return m.Delete(ctx, kb)
}

func (m *Manager) DeleteByBackendID(ctx context.Context, backendID string) error {
	kb, err := m.GetByBackendID(ctx, backendID)
	if err != nil {
		return err
	}
	return m.Delete(ctx, kb)
}

func (m *Manager) InsertDocuments(ctx context.Context, kb *models.KnowledgeBase, docs []models.DocumentProto) error {
	if len(docs) == 0 {
		m.logger.Warn().Str("name", kb.Name).Msg("Insert called with zero documents")
		return nil
	}

	// One timestamp for the whole batch.
	timestamp := m.now().UnixMilli()

	ops := make([]interfaces.BulkOp, 0, len(docs))
	for _, doc := range docs {
		ops = append(ops, interfaces.BulkOp{
			Collection: kb.BackendID,
			Doc: map[string]interface{}{
				"title":      doc.Title,
				"body":       doc.Content,
				"@timestamp": timestamp,
			},
		})
	}

	result, err := m.store.BulkIndex(ctx, ops)
	if err != nil {
		return err
	}
	if result.Errors {
		return kberrors.Newf(kberrors.KindCreation,
			"failed to insert documents into %q: %s", kb.Name, strings.Join(result.ItemErrors, "; "))
	}
	return nil
}

func (m *Manager) UpdateDocument(ctx context.Context, kb *models.KnowledgeBase, docID string, update models.DocumentProto) error {
	return m.store.UpdateDoc(ctx, kb.BackendID, docID, map[string]interface{}{
		"title": update.Title,
		"body":  update.Content,
	})
}

func (m *Manager) DeleteDocument(ctx context.Context, kb *models.KnowledgeBase, docID string) error {
	return m.store.DeleteDoc(ctx, kb.BackendID, docID)
}

func (m *Manager) GetRecentDocuments(ctx context.Context, kb *models.KnowledgeBase, n int) ([]models.Document, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort": []interface{}{
			map[string]interface{}{"@timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size":    n,
		"fields":  []interface{}{"title", "url", "body", runtimeNameField},
		"_source": false,
	}

	response, err := m.store.Search(ctx, kb.BackendID, query)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(response.Hits))
	for _, hit := range response.Hits {
		docs = append(docs, projectHit(hit))
	}
	return docs, nil
}
