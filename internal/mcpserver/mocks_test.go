package mcpserver

import (
	"context"
	"fmt"

	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

// managerStub is an in-memory KnowledgeBaseManager for sub-server tests.
type managerStub struct {
	kbs map[string]*models.KnowledgeBase

	created       []models.KnowledgeBaseCreateProto
	deleted       []string
	inserted      []models.DocumentProto
	recent        []models.Document
	outcomes      []models.SearchOutcome
	searchNames   []string
	searchPhrases []string
	searchHits    int
	updatedDocs   map[string]models.DocumentProto
	deletedDocs   []string
}

func newManagerStub() *managerStub {
	return &managerStub{
		kbs:         make(map[string]*models.KnowledgeBase),
		updatedDocs: make(map[string]models.DocumentProto),
	}
}

func (m *managerStub) addKB(name, kbType string, docCount int) *models.KnowledgeBase {
	kb := &models.KnowledgeBase{
		Name:      name,
		Type:      kbType,
		BackendID: fmt.Sprintf("kbmcp-%s.%s-deadbeef", kbType, name),
		DocCount:  docCount,
	}
	m.kbs[name] = kb
	return kb
}

func (m *managerStub) List(_ context.Context) ([]models.KnowledgeBase, error) {
	kbs := make([]models.KnowledgeBase, 0, len(m.kbs))
	for _, kb := range m.kbs {
		kbs = append(kbs, *kb)
	}
	return kbs, nil
}

func (m *managerStub) Create(_ context.Context, proto models.KnowledgeBaseCreateProto) (*models.KnowledgeBase, error) {
	if _, exists := m.kbs[proto.Name]; exists {
		return nil, kberrors.Newf(kberrors.KindAlreadyExists, "knowledge base %q already exists", proto.Name)
	}
	m.created = append(m.created, proto)
	kb := m.addKB(proto.Name, proto.Type, 0)
	kb.DataSource = proto.DataSource
	kb.Description = proto.Description
	return kb, nil
}

func (m *managerStub) Update(_ context.Context, kb *models.KnowledgeBase, update models.KnowledgeBaseUpdateProto) error {
	if update.Name != nil {
		delete(m.kbs, kb.Name)
		kb.Name = *update.Name
		m.kbs[kb.Name] = kb
	}
	if update.Description != nil {
		kb.Description = *update.Description
	}
	return nil
}

func (m *managerStub) Delete(_ context.Context, kb *models.KnowledgeBase) error {
	m.deleted = append(m.deleted, kb.Name)
	delete(m.kbs, kb.Name)
	return nil
}

func (m *managerStub) GetByName(_ context.Context, name string) (*models.KnowledgeBase, error) {
	if kb, ok := m.kbs[name]; ok {
		return kb, nil
	}
	return nil, kberrors.Newf(kberrors.KindNotFound, "knowledge base %q not found", name)
}

func (m *managerStub) TryGetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	kb, err := m.GetByName(ctx, name)
	if kberrors.IsKind(err, kberrors.KindNotFound) {
		return nil, nil
	}
	return kb, err
}

func (m *managerStub) GetByBackendID(_ context.Context, backendID string) (*models.KnowledgeBase, error) {
	for _, kb := range m.kbs {
		if kb.BackendID == backendID {
			return kb, nil
		}
	}
	return nil, kberrors.Newf(kberrors.KindNotFound, "knowledge base with backend id %q not found", backendID)
}

func (m *managerStub) TryGetByBackendID(ctx context.Context, backendID string) (*models.KnowledgeBase, error) {
	kb, err := m.GetByBackendID(ctx, backendID)
	if kberrors.IsKind(err, kberrors.KindNotFound) {
		return nil, nil
	}
	return kb, err
}

func (m *managerStub) GetByBackendIDOrName(ctx context.Context, idOrName string) (*models.KnowledgeBase, error) {
	if kb, err := m.TryGetByBackendID(ctx, idOrName); err != nil || kb != nil {
		return kb, err
	}
	return m.GetByName(ctx, idOrName)
}

func (m *managerStub) UpdateByName(ctx context.Context, name string, update models.KnowledgeBaseUpdateProto) error {
	kb, err := m.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return m.Update(ctx, kb, update)
}

func (m *managerStub) UpdateByBackendID(ctx context.Context, backendID string, update models.KnowledgeBaseUpdateProto) error {
	kb, err := m.GetByBackendID(ctx, backendID)
	if err != nil {
		return err
	}
	return m.Update(ctx, kb, update)
}

func (m *managerStub) DeleteByName(ctx context.Context, name string) error {
	kb, err := m.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return m.Delete(ctx, kb)
}

func (m *managerStub) DeleteByBackendID(ctx context.Context, backendID string) error {
	kb, err := m.GetByBackendID(ctx, backendID)
	if err != nil {
		return err
	}
	return m.Delete(ctx, kb)
}

func (m *managerStub) InsertDocuments(_ context.Context, _ *models.KnowledgeBase, docs []models.DocumentProto) error {
	m.inserted = append(m.inserted, docs...)
	return nil
}

func (m *managerStub) UpdateDocument(_ context.Context, _ *models.KnowledgeBase, docID string, update models.DocumentProto) error {
	m.updatedDocs[docID] = update
	return nil
}

func (m *managerStub) DeleteDocument(_ context.Context, _ *models.KnowledgeBase, docID string) error {
	m.deletedDocs = append(m.deletedDocs, docID)
	return nil
}

func (m *managerStub) GetRecentDocuments(_ context.Context, _ *models.KnowledgeBase, n int) ([]models.Document, error) {
	if len(m.recent) > n {
		return m.recent[:n], nil
	}
	return m.recent, nil
}

func (m *managerStub) Search(ctx context.Context, phrases []string, nHits, nFragments int) ([]models.SearchOutcome, error) {
	return m.SearchByName(ctx, nil, phrases, nHits, nFragments)
}

func (m *managerStub) SearchByName(_ context.Context, names []string, phrases []string, nHits, _ int) ([]models.SearchOutcome, error) {
	m.searchNames = names
	m.searchPhrases = phrases
	m.searchHits = nHits
	return m.outcomes, nil
}

// orchestratorStub records crawl launches.
type orchestratorStub struct {
	params      *models.CrawlParams
	validateErr error
	crawlID     string
	crawlErr    error
	crawlCalls  int
	crawledID   string
	jobs        []models.CrawlJob
}

func (o *orchestratorStub) ValidateCrawl(_ context.Context, seedURL string, _ int) (*models.CrawlParams, error) {
	if o.validateErr != nil {
		return nil, o.validateErr
	}
	if o.params != nil {
		return o.params, nil
	}
	return &models.CrawlParams{SeedURL: seedURL, Domain: "https://ex.com", FilterPattern: "/docs/"}, nil
}

func (o *orchestratorStub) CrawlDomain(_ context.Context, _ models.CrawlParams, backendID string, _ []string) (string, error) {
	if o.crawlErr != nil {
		return "", o.crawlErr
	}
	o.crawlCalls++
	o.crawledID = backendID
	if o.crawlID != "" {
		return o.crawlID, nil
	}
	return "container-1", nil
}

func (o *orchestratorStub) PullImage(_ context.Context) error { return nil }

func (o *orchestratorStub) ListCrawls(_ context.Context) ([]models.CrawlJob, error) {
	return o.jobs, nil
}

func (o *orchestratorStub) GetCrawlLogs(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (o *orchestratorStub) StopCrawl(_ context.Context, _ string) error { return nil }

func (o *orchestratorStub) RemoveCompletedCrawls(_ context.Context) (*models.CleanupSummary, error) {
	return &models.CleanupSummary{}, nil
}

// probeStub returns a canned extraction.
type probeStub struct {
	result *interfaces.ExtractionResult
	err    error
}

func (p *probeStub) ExtractURLs(_ context.Context, _, _, _ string) (*interfaces.ExtractionResult, error) {
	return p.result, p.err
}
