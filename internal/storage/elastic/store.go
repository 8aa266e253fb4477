// -----------------------------------------------------------------------
// Elasticsearch Store - BackendStore adapter over go-elasticsearch/v8
// -----------------------------------------------------------------------

package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
)

// transientStatuses are retried by the transport before an error surfaces.
var transientStatuses = []int{408, 429, 502, 503, 504}

const maxRetries = 5

// Store implements interfaces.BackendStore against an Elasticsearch cluster.
// Safe for concurrent use; the underlying client multiplexes connections.
type Store struct {
	client   *elasticsearch.Client
	config   common.ElasticsearchConfig
	pipeline string
	logger   arbor.ILogger
}

// NewStore builds the backend client with transient-status retries and the
// configured authentication. The pipeline is the ingest pipeline handed to
// crawl workers, not used by the store itself.
func NewStore(config common.ElasticsearchConfig, pipeline string) (*Store, error) {
	esConfig := elasticsearch.Config{
		Addresses:     []string{config.Host},
		RetryOnStatus: transientStatuses,
		MaxRetries:    maxRetries,
		Transport: &http.Transport{
			ResponseHeaderTimeout: time.Duration(config.RequestTimeout) * time.Second,
		},
	}

	if config.APIKey != "" {
		esConfig.APIKey = config.APIKey
	} else {
		esConfig.Username = config.Username
		esConfig.Password = config.Password
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindBackendConnection, "failed to build the backend client", err)
	}

	return &Store{
		client:   client,
		config:   config,
		pipeline: pipeline,
		logger:   common.GetLogger(),
	}, nil
}

// consume reads and closes a response, classifying transport failures and
// error statuses under the given operation description.
func consume(operation string, res *esapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, kberrors.ClassifyBackend(operation, 0, err)
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return nil, kberrors.ClassifyBackend(operation, res.StatusCode, readErr)
	}
	if res.IsError() {
		return nil, kberrors.ClassifyBackend(operation, res.StatusCode, fmt.Errorf("%s", bytes.TrimSpace(body)))
	}
	return body, nil
}

func (s *Store) CreateCollection(ctx context.Context, id string, mappings map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"mappings": mappings})
	if err != nil {
		return kberrors.Wrap(kberrors.KindCreation, "failed to encode collection mappings", err)
	}

	res, err := s.client.Indices.Create(id,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	_, err = consume(fmt.Sprintf("creating collection %s", id), res, err)
	return err
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.client.Indices.Delete([]string{id},
		s.client.Indices.Delete.WithContext(ctx),
	)
	_, err = consume(fmt.Sprintf("deleting collection %s", id), res, err)
	return err
}

func (s *Store) PutMapping(ctx context.Context, id string, mapping map[string]interface{}) error {
	body, err := json.Marshal(mapping)
	if err != nil {
		return kberrors.Wrap(kberrors.KindUpdate, "failed to encode mapping update", err)
	}

	res, err := s.client.Indices.PutMapping([]string{id}, bytes.NewReader(body),
		s.client.Indices.PutMapping.WithContext(ctx),
	)
	_, err = consume(fmt.Sprintf("updating mapping of collection %s", id), res, err)
	return err
}

func (s *Store) GetMappings(ctx context.Context, pattern string) (map[string]interfaces.CollectionMapping, error) {
	res, err := s.client.Indices.GetMapping(
		s.client.Indices.GetMapping.WithIndex(pattern),
		s.client.Indices.GetMapping.WithContext(ctx),
	)
	body, err := consume(fmt.Sprintf("getting mappings for %s", pattern), res, err)
	if err != nil {
		return nil, err
	}

	var raw map[string]struct {
		Mappings struct {
			Meta       map[string]interface{} `json:"_meta"`
			Runtime    map[string]interface{} `json:"runtime"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, kberrors.Wrap(kberrors.KindRetrieval, "failed to decode mappings response", err)
	}

	mappings := make(map[string]interfaces.CollectionMapping, len(raw))
	for index, entry := range raw {
		mappings[index] = interfaces.CollectionMapping{
			Meta:       entry.Mappings.Meta,
			Runtime:    entry.Mappings.Runtime,
			Properties: entry.Mappings.Properties,
		}
	}
	return mappings, nil
}

func (s *Store) Stats(ctx context.Context, pattern string) (map[string]int, error) {
	res, err := s.client.Cat.Indices(
		s.client.Cat.Indices.WithIndex(pattern),
		s.client.Cat.Indices.WithFormat("json"),
		s.client.Cat.Indices.WithH("index", "docs.count"),
		s.client.Cat.Indices.WithContext(ctx),
	)
	body, err := consume(fmt.Sprintf("getting stats for %s", pattern), res, err)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Index     string `json:"index"`
		DocsCount string `json:"docs.count"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, kberrors.Wrap(kberrors.KindRetrieval, "failed to decode stats response", err)
	}

	stats := make(map[string]int, len(rows))
	for _, row := range rows {
		count, convErr := strconv.Atoi(row.DocsCount)
		if convErr != nil {
			count = 0
		}
		stats[row.Index] = count
	}
	return stats, nil
}

func (s *Store) BulkIndex(ctx context.Context, ops []interfaces.BulkOp) (*interfaces.BulkResult, error) {
	result := &interfaces.BulkResult{}
	if len(ops) == 0 {
		return result, nil
	}

	var buf bytes.Buffer
	items := 0

	flush := func() error {
		if items == 0 {
			return nil
		}
		batch, err := s.sendBulk(ctx, &buf)
		if err != nil {
			return err
		}
		if batch.Errors {
			result.Errors = true
			result.ItemErrors = append(result.ItemErrors, batch.ItemErrors...)
		}
		buf.Reset()
		items = 0
		return nil
	}

	for _, op := range ops {
		action, err := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": op.Collection},
		})
		if err != nil {
			return nil, kberrors.Wrap(kberrors.KindCreation, "failed to encode bulk action", err)
		}
		doc, err := json.Marshal(op.Doc)
		if err != nil {
			return nil, kberrors.Wrap(kberrors.KindCreation, "failed to encode bulk document", err)
		}

		if items >= s.config.BulkMaxItems || buf.Len()+len(action)+len(doc)+2 > s.config.BulkMaxBytes {
			if err := flush(); err != nil {
				return nil, err
			}
		}

		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
		items++
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) sendBulk(ctx context.Context, body io.Reader) (*interfaces.BulkResult, error) {
	res, err := s.client.Bulk(body, s.client.Bulk.WithContext(ctx))
	raw, err := consume("creating documents", res, err)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Index  string          `json:"_index"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, kberrors.Wrap(kberrors.KindCreation, "failed to decode bulk response", err)
	}

	result := &interfaces.BulkResult{Errors: parsed.Errors}
	if parsed.Errors {
		for _, item := range parsed.Items {
			for _, entry := range item {
				if len(entry.Error) > 0 {
					result.ItemErrors = append(result.ItemErrors,
						fmt.Sprintf("index=%s status=%d error=%s", entry.Index, entry.Status, entry.Error))
				}
			}
		}
	}
	return result, nil
}

func (s *Store) UpdateDoc(ctx context.Context, id string, docID string, fields map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"doc": fields})
	if err != nil {
		return kberrors.Wrap(kberrors.KindUpdate, "failed to encode document update", err)
	}

	res, err := s.client.Update(id, docID, bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
	)
	_, err = consume(fmt.Sprintf("updating document %s in collection %s", docID, id), res, err)
	return err
}

func (s *Store) DeleteDoc(ctx context.Context, id string, docID string) error {
	res, err := s.client.Delete(id, docID,
		s.client.Delete.WithContext(ctx),
	)
	_, err = consume(fmt.Sprintf("deleting document %s from collection %s", docID, id), res, err)
	return err
}

func (s *Store) Search(ctx context.Context, pattern string, query map[string]interface{}) (*interfaces.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, kberrors.Wrap(kberrors.KindSearch, "failed to encode search query", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(pattern),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithContext(ctx),
	)
	raw, err := consume(fmt.Sprintf("searching %s", pattern), res, err)
	if err != nil {
		return nil, err
	}

	var item esSearchItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, kberrors.Wrap(kberrors.KindSearch, "failed to decode search response", err)
	}
	response := item.toResponse()
	return &response, nil
}

func (s *Store) MultiSearch(ctx context.Context, searches []interfaces.SearchRequest) ([]interfaces.SearchResponse, error) {
	if len(searches) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, search := range searches {
		header, err := json.Marshal(map[string]interface{}{"index": search.Pattern})
		if err != nil {
			return nil, kberrors.Wrap(kberrors.KindSearch, "failed to encode msearch header", err)
		}
		query, err := json.Marshal(search.Query)
		if err != nil {
			return nil, kberrors.Wrap(kberrors.KindSearch, "failed to encode msearch query", err)
		}
		buf.Write(header)
		buf.WriteByte('\n')
		buf.Write(query)
		buf.WriteByte('\n')
	}

	res, err := s.client.Msearch(&buf, s.client.Msearch.WithContext(ctx))
	raw, err := consume("searching knowledge bases", res, err)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Responses []esSearchItem `json:"responses"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, kberrors.Wrap(kberrors.KindSearch, "failed to decode msearch response", err)
	}

	responses := make([]interfaces.SearchResponse, 0, len(parsed.Responses))
	for _, item := range parsed.Responses {
		responses = append(responses, item.toResponse())
	}
	return responses, nil
}

func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return kberrors.Wrap(kberrors.KindBackendConnection, "backend is unreachable", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() {
		return kberrors.ClassifyBackend("pinging the backend", res.StatusCode, fmt.Errorf("ping returned status %d", res.StatusCode))
	}
	return nil
}

// WorkerSettings returns the connection block composed verbatim into crawl
// worker configs under the elasticsearch key.
func (s *Store) WorkerSettings() map[string]interface{} {
	settings := map[string]interface{}{
		"host": s.config.Host,
	}
	if s.config.APIKey != "" {
		settings["api_key"] = s.config.APIKey
	} else {
		settings["username"] = s.config.Username
		settings["password"] = s.config.Password
	}
	if s.pipeline != "" {
		settings["pipeline"] = s.pipeline
		settings["pipeline_enabled"] = true
	}
	return settings
}

// esSearchItem is one search response body, standalone or within an msearch
// responses array. Msearch carries per-item failures as an error object.
type esSearchItem struct {
	Error *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Hits struct {
		Hits []struct {
			ID        string                   `json:"_id"`
			Index     string                   `json:"_index"`
			Score     float64                  `json:"_score"`
			Fields    map[string][]interface{} `json:"fields"`
			Highlight map[string][]string      `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      interface{} `json:"key"`
			DocCount int         `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

func (item esSearchItem) toResponse() interfaces.SearchResponse {
	if item.Error != nil {
		return interfaces.SearchResponse{
			Error: fmt.Sprintf("%s: %s", item.Error.Type, item.Error.Reason),
		}
	}

	response := interfaces.SearchResponse{}
	for _, hit := range item.Hits.Hits {
		response.Hits = append(response.Hits, interfaces.SearchHit{
			ID:        hit.ID,
			Index:     hit.Index,
			Score:     hit.Score,
			Fields:    hit.Fields,
			Highlight: hit.Highlight,
		})
	}
	if len(item.Aggregations) > 0 {
		response.Aggregations = make(map[string][]interfaces.AggregationBucket, len(item.Aggregations))
		for name, agg := range item.Aggregations {
			buckets := make([]interfaces.AggregationBucket, 0, len(agg.Buckets))
			for _, bucket := range agg.Buckets {
				buckets = append(buckets, interfaces.AggregationBucket{
					Key:      fmt.Sprint(bucket.Key),
					DocCount: bucket.DocCount,
				})
			}
			response.Aggregations[name] = buckets
		}
	}
	return response
}
