package kb

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scientia/internal/models"
)

// metaKey is the mapping metadata block that marks a collection as a
// knowledge base. Collections without it are ignored by List.
const metaKey = "knowledge_base"

// runtimeNameField is the query-time projection of the knowledge base name
// onto every document in the collection. It is never stored; renaming a
// knowledge base rewrites the script instead of sweeping documents.
const runtimeNameField = "knowledge_base_name"

// collectionMappings builds the full mapping for a new knowledge base
// collection: document properties, the metadata block, and the runtime name
// projection.
func collectionMappings(proto models.KnowledgeBaseCreateProto) map[string]interface{} {
	return map[string]interface{}{
		"_meta":      metaBlock(proto),
		"runtime":    runtimeBlock(proto.Name),
		"properties": documentProperties(),
	}
}

// metadataMappings builds the partial mapping written on update: metadata and
// runtime blocks only, never the data mapping.
func metadataMappings(proto models.KnowledgeBaseCreateProto) map[string]interface{} {
	return map[string]interface{}{
		"_meta":   metaBlock(proto),
		"runtime": runtimeBlock(proto.Name),
	}
}

func metaBlock(proto models.KnowledgeBaseCreateProto) map[string]interface{} {
	return map[string]interface{}{
		metaKey: map[string]interface{}{
			"name":        proto.Name,
			"type":        proto.Type,
			"data_source": proto.DataSource,
			"description": proto.Description,
		},
	}
}

func runtimeBlock(name string) map[string]interface{} {
	escaped := strings.ReplaceAll(name, `"`, `\"`)
	return map[string]interface{}{
		runtimeNameField: map[string]interface{}{
			"type": "keyword",
			"script": map[string]interface{}{
				"source": fmt.Sprintf(`emit("%s")`, escaped),
			},
		},
	}
}

// documentProperties is the stored shape of crawled and encoded documents.
// body and headings are semantic-vector fields; URL components are
// keyword-indexed text so crawl output lands without dynamic mapping.
func documentProperties() map[string]interface{} {
	textKeyword := func() map[string]interface{} {
		return map[string]interface{}{
			"type": "text",
			"fields": map[string]interface{}{
				"keyword": map[string]interface{}{
					"type":         "keyword",
					"ignore_above": 256,
				},
			},
		}
	}

	return map[string]interface{}{
		"@timestamp":      map[string]interface{}{"type": "date"},
		"last_crawled_at": map[string]interface{}{"type": "date"},
		"body":            map[string]interface{}{"type": "semantic_text"},
		"headings":        map[string]interface{}{"type": "semantic_text"},
		"id":              textKeyword(),
		"links":           textKeyword(),
		"meta_keywords":   textKeyword(),
		"title":           textKeyword(),
		"url":             textKeyword(),
		"url_host":        textKeyword(),
		"url_path":        textKeyword(),
		"url_path_dir1":   textKeyword(),
		"url_path_dir2":   textKeyword(),
		"url_path_dir3":   textKeyword(),
		"url_scheme":      textKeyword(),
		"url_port":        map[string]interface{}{"type": "long"},
	}
}

// kbFromMeta reads a knowledge base out of a collection's metadata block.
// Returns false when the collection is not a knowledge base.
func kbFromMeta(backendID string, meta map[string]interface{}) (models.KnowledgeBase, bool) {
	raw, ok := meta[metaKey].(map[string]interface{})
	if !ok {
		return models.KnowledgeBase{}, false
	}

	str := func(key string) string {
		if v, ok := raw[key].(string); ok {
			return v
		}
		return ""
	}

	return models.KnowledgeBase{
		Name:        str("name"),
		Type:        str("type"),
		DataSource:  str("data_source"),
		Description: str("description"),
		BackendID:   backendID,
	}, true
}
