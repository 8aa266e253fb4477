package models

// DocumentProto is the write shape of a knowledge base document. The
// backend assigns the id and the manager stamps @timestamp at insert time.
type DocumentProto struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Document is the read shape of a knowledge base document as projected
// from a search hit. KnowledgeBaseName comes from the per-collection
// runtime field, never from stored document fields. Content holds either
// the highlight fragments or the raw body values.
type Document struct {
	ID                string   `json:"id" yaml:"id"`
	KnowledgeBaseName string   `json:"knowledge_base_name" yaml:"knowledge_base_name"`
	Title             string   `json:"title" yaml:"title"`
	URL               *string  `json:"url,omitempty" yaml:"url,omitempty"`
	Score             float64  `json:"score" yaml:"score"`
	Content           []string `json:"content" yaml:"content"`
}
