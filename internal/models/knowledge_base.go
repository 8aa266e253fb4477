package models

// Knowledge base types: docs are crawled documentation sets, memory bases
// hold per-project encoded memories. The type lands in the backend id, so
// new types extend the surface without schema changes.
const (
	KnowledgeBaseTypeDocs   = "docs"
	KnowledgeBaseTypeMemory = "memory"
)

// KnowledgeBase represents a named, typed collection of documents. The
// backend id is the storage-level collection identifier and is opaque to
// callers; doc_count is observed at read time, not authoritative.
type KnowledgeBase struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	DataSource  string `json:"data_source" yaml:"data_source"`
	BackendID   string `json:"backend_id" yaml:"backend_id"`
	DocCount    int    `json:"doc_count" yaml:"doc_count"`
}

// ToCreateProto projects the metadata fields back into a create request,
// used when merging an update into the stored metadata block.
func (kb *KnowledgeBase) ToCreateProto() KnowledgeBaseCreateProto {
	return KnowledgeBaseCreateProto{
		Name:        kb.Name,
		Type:        kb.Type,
		DataSource:  kb.DataSource,
		Description: kb.Description,
	}
}

// KnowledgeBaseCreateProto carries the caller-supplied fields for a new
// knowledge base.
type KnowledgeBaseCreateProto struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	DataSource  string `json:"data_source" yaml:"data_source"`
	Description string `json:"description" yaml:"description"`
}

// KnowledgeBaseUpdateProto carries the editable fields of a knowledge base.
// Nil pointers mean "leave unchanged".
type KnowledgeBaseUpdateProto struct {
	Name        *string `json:"name,omitempty" yaml:"name,omitempty"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ApplyTo merges the set fields over an existing metadata projection.
func (u *KnowledgeBaseUpdateProto) ApplyTo(proto KnowledgeBaseCreateProto) KnowledgeBaseCreateProto {
	if u.Name != nil {
		proto.Name = *u.Name
	}
	if u.Description != nil {
		proto.Description = *u.Description
	}
	return proto
}
