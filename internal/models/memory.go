package models

// Memory is one free-form item encoded into a project's memory knowledge
// base.
type Memory struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// ToDocumentProto converts the memory to the document write shape.
func (m Memory) ToDocumentProto() DocumentProto {
	return DocumentProto{Title: m.Title, Content: m.Content}
}

// MemoryInitResponse is returned by set_project: the bound project, its
// backing knowledge base, and optionally the most recent memories.
type MemoryInitResponse struct {
	ProjectName     string     `json:"project_name" yaml:"project_name"`
	MemoryBackendID string     `json:"memory_backend_id" yaml:"memory_backend_id"`
	MemoryCount     int        `json:"memory_count" yaml:"memory_count"`
	Memories        []Document `json:"memories" yaml:"memories"`
}

// ProjectContext binds the caller to one memory knowledge base. It starts
// empty, is populated by set_project, and is never persisted.
type ProjectContext struct {
	ProjectName   string
	KnowledgeBase *KnowledgeBase
}
