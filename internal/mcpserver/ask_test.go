package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scientia/internal/models"
)

func askRegistry(manager *managerStub) *Registry {
	registry := NewRegistry("test", "0.0.1")
	registry.Mount("ask", NewAskServer(manager).Tools())
	return registry
}

func TestAnswerStyleSize(t *testing.T) {
	assert.Equal(t, 1, answerStyleSize("concise"))
	assert.Equal(t, 3, answerStyleSize("normal"))
	assert.Equal(t, 6, answerStyleSize("comprehensive"))
	assert.Equal(t, 9, answerStyleSize("exhaustive"))
	assert.Equal(t, 3, answerStyleSize(""))
	assert.Equal(t, 3, answerStyleSize("unknown"))
}

func TestDocumentationAvailable(t *testing.T) {
	manager := newManagerStub()
	manager.addKB("py-docs", "docs", 42)
	manager.addKB("proj-A", "memory", 3)

	text := callTool(t, askRegistry(manager), "ask_documentation_available", nil)

	var kbs []models.KnowledgeBase
	require.NoError(t, yaml.Unmarshal([]byte(text), &kbs))
	require.Len(t, kbs, 1)
	assert.Equal(t, "py-docs", kbs[0].Name)
}

func TestQuestions(t *testing.T) {
	manager := newManagerStub()
	manager.outcomes = []models.SearchOutcome{
		models.SearchResult{Phrase: "foo"},
		models.SearchResultError{Phrase: "bar", Error: "No hits found in one of the search responses."},
	}
	registry := askRegistry(manager)

	text := callTool(t, registry, "ask_questions", map[string]interface{}{
		"questions":    []interface{}{"foo", "bar"},
		"answer_style": "exhaustive",
	})

	assert.Equal(t, []string{"foo", "bar"}, manager.searchPhrases)
	assert.Nil(t, manager.searchNames)
	assert.Equal(t, 9, manager.searchHits)
	assert.Contains(t, text, "No hits found")
}

func TestQuestionsForKB(t *testing.T) {
	manager := newManagerStub()
	registry := askRegistry(manager)

	_ = callTool(t, registry, "ask_questions_for_kb", map[string]interface{}{
		"knowledge_base_names": []interface{}{"py-docs"},
		"questions":            []interface{}{"how do i configure"},
	})

	assert.Equal(t, []string{"py-docs"}, manager.searchNames)
	assert.Equal(t, 3, manager.searchHits)
}

func TestQuestionsWithEmptyBatch(t *testing.T) {
	manager := newManagerStub()
	registry := askRegistry(manager)

	result := registry.Invoke(context.Background(), "ask_questions", map[string]interface{}{
		"questions": []interface{}{},
	})
	assert.False(t, result.IsError)
}
