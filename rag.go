package goqueryrag

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// LLM defines the interface for language model operations.
// A message with an even index is guaranteed to be sent by the user, while the
// odd index is sent by the assistant.
type LLM interface {
	Chat(messages []string) (string, error)
}

// QueryStore defines the interface for the persistence layer backing the
// query-learning operations. Implementations are expected to keep
// (DatasetID, QueryHash) unique for learned queries; see the storage package
// for bbolt, SQLite and Redis backends.
type QueryStore interface {
	// LearnedQuery retrieves a learned query by its ID.
	LearnedQuery(id string) (LearnedQuery, error)
	// LearnedQueryByHash retrieves a learned query by its dataset and
	// content hash. Returns ErrQueryNotFound when no row matches.
	LearnedQueryByHash(datasetID, hash string) (LearnedQuery, error)
	// SuccessfulQueriesByIntent retrieves up to limit learned queries for
	// the dataset that carry the given intent and were marked successful.
	SuccessfulQueriesByIntent(datasetID string, intent Intent, limit int) ([]LearnedQuery, error)
	// UpsertLearnedQuery creates or replaces a learned query row.
	UpsertLearnedQuery(query LearnedQuery) error

	// TrainingExamples retrieves all curated examples for the dataset.
	TrainingExamples(datasetID string) ([]TrainingExample, error)
	// TouchTrainingExample updates the last-used timestamp of an example.
	TouchTrainingExample(datasetID, id string, usedAt time.Time) error
}

// LanguageHandler provides the vocabulary, intent rules and context limits
// used throughout the retrieval pipeline. The handler package ships a
// Default implementation with a Portuguese analytical vocabulary.
type LanguageHandler interface {
	Vocabulary() Vocabulary
	IntentRules() []IntentRule
	ContextCaps() ContextCaps
	// BaseExcerpt trims free-form background text to roughly maxTokens,
	// preferably cutting at structural boundaries.
	BaseExcerpt(text string, maxTokens int) string
}

var (
	// ErrQueryNotFound is returned when a learned query is not found in the storage.
	ErrQueryNotFound = errors.New("learned query not found")
	// ErrExampleNotFound is returned when a training example is not found in the storage.
	ErrExampleNotFound = errors.New("training example not found")
)

func cleanContent(content string) string {
	// Removes spaces and null characters.
	str := strings.TrimSpace(content)
	return strings.ReplaceAll(str, "\x00", "")
}

func promptTemplate(name, templ string, data any) (string, error) {
	buf := strings.Builder{}
	tmpl := template.New(name).Funcs(template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"join": func(list []string, sep string) string {
			return strings.Join(list, sep)
		},
	})
	tmpl = template.Must(tmpl.Parse(templ))
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func appendIfUnique(slice []string, item string) []string {
	for _, ele := range slice {
		if ele == item {
			return slice
		}
	}
	return append(slice, item)
}
