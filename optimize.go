package goqueryrag

import (
	"strings"

	"github.com/inteligo-bi/go-query-rag/internal"
)

// ContextCaps bounds the size of the optimized context. Zero values are
// replaced by the handler defaults, so a partially filled struct is valid.
type ContextCaps struct {
	MaxMeasures     int
	MaxQueries      int
	MaxExamples     int
	MaxTableColumns int
	MaxBaseTokens   int
	// MaxContextTokens bounds the final assembled prompt; BuildContext
	// trims sections until the rendered text fits.
	MaxContextTokens int
}

// OptimizedContext is the capped, relevance-filtered excerpt of a parsed
// document for one question.
type OptimizedContext struct {
	Base     string
	Measures []Measure
	Queries  []CannedQuery
	Examples []Example
	Tables   []TableSummary
}

// TableSummary is the bounded rendering of one table: only the leading
// columns are kept, Omitted counts the rest.
type TableSummary struct {
	Table       string
	Description string
	Columns     []string
	Omitted     int
}

// Optimize selects the subset of a parsed document relevant to the
// question and truncates it to the handler caps. It is deterministic and
// side-effect free. An empty document yields an empty context; a question
// with no extractable keywords keeps every item (up to the caps). When
// strict relevance matching selects nothing from a non-empty list, the
// leading items are kept instead, so a non-empty document never produces
// an empty excerpt.
func Optimize(doc ParsedDocumentation, question string, handler LanguageHandler) OptimizedContext {
	caps := handler.ContextCaps()
	keywords := handler.Vocabulary().ExtractKeywords(question)

	result := OptimizedContext{}

	if doc.Base != "" {
		result.Base = handler.BaseExcerpt(doc.Base, caps.MaxBaseTokens)
	}

	result.Measures = filterMeasures(doc.Measures, keywords, caps.MaxMeasures)
	result.Queries = filterQueries(doc.Queries, keywords, caps.MaxQueries)
	result.Examples = filterExamples(doc.Examples, keywords, caps.MaxExamples)
	result.Tables = summarizeTables(doc.Tables, caps.MaxTableColumns)

	return result
}

// matchesAny reports whether any keyword is contained in the folded
// haystack. An empty keyword set matches everything, so degenerate
// questions still get full context.
func matchesAny(haystack string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	folded := internal.Fold(haystack)
	for _, keyword := range keywords {
		if strings.Contains(folded, keyword) {
			return true
		}
	}
	return false
}

func filterMeasures(measures []Measure, keywords []string, limit int) []Measure {
	relevant := make([]Measure, 0)
	for _, m := range measures {
		haystack := strings.Join([]string{m.Name, m.Description, m.WhenToUse, m.Area}, " ")
		if matchesAny(haystack, keywords) {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) == 0 {
		relevant = measures
	}
	return truncate(relevant, limit)
}

func filterQueries(queries []CannedQuery, keywords []string, limit int) []CannedQuery {
	relevant := make([]CannedQuery, 0)
	for _, q := range queries {
		haystack := strings.Join(append([]string{q.ID, q.Question}, q.Measures...), " ")
		if matchesAny(haystack, keywords) {
			relevant = append(relevant, q)
		}
	}
	if len(relevant) == 0 {
		relevant = queries
	}
	return truncate(relevant, limit)
}

func filterExamples(examples []Example, keywords []string, limit int) []Example {
	relevant := make([]Example, 0)
	for _, e := range examples {
		haystack := strings.Join(append([]string{e.Question}, e.Measures...), " ")
		if matchesAny(haystack, keywords) {
			relevant = append(relevant, e)
		}
	}
	if len(relevant) == 0 {
		relevant = examples
	}
	return truncate(relevant, limit)
}

// summarizeTables is not relevance-filtered: every table is always present,
// bounded to its leading columns.
func summarizeTables(tables []Table, maxColumns int) []TableSummary {
	if len(tables) == 0 {
		return nil
	}

	summaries := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		summary := TableSummary{Table: t.Table, Description: t.Description}
		for i, col := range t.Columns {
			if i >= maxColumns {
				summary.Omitted = len(t.Columns) - maxColumns
				break
			}
			summary.Columns = append(summary.Columns, col.Name)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func truncate[T any](list []T, limit int) []T {
	if len(list) == 0 {
		return nil
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]T, len(list))
	copy(out, list)
	return out
}
