package goqueryrag

import (
	"strings"

	"github.com/inteligo-bi/go-query-rag/internal"
)

// Intent is one label from a small closed set classifying what kind of
// analytical question was asked. ClassifyIntent is total: every question
// maps to exactly one Intent, defaulting to IntentOther.
type Intent string

// The closed intent enumeration. Rule ordering in a LanguageHandler decides
// which label wins when a question matches several.
const (
	IntentRevenueByBranch      Intent = "revenue-by-branch"
	IntentRevenueBySalesperson Intent = "revenue-by-salesperson"
	IntentTopSalesperson       Intent = "top-salesperson"
	IntentAverageTicket        Intent = "average-ticket"
	IntentMargin               Intent = "margin"
	IntentPayable              Intent = "payable"
	IntentReceivable           Intent = "receivable"
	IntentBalance              Intent = "balance"
	IntentRevenue              Intent = "revenue"
	IntentOther                Intent = "other"
)

// Concept is a coarse semantic tag backed by a list of trigger surface
// forms. A question may match zero or more concepts.
type Concept struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
}

// Vocabulary holds the immutable language configuration injected into the
// keyword and concept extraction. Construct it once (or take the defaults
// from the handler package) and share it between calls.
type Vocabulary struct {
	// Stopwords are removed from extracted keywords. Tokens of length two
	// or less are always dropped, stopword or not.
	Stopwords []string `yaml:"stopwords"`
	// Concepts is the closed concept vocabulary matched by substring
	// containment against the folded question text.
	Concepts []Concept `yaml:"concepts"`
	// MeasurePrefixes classify bracket-delimited identifiers found in query
	// text as measure-like, e.g. "total" matching "[Total Vendas]".
	MeasurePrefixes []string `yaml:"measurePrefixes"`
}

// IntentRule maps folded-substring patterns onto an intent. A rule matches
// when every entry of All is contained in the folded question and, when Any
// is non-empty, at least one of its entries is contained too.
type IntentRule struct {
	Intent Intent   `yaml:"intent"`
	All    []string `yaml:"all"`
	Any    []string `yaml:"any"`
}

// ExtractKeywords normalizes text (accent folding, lower-casing), tokenizes
// on whitespace and drops stopwords and tokens of length <= 2. The result
// preserves first-occurrence order and holds no duplicates.
func (v Vocabulary) ExtractKeywords(text string) []string {
	stop := make(map[string]struct{}, len(v.Stopwords))
	for _, word := range v.Stopwords {
		stop[internal.Fold(word)] = struct{}{}
	}

	keywords := make([]string, 0)
	for _, token := range strings.Fields(internal.Fold(text)) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if len([]rune(token)) <= 2 {
			continue
		}
		if _, ok := stop[token]; ok {
			continue
		}
		keywords = appendIfUnique(keywords, token)
	}

	return keywords
}

// MatchConcepts returns the names of every concept with at least one trigger
// contained in the folded text. Multiple concepts may match.
func (v Vocabulary) MatchConcepts(text string) []string {
	folded := internal.Fold(text)

	matched := make([]string, 0)
	for _, concept := range v.Concepts {
		for _, trigger := range concept.Triggers {
			if strings.Contains(folded, internal.Fold(trigger)) {
				matched = appendIfUnique(matched, concept.Name)
				break
			}
		}
	}

	return matched
}

// ClassifyIntent applies rules in order over the folded question and returns
// the first matching intent. Narrower combined rules must come before the
// generic single-keyword fallback for the same concept so they win.
func ClassifyIntent(question string, rules []IntentRule) Intent {
	folded := internal.Fold(question)

	for _, rule := range rules {
		if rule.matches(folded) {
			return rule.Intent
		}
	}

	return IntentOther
}

func (r IntentRule) matches(folded string) bool {
	for _, pattern := range r.All {
		if !strings.Contains(folded, internal.Fold(pattern)) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, pattern := range r.Any {
		if strings.Contains(folded, internal.Fold(pattern)) {
			return true
		}
	}
	return false
}

// SimilarityThreshold gates inclusion of stored queries: an intent match
// alone is not sufficient, the question overlap must reach this score.
const SimilarityThreshold = 0.3

// Similarity computes token-set Jaccard similarity over whitespace-tokenized,
// lower-cased strings. It is symmetric, order-insensitive, and returns a
// value in [0, 1]. Two strings with disjoint vocabularies score 0.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(text)) {
		set[token] = struct{}{}
	}
	return set
}
