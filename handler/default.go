// Package handler provides LanguageHandler implementations: vocabulary,
// intent rules and context limits for the retrieval pipeline. Default
// ships the Portuguese analytical vocabulary the engine was built for;
// deployments can override any part of it, or load a vocabulary from YAML
// with LoadVocabulary.
package handler

import (
	goqueryrag "github.com/inteligo-bi/go-query-rag"
)

// Default implements the LanguageHandler interface with a Portuguese
// business-analytics vocabulary and sensible context limits. The zero value
// is usable; set the fields to override parts of the configuration.
type Default struct {
	// CustomVocabulary replaces the built-in vocabulary when non-nil.
	CustomVocabulary *goqueryrag.Vocabulary
	// CustomRules replaces the built-in intent rules when non-empty.
	CustomRules []goqueryrag.IntentRule

	Caps ContextConfig
}

// Vocabulary returns the stopword, concept and measure-prefix configuration.
func (d Default) Vocabulary() goqueryrag.Vocabulary {
	if d.CustomVocabulary != nil {
		return *d.CustomVocabulary
	}
	return defaultVocabulary
}

// IntentRules returns the ordered intent rule list. Order matters: combined
// patterns come before the single-keyword fallbacks so narrower rules win.
func (d Default) IntentRules() []goqueryrag.IntentRule {
	if len(d.CustomRules) > 0 {
		return d.CustomRules
	}
	return defaultIntentRules
}

// ContextCaps returns the configured context limits with defaults applied.
func (d Default) ContextCaps() goqueryrag.ContextCaps {
	return d.Caps.caps()
}

// BaseExcerpt trims background text to roughly maxTokens, cutting at
// markdown heading boundaries where possible.
func (d Default) BaseExcerpt(text string, maxTokens int) string {
	return headingExcerpt(text, maxTokens)
}
