package handler

import (
	"fmt"
	"os"

	goqueryrag "github.com/inteligo-bi/go-query-rag"
	"gopkg.in/yaml.v2"
)

// ContextConfig contains the configurable context limits. Zero values are
// replaced by the defaults below.
type ContextConfig struct {
	MaxMeasures      int `yaml:"maxMeasures"`
	MaxQueries       int `yaml:"maxQueries"`
	MaxExamples      int `yaml:"maxExamples"`
	MaxTableColumns  int `yaml:"maxTableColumns"`
	MaxBaseTokens    int `yaml:"maxBaseTokens"`
	MaxContextTokens int `yaml:"maxContextTokens"`
}

const (
	defaultMaxMeasures      = 15
	defaultMaxQueries       = 5
	defaultMaxExamples      = 3
	defaultMaxTableColumns  = 6
	defaultMaxBaseTokens    = 600
	defaultMaxContextTokens = 4000
)

func (c ContextConfig) caps() goqueryrag.ContextCaps {
	caps := goqueryrag.ContextCaps{
		MaxMeasures:      c.MaxMeasures,
		MaxQueries:       c.MaxQueries,
		MaxExamples:      c.MaxExamples,
		MaxTableColumns:  c.MaxTableColumns,
		MaxBaseTokens:    c.MaxBaseTokens,
		MaxContextTokens: c.MaxContextTokens,
	}
	if caps.MaxMeasures == 0 {
		caps.MaxMeasures = defaultMaxMeasures
	}
	if caps.MaxQueries == 0 {
		caps.MaxQueries = defaultMaxQueries
	}
	if caps.MaxExamples == 0 {
		caps.MaxExamples = defaultMaxExamples
	}
	if caps.MaxTableColumns == 0 {
		caps.MaxTableColumns = defaultMaxTableColumns
	}
	if caps.MaxBaseTokens == 0 {
		caps.MaxBaseTokens = defaultMaxBaseTokens
	}
	if caps.MaxContextTokens == 0 {
		caps.MaxContextTokens = defaultMaxContextTokens
	}
	return caps
}

// LoadVocabulary reads a vocabulary definition from a YAML file, so
// deployments can extend stopwords, concept triggers and measure prefixes
// without recompiling. Missing fields fall back to the built-in defaults.
func LoadVocabulary(path string) (goqueryrag.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return goqueryrag.Vocabulary{}, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var vocab goqueryrag.Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return goqueryrag.Vocabulary{}, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	if len(vocab.Stopwords) == 0 {
		vocab.Stopwords = defaultVocabulary.Stopwords
	}
	if len(vocab.Concepts) == 0 {
		vocab.Concepts = defaultVocabulary.Concepts
	}
	if len(vocab.MeasurePrefixes) == 0 {
		vocab.MeasurePrefixes = defaultVocabulary.MeasurePrefixes
	}

	return vocab, nil
}
