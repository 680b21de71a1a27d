package goqueryrag

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/inteligo-bi/go-query-rag/internal"
)

// LearnedQuery is a generated analytical query persisted for reuse, keyed
// by a content hash of its text so that repeated identical generations
// reinforce one row instead of duplicating it. TimesReused is monotonically
// non-decreasing; rows are never deleted by this package.
type LearnedQuery struct {
	ID           string
	DatasetID    string
	QuestionText string
	Intent       Intent
	QueryText    string
	QueryHash    string
	TimesReused  int
	Success      bool
	ErrorNote    string
	LastUsedAt   time.Time
}

// TrainingExample is a curated, externally authored question/query/response
// triple. This package only ever touches its LastUsedAt field.
type TrainingExample struct {
	ID           string
	DatasetID    string
	QuestionText string
	QueryText    string
	ResponseText string
	Category     string
	Tags         []string
	LastUsedAt   time.Time
}

// ScoredQuery pairs a learned query with its similarity to the current
// question.
type ScoredQuery struct {
	LearnedQuery
	Similarity float64
}

// QueryHash computes the stable content hash used to dedupe learned
// queries within a dataset.
func QueryHash(queryText string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.TrimSpace(queryText)), 16)
}

// candidateFetchLimit bounds how many stored queries are pulled per intent
// before similarity filtering.
const candidateFetchLimit = 50

// RecordQuery persists a generated query for later reuse. A repeated
// identical (datasetID, queryText) pair reinforces the existing row:
// TimesReused is incremented and Success and LastUsedAt refreshed. A blank
// queryText is not learned. Persistence is best-effort: store failures are
// logged and swallowed so the caller's answering flow is never blocked.
func RecordQuery(
	datasetID, question, queryText string,
	successful bool,
	handler LanguageHandler,
	store QueryStore,
	logger *slog.Logger,
) {
	logger = logger.With(slog.String("package", "goqueryrag"), slog.String("function", "RecordQuery"))

	if strings.TrimSpace(queryText) == "" {
		logger.Debug("Skip learning, no query text", "dataset", datasetID)
		return
	}
	if datasetID == "" {
		logger.Debug("Skip learning, no dataset")
		return
	}

	if err := recordQuery(datasetID, question, queryText, successful, handler, store); err != nil {
		logger.Warn("Failed to record query", "dataset", datasetID, "error", err)
	}
}

func recordQuery(
	datasetID, question, queryText string,
	successful bool,
	handler LanguageHandler,
	store QueryStore,
) error {
	hash := QueryHash(queryText)
	now := time.Now()

	existing, err := store.LearnedQueryByHash(datasetID, hash)
	switch {
	case err == nil:
		existing.TimesReused++
		existing.Success = successful
		existing.LastUsedAt = now
		if err := store.UpsertLearnedQuery(existing); err != nil {
			return fmt.Errorf("failed to reinforce learned query: %w", err)
		}
		return nil
	case errors.Is(err, ErrQueryNotFound):
		record := LearnedQuery{
			DatasetID:    datasetID,
			QuestionText: question,
			Intent:       ClassifyIntent(question, handler.IntentRules()),
			QueryText:    queryText,
			QueryHash:    hash,
			TimesReused:  0,
			Success:      successful,
			LastUsedAt:   now,
		}
		if err := store.UpsertLearnedQuery(record); err != nil {
			return fmt.Errorf("failed to insert learned query: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up learned query: %w", err)
	}
}

// FindSimilar retrieves previously successful queries for the question's
// intent, ranked by Jaccard similarity to the question. Candidates below
// SimilarityThreshold are dropped; at most limit results are returned,
// sorted descending. Store failures degrade to an empty result.
func FindSimilar(
	datasetID, question string,
	limit int,
	handler LanguageHandler,
	store QueryStore,
	logger *slog.Logger,
) []ScoredQuery {
	logger = logger.With(slog.String("package", "goqueryrag"), slog.String("function", "FindSimilar"))

	if datasetID == "" {
		return nil
	}

	intent := ClassifyIntent(question, handler.IntentRules())

	candidates, err := store.SuccessfulQueriesByIntent(datasetID, intent, candidateFetchLimit)
	if err != nil {
		logger.Warn("Failed to fetch learned queries, proceeding without", "dataset", datasetID, "error", err)
		return nil
	}

	scored := make([]ScoredQuery, 0, len(candidates))
	for _, candidate := range candidates {
		score := Similarity(question, candidate.QuestionText)
		if score < SimilarityThreshold {
			continue
		}
		scored = append(scored, ScoredQuery{LearnedQuery: candidate, Similarity: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	if len(scored) == 0 {
		return nil
	}
	return scored
}

// FindTrainingExamples ranks the dataset's curated examples against the
// question. Concept overlap dominates the score (5 points per shared
// concept), keyword overlap counts 2 and tag or category hits 1; zero-score
// examples are dropped. Selected examples get their LastUsedAt touched,
// best-effort. Store failures degrade to an empty result.
func FindTrainingExamples(
	datasetID, question string,
	limit int,
	handler LanguageHandler,
	store QueryStore,
	logger *slog.Logger,
) []TrainingExample {
	logger = logger.With(slog.String("package", "goqueryrag"), slog.String("function", "FindTrainingExamples"))

	if datasetID == "" {
		return nil
	}

	candidates, err := store.TrainingExamples(datasetID)
	if err != nil {
		logger.Warn("Failed to fetch training examples, proceeding without", "dataset", datasetID, "error", err)
		return nil
	}

	vocab := handler.Vocabulary()
	questionConcepts := vocab.MatchConcepts(question)
	questionKeywords := vocab.ExtractKeywords(question)

	type scoredExample struct {
		example  TrainingExample
		concepts int
		score    int
	}

	scored := make([]scoredExample, 0, len(candidates))
	for _, candidate := range candidates {
		concepts := sharedItems(questionConcepts, vocab.MatchConcepts(candidate.QuestionText))
		keywords := sharedItems(questionKeywords, vocab.ExtractKeywords(candidate.QuestionText))
		tagHits := tagAndCategoryHits(questionKeywords, candidate)

		score := 5*concepts + 2*keywords + tagHits
		if score == 0 {
			continue
		}
		scored = append(scored, scoredExample{example: candidate, concepts: concepts, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].concepts != scored[j].concepts {
			return scored[i].concepts > scored[j].concepts
		}
		return scored[i].score > scored[j].score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	if len(scored) == 0 {
		return nil
	}

	now := time.Now()
	results := make([]TrainingExample, len(scored))
	for i, s := range scored {
		results[i] = s.example
		if err := store.TouchTrainingExample(datasetID, s.example.ID, now); err != nil {
			logger.Warn("Failed to touch training example", "id", s.example.ID, "error", err)
		}
	}

	return results
}

func sharedItems(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, item := range b {
		set[item] = struct{}{}
	}
	count := 0
	for _, item := range a {
		if _, ok := set[item]; ok {
			count++
		}
	}
	return count
}

func tagAndCategoryHits(keywords []string, example TrainingExample) int {
	hits := 0
	category := internal.Fold(example.Category)
	for _, keyword := range keywords {
		if category != "" && strings.Contains(category, keyword) {
			hits++
			continue
		}
		for _, tag := range example.Tags {
			if strings.Contains(internal.Fold(tag), keyword) {
				hits++
				break
			}
		}
	}
	return hits
}

// RegisterFeedback applies user feedback to a learned query. A positive
// outcome marks the row successful and counts as one more reuse; a negative
// outcome marks it unsuccessful and keeps the comment as an error note.
// Each call applies exactly one mutation. The returned bool acknowledges
// whether the feedback was persisted.
func RegisterFeedback(queryID string, positive bool, comment string, store QueryStore, logger *slog.Logger) bool {
	logger = logger.With(slog.String("package", "goqueryrag"), slog.String("function", "RegisterFeedback"))

	record, err := store.LearnedQuery(queryID)
	if err != nil {
		logger.Warn("Failed to load query for feedback", "id", queryID, "error", err)
		return false
	}

	if positive {
		record.Success = true
		record.TimesReused++
		record.ErrorNote = ""
	} else {
		record.Success = false
		record.ErrorNote = comment
	}
	record.LastUsedAt = time.Now()

	if err := store.UpsertLearnedQuery(record); err != nil {
		logger.Warn("Failed to persist feedback", "id", queryID, "error", err)
		return false
	}

	return true
}

var (
	bracketIdentRegexp = regexp.MustCompile(`\[([^\[\]]+)\]`)
	quotedTableRegexp  = regexp.MustCompile(`'([^']+)'`)
)

// SuggestMeasures tallies measure-like identifiers across query texts and
// returns up to five, most used first. Bracket-delimited identifiers count
// as measures when they start with one of the vocabulary's measure
// prefixes; quoted table references always count. Hits from curated
// training examples weigh double those from historical queries.
func SuggestMeasures(similar []ScoredQuery, examples []TrainingExample, vocab Vocabulary) []string {
	counts := make(map[string]int)
	display := make(map[string]string)

	tally := func(queryText string, weight int) {
		for _, match := range bracketIdentRegexp.FindAllStringSubmatch(queryText, -1) {
			name := strings.TrimSpace(match[1])
			if !measureLike(name, vocab.MeasurePrefixes) {
				continue
			}
			key := internal.Fold(name)
			counts[key] += weight
			if _, ok := display[key]; !ok {
				display[key] = name
			}
		}
		for _, match := range quotedTableRegexp.FindAllStringSubmatch(queryText, -1) {
			name := strings.TrimSpace(match[1])
			if name == "" {
				continue
			}
			key := internal.Fold(name)
			counts[key] += weight
			if _, ok := display[key]; !ok {
				display[key] = name
			}
		}
	}

	for _, example := range examples {
		tally(example.QueryText, 2)
	}
	for _, query := range similar {
		tally(query.QueryText, 1)
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > 5 {
		keys = keys[:5]
	}
	if len(keys) == 0 {
		return nil
	}

	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = display[key]
	}
	return names
}

func measureLike(name string, prefixes []string) bool {
	folded := internal.Fold(name)
	for _, prefix := range prefixes {
		if strings.HasPrefix(folded, internal.Fold(prefix)) {
			return true
		}
	}
	return false
}
