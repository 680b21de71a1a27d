package goqueryrag

import (
	"fmt"
	"log/slog"

	"github.com/inteligo-bi/go-query-rag/internal"
	"golang.org/x/sync/errgroup"
)

// QueryContext is the assembled, bounded context for one question: the
// structured pieces plus their rendered text block.
type QueryContext struct {
	DatasetID string
	Question  string
	Intent    Intent

	TrainingExamples  []TrainingExample
	SimilarQueries    []ScoredQuery
	SuggestedMeasures []string
	Document          OptimizedContext

	// Prompt is the rendered text handed to the language model. TokenSize
	// is its GPT-4o token count.
	Prompt    string
	TokenSize int
}

// BuildContext runs the full retrieval pipeline for a question: keyword and
// intent analysis, document optimization, learning-store lookups and prompt
// assembly. The two store lookups run concurrently; both degrade to empty
// results on store failure, so a broken store still yields a document-only
// context. An empty datasetID skips the store entirely. The only error
// returned is a prompt rendering failure.
func BuildContext(
	datasetID, question string,
	doc ParsedDocumentation,
	handler LanguageHandler,
	store QueryStore,
	logger *slog.Logger,
) (QueryContext, error) {
	logger = logger.With(slog.String("package", "goqueryrag"), slog.String("function", "BuildContext"))

	question = cleanContent(question)
	caps := handler.ContextCaps()

	result := QueryContext{
		DatasetID: datasetID,
		Question:  question,
		Intent:    ClassifyIntent(question, handler.IntentRules()),
	}

	if len(doc.Errors) > 0 {
		logger.Debug("Document parsed with gaps", "errors", doc.Errors)
	}

	if datasetID != "" && store != nil {
		eg := new(errgroup.Group)
		eg.Go(func() error {
			result.SimilarQueries = FindSimilar(datasetID, question, caps.MaxQueries, handler, store, logger)
			return nil
		})
		eg.Go(func() error {
			result.TrainingExamples = FindTrainingExamples(datasetID, question, caps.MaxExamples, handler, store, logger)
			return nil
		})
		// The lookups swallow their own failures, Wait is for joining only.
		_ = eg.Wait()

		result.SuggestedMeasures = SuggestMeasures(result.SimilarQueries, result.TrainingExamples, handler.Vocabulary())
	}

	result.Document = Optimize(doc, question, handler)

	prompt, err := renderContext(result)
	if err != nil {
		return QueryContext{}, fmt.Errorf("failed to render context: %w", err)
	}
	result.Prompt = prompt
	result.TokenSize = internal.CountTokens(prompt)

	if caps.MaxContextTokens > 0 && result.TokenSize > caps.MaxContextTokens {
		if err := shrinkToFit(&result, caps.MaxContextTokens); err != nil {
			return QueryContext{}, err
		}
	}

	logger.Info("Built context",
		"dataset", datasetID,
		"intent", result.Intent,
		"trainingExamples", len(result.TrainingExamples),
		"similarQueries", len(result.SimilarQueries),
		"tokens", result.TokenSize)

	return result, nil
}

// shrinkToFit drops the lowest-priority sections until the rendered prompt
// fits the token budget. Document examples go first, then canned queries,
// then the surplus of measures, then the base text. Curated training
// examples and similar queries are kept until nothing else is left to cut.
func shrinkToFit(ctx *QueryContext, maxTokens int) error {
	steps := []func() bool{
		func() bool { return cutTail(&ctx.Document.Examples) },
		func() bool { return cutTail(&ctx.Document.Queries) },
		func() bool { return cutTail(&ctx.Document.Measures) },
		func() bool {
			if ctx.Document.Base == "" {
				return false
			}
			ctx.Document.Base = ""
			return true
		},
		func() bool { return cutTail(&ctx.SimilarQueries) },
		func() bool { return cutTail(&ctx.TrainingExamples) },
	}

	for _, step := range steps {
		for step() {
			prompt, err := renderContext(*ctx)
			if err != nil {
				return fmt.Errorf("failed to render context: %w", err)
			}
			ctx.Prompt = prompt
			ctx.TokenSize = internal.CountTokens(prompt)
			if ctx.TokenSize <= maxTokens {
				return nil
			}
		}
	}

	return nil
}

func cutTail[T any](list *[]T) bool {
	if len(*list) == 0 {
		return false
	}
	*list = (*list)[:len(*list)-1]
	return true
}

// Ask builds the context for a question and hands it to the language model,
// returning the raw reply. The reply is not parsed and carries no format
// requirement; recording the generated query back into the store is the
// caller's decision, via RecordQuery, once it knows whether the reply was
// usable.
func Ask(
	datasetID, question string,
	doc ParsedDocumentation,
	handler LanguageHandler,
	store QueryStore,
	llm LLM,
	logger *slog.Logger,
) (string, error) {
	ctx, err := BuildContext(datasetID, question, doc, handler, store, logger)
	if err != nil {
		return "", err
	}

	message := ctx.Prompt + "\n---Question---\n" + question + "\n"

	reply, err := llm.Chat([]string{message})
	if err != nil {
		return "", fmt.Errorf("failed to call LLM: %w", err)
	}

	return reply, nil
}
