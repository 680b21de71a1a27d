package storage

import (
	"path/filepath"
	"testing"
	"time"

	goqueryrag "github.com/inteligo-bi/go-query-rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteTestDB(t *testing.T) *SQLite {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func sampleLearnedQuery() goqueryrag.LearnedQuery {
	queryText := "SUMMARIZE [Total Vendas] BY 'Filiais'"
	return goqueryrag.LearnedQuery{
		DatasetID:    "ds1",
		QuestionText: "faturamento da filial Centro",
		Intent:       goqueryrag.IntentRevenueByBranch,
		QueryText:    queryText,
		QueryHash:    goqueryrag.QueryHash(queryText),
		TimesReused:  2,
		Success:      true,
		LastUsedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func sampleTrainingExample() goqueryrag.TrainingExample {
	return goqueryrag.TrainingExample{
		DatasetID:    "ds1",
		QuestionText: "faturamento da filial Norte",
		QueryText:    "SUMMARIZE [Total Vendas] BY 'Filiais'",
		ResponseText: "A filial Norte faturou R$ 5.000,00.",
		Category:     "Faturamento",
		Tags:         []string{"filial", "faturamento"},
	}
}

func TestSQLiteLearnedQueries(t *testing.T) {
	t.Run("Upsert assigns an id", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		query := sampleLearnedQuery()

		require.NoError(t, s.UpsertLearnedQuery(query))

		stored, err := s.LearnedQueryByHash(query.DatasetID, query.QueryHash)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, query.QuestionText, stored.QuestionText)
		assert.Equal(t, query.Intent, stored.Intent)
		assert.Equal(t, query.TimesReused, stored.TimesReused)
		assert.True(t, stored.Success)
	})

	t.Run("Lookup by id", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		query := sampleLearnedQuery()
		query.ID = "lq-fixed"

		require.NoError(t, s.UpsertLearnedQuery(query))

		stored, err := s.LearnedQuery("lq-fixed")
		require.NoError(t, err)
		assert.Equal(t, query.QueryText, stored.QueryText)
	})

	t.Run("Missing rows yield ErrQueryNotFound", func(t *testing.T) {
		s := setupSQLiteTestDB(t)

		_, err := s.LearnedQuery("missing")
		assert.ErrorIs(t, err, goqueryrag.ErrQueryNotFound)

		_, err = s.LearnedQueryByHash("ds1", "missing")
		assert.ErrorIs(t, err, goqueryrag.ErrQueryNotFound)
	})

	t.Run("Hash conflict updates in place", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		query := sampleLearnedQuery()

		require.NoError(t, s.UpsertLearnedQuery(query))

		query.TimesReused = 3
		query.Success = false
		query.ErrorNote = "filter was wrong"
		require.NoError(t, s.UpsertLearnedQuery(query))

		stored, err := s.LearnedQueryByHash(query.DatasetID, query.QueryHash)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.TimesReused)
		assert.False(t, stored.Success)
		assert.Equal(t, "filter was wrong", stored.ErrorNote)

		results, err := s.SuccessfulQueriesByIntent(query.DatasetID, query.Intent, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Reuse counter never goes backwards", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		query := sampleLearnedQuery()
		query.TimesReused = 5

		require.NoError(t, s.UpsertLearnedQuery(query))

		stale := query
		stale.TimesReused = 1
		require.NoError(t, s.UpsertLearnedQuery(stale))

		stored, err := s.LearnedQueryByHash(query.DatasetID, query.QueryHash)
		require.NoError(t, err)
		assert.Equal(t, 5, stored.TimesReused)
	})

	t.Run("Queries by intent filter success and dataset", func(t *testing.T) {
		s := setupSQLiteTestDB(t)

		matching := sampleLearnedQuery()
		require.NoError(t, s.UpsertLearnedQuery(matching))

		failed := sampleLearnedQuery()
		failed.QueryText = "EVALUATE Falha"
		failed.QueryHash = goqueryrag.QueryHash(failed.QueryText)
		failed.Success = false
		require.NoError(t, s.UpsertLearnedQuery(failed))

		otherIntent := sampleLearnedQuery()
		otherIntent.QueryText = "EVALUATE Margem"
		otherIntent.QueryHash = goqueryrag.QueryHash(otherIntent.QueryText)
		otherIntent.Intent = goqueryrag.IntentMargin
		require.NoError(t, s.UpsertLearnedQuery(otherIntent))

		otherDataset := sampleLearnedQuery()
		otherDataset.DatasetID = "ds2"
		require.NoError(t, s.UpsertLearnedQuery(otherDataset))

		results, err := s.SuccessfulQueriesByIntent("ds1", goqueryrag.IntentRevenueByBranch, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, matching.QueryHash, results[0].QueryHash)
	})

	t.Run("Limit bounds the result", func(t *testing.T) {
		s := setupSQLiteTestDB(t)

		for _, text := range []string{"EVALUATE A", "EVALUATE B", "EVALUATE C"} {
			query := sampleLearnedQuery()
			query.QueryText = text
			query.QueryHash = goqueryrag.QueryHash(text)
			require.NoError(t, s.UpsertLearnedQuery(query))
		}

		results, err := s.SuccessfulQueriesByIntent("ds1", goqueryrag.IntentRevenueByBranch, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestSQLiteTrainingExamples(t *testing.T) {
	t.Run("Round trip with tags", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		example := sampleTrainingExample()

		require.NoError(t, s.UpsertTrainingExample(example))

		results, err := s.TrainingExamples("ds1")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, example.QuestionText, results[0].QuestionText)
		assert.Equal(t, example.Category, results[0].Category)
		assert.Equal(t, example.Tags, results[0].Tags)
		assert.True(t, results[0].LastUsedAt.IsZero())
	})

	t.Run("Datasets are isolated", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		example := sampleTrainingExample()
		require.NoError(t, s.UpsertTrainingExample(example))

		results, err := s.TrainingExamples("ds2")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Touch updates the timestamp", func(t *testing.T) {
		s := setupSQLiteTestDB(t)
		example := sampleTrainingExample()
		example.ID = "ex-1"
		require.NoError(t, s.UpsertTrainingExample(example))

		usedAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.TouchTrainingExample("ds1", "ex-1", usedAt))

		results, err := s.TrainingExamples("ds1")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].LastUsedAt.Equal(usedAt))
	})

	t.Run("Touching a missing example errors", func(t *testing.T) {
		s := setupSQLiteTestDB(t)

		err := s.TouchTrainingExample("ds1", "missing", time.Now())
		assert.ErrorIs(t, err, goqueryrag.ErrExampleNotFound)
	})
}
