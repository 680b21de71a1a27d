package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goqueryrag "github.com/inteligo-bi/go-query-rag"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite provides a SQL implementation of the QueryStore interface. The
// unique (dataset_id, query_hash) constraint with an ON CONFLICT upsert
// makes the write side of the dedup safe even when two writers race: the
// stored times_reused never goes backwards.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS learned_queries (
	id            TEXT PRIMARY KEY,
	dataset_id    TEXT NOT NULL,
	question_text TEXT NOT NULL DEFAULT '',
	intent        TEXT NOT NULL DEFAULT 'other',
	query_text    TEXT NOT NULL,
	query_hash    TEXT NOT NULL,
	times_reused  INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL DEFAULT 0,
	error_note    TEXT NOT NULL DEFAULT '',
	last_used_at  TIMESTAMP,
	UNIQUE(dataset_id, query_hash)
);
CREATE INDEX IF NOT EXISTS idx_learned_intent
	ON learned_queries(dataset_id, intent, success);

CREATE TABLE IF NOT EXISTS training_examples (
	id            TEXT PRIMARY KEY,
	dataset_id    TEXT NOT NULL,
	question_text TEXT NOT NULL DEFAULT '',
	query_text    TEXT NOT NULL DEFAULT '',
	response_text TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	tags          TEXT NOT NULL DEFAULT '[]',
	last_used_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_examples_dataset
	ON training_examples(dataset_id);
`

// NewSQLite opens a SQLite database at path with WAL mode enabled and
// ensures the schema exists.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const learnedColumns = `id, dataset_id, question_text, intent, query_text, query_hash,
	times_reused, success, error_note, last_used_at`

// LearnedQuery retrieves a learned query by its ID.
func (s *SQLite) LearnedQuery(id string) (goqueryrag.LearnedQuery, error) {
	row := s.db.QueryRow(`SELECT `+learnedColumns+` FROM learned_queries WHERE id = ?`, id)
	return scanLearnedQuery(row)
}

// LearnedQueryByHash retrieves a learned query by dataset and content hash.
func (s *SQLite) LearnedQueryByHash(datasetID, hash string) (goqueryrag.LearnedQuery, error) {
	row := s.db.QueryRow(
		`SELECT `+learnedColumns+` FROM learned_queries WHERE dataset_id = ? AND query_hash = ?`,
		datasetID, hash)
	return scanLearnedQuery(row)
}

// SuccessfulQueriesByIntent retrieves up to limit successful learned
// queries for the dataset and intent, most recently used first.
func (s *SQLite) SuccessfulQueriesByIntent(
	datasetID string,
	intent goqueryrag.Intent,
	limit int,
) ([]goqueryrag.LearnedQuery, error) {
	rows, err := s.db.Query(
		`SELECT `+learnedColumns+` FROM learned_queries
		 WHERE dataset_id = ? AND intent = ? AND success = 1
		 ORDER BY last_used_at DESC LIMIT ?`,
		datasetID, string(intent), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned queries: %w", err)
	}
	defer rows.Close()

	results := make([]goqueryrag.LearnedQuery, 0)
	for rows.Next() {
		query, err := scanLearnedQuery(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, query)
	}

	return results, rows.Err()
}

// UpsertLearnedQuery creates or replaces a learned query row. On a
// (dataset_id, query_hash) conflict the reuse counter is kept monotonic
// with MAX, so concurrent reinforcements cannot lose counts to a stale
// read-modify-write.
func (s *SQLite) UpsertLearnedQuery(query goqueryrag.LearnedQuery) error {
	if query.ID == "" {
		query.ID = uuid.New().String()
	}

	_, err := s.db.Exec(`
		INSERT INTO learned_queries (`+learnedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset_id, query_hash) DO UPDATE SET
			question_text = excluded.question_text,
			intent        = excluded.intent,
			query_text    = excluded.query_text,
			times_reused  = MAX(learned_queries.times_reused, excluded.times_reused),
			success       = excluded.success,
			error_note    = excluded.error_note,
			last_used_at  = excluded.last_used_at`,
		query.ID, query.DatasetID, query.QuestionText, string(query.Intent),
		query.QueryText, query.QueryHash, query.TimesReused, boolToInt(query.Success),
		query.ErrorNote, query.LastUsedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert learned query: %w", err)
	}

	return nil
}

// TrainingExamples retrieves all curated examples for the dataset.
func (s *SQLite) TrainingExamples(datasetID string) ([]goqueryrag.TrainingExample, error) {
	rows, err := s.db.Query(
		`SELECT id, dataset_id, question_text, query_text, response_text, category, tags, last_used_at
		 FROM training_examples WHERE dataset_id = ?`,
		datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query training examples: %w", err)
	}
	defer rows.Close()

	results := make([]goqueryrag.TrainingExample, 0)
	for rows.Next() {
		var example goqueryrag.TrainingExample
		var tags string
		var lastUsed sql.NullTime
		if err := rows.Scan(&example.ID, &example.DatasetID, &example.QuestionText,
			&example.QueryText, &example.ResponseText, &example.Category, &tags, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan training example: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &example.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		if lastUsed.Valid {
			example.LastUsedAt = lastUsed.Time
		}
		results = append(results, example)
	}

	return results, rows.Err()
}

// UpsertTrainingExample stores a curated example for the dataset.
func (s *SQLite) UpsertTrainingExample(example goqueryrag.TrainingExample) error {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}

	tags, err := json.Marshal(example.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO training_examples (id, dataset_id, question_text, query_text, response_text, category, tags, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question_text = excluded.question_text,
			query_text    = excluded.query_text,
			response_text = excluded.response_text,
			category      = excluded.category,
			tags          = excluded.tags`,
		example.ID, example.DatasetID, example.QuestionText, example.QueryText,
		example.ResponseText, example.Category, string(tags), nullableTime(example.LastUsedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert training example: %w", err)
	}

	return nil
}

// TouchTrainingExample updates the last-used timestamp of an example.
func (s *SQLite) TouchTrainingExample(datasetID, id string, usedAt time.Time) error {
	result, err := s.db.Exec(
		`UPDATE training_examples SET last_used_at = ? WHERE dataset_id = ? AND id = ?`,
		usedAt, datasetID, id)
	if err != nil {
		return fmt.Errorf("failed to touch training example: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return goqueryrag.ErrExampleNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLearnedQuery(row rowScanner) (goqueryrag.LearnedQuery, error) {
	var query goqueryrag.LearnedQuery
	var intent string
	var success int
	var lastUsed sql.NullTime

	err := row.Scan(&query.ID, &query.DatasetID, &query.QuestionText, &intent,
		&query.QueryText, &query.QueryHash, &query.TimesReused, &success,
		&query.ErrorNote, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goqueryrag.LearnedQuery{}, goqueryrag.ErrQueryNotFound
		}
		return goqueryrag.LearnedQuery{}, fmt.Errorf("failed to scan learned query: %w", err)
	}

	query.Intent = goqueryrag.Intent(intent)
	query.Success = success != 0
	if lastUsed.Valid {
		query.LastUsedAt = lastUsed.Time
	}

	return query, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
