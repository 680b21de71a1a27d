// Package storage provides QueryStore implementations backed by bbolt,
// SQLite and Redis.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goqueryrag "github.com/inteligo-bi/go-query-rag"
	bolt "go.etcd.io/bbolt"
)

const (
	learnedBucket   = "learned_queries"
	learnedIDBucket = "learned_query_ids"
	exampleBucket   = "training_examples"
)

// Bolt provides an embedded bbolt implementation of the QueryStore
// interface. Learned queries are keyed by "datasetID/queryHash" with a
// secondary id index; training examples by "datasetID/id".
type Bolt struct {
	DB *bolt.DB
}

// NewBolt opens (or creates) a bbolt database at path and ensures the
// required buckets exist.
func NewBolt(path string) (Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return Bolt{}, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{learnedBucket, learnedIDBucket, exampleBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return Bolt{}, fmt.Errorf("failed to create buckets: %w", err)
	}

	return Bolt{DB: db}, nil
}

func learnedKey(datasetID, hash string) []byte {
	return []byte(datasetID + "/" + hash)
}

// LearnedQuery retrieves a learned query by its ID via the id index.
func (b Bolt) LearnedQuery(id string) (goqueryrag.LearnedQuery, error) {
	var result goqueryrag.LearnedQuery

	err := b.DB.View(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(learnedIDBucket)).Get([]byte(id))
		if key == nil {
			return goqueryrag.ErrQueryNotFound
		}
		raw := tx.Bucket([]byte(learnedBucket)).Get(key)
		if raw == nil {
			return goqueryrag.ErrQueryNotFound
		}
		return json.Unmarshal(raw, &result)
	})

	return result, err
}

// LearnedQueryByHash retrieves a learned query by dataset and content hash.
func (b Bolt) LearnedQueryByHash(datasetID, hash string) (goqueryrag.LearnedQuery, error) {
	var result goqueryrag.LearnedQuery

	err := b.DB.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(learnedBucket)).Get(learnedKey(datasetID, hash))
		if raw == nil {
			return goqueryrag.ErrQueryNotFound
		}
		return json.Unmarshal(raw, &result)
	})

	return result, err
}

// SuccessfulQueriesByIntent scans the dataset's learned queries and returns
// up to limit successful ones carrying the intent.
func (b Bolt) SuccessfulQueriesByIntent(
	datasetID string,
	intent goqueryrag.Intent,
	limit int,
) ([]goqueryrag.LearnedQuery, error) {
	results := make([]goqueryrag.LearnedQuery, 0)

	err := b.DB.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(learnedBucket)).Cursor()
		prefix := []byte(datasetID + "/")

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var query goqueryrag.LearnedQuery
			if err := json.Unmarshal(v, &query); err != nil {
				return fmt.Errorf("failed to decode learned query %s: %w", k, err)
			}
			if !query.Success || query.Intent != intent {
				continue
			}
			results = append(results, query)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// UpsertLearnedQuery creates or replaces a learned query row, assigning an
// ID when the record has none.
func (b Bolt) UpsertLearnedQuery(query goqueryrag.LearnedQuery) error {
	if query.ID == "" {
		query.ID = uuid.New().String()
	}

	raw, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to encode learned query: %w", err)
	}

	return b.DB.Update(func(tx *bolt.Tx) error {
		key := learnedKey(query.DatasetID, query.QueryHash)
		if err := tx.Bucket([]byte(learnedBucket)).Put(key, raw); err != nil {
			return fmt.Errorf("failed to put learned query: %w", err)
		}
		if err := tx.Bucket([]byte(learnedIDBucket)).Put([]byte(query.ID), key); err != nil {
			return fmt.Errorf("failed to put learned query id: %w", err)
		}
		return nil
	})
}

// TrainingExamples retrieves all curated examples for the dataset.
func (b Bolt) TrainingExamples(datasetID string) ([]goqueryrag.TrainingExample, error) {
	results := make([]goqueryrag.TrainingExample, 0)

	err := b.DB.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(exampleBucket)).Cursor()
		prefix := []byte(datasetID + "/")

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var example goqueryrag.TrainingExample
			if err := json.Unmarshal(v, &example); err != nil {
				return fmt.Errorf("failed to decode training example %s: %w", k, err)
			}
			results = append(results, example)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// UpsertTrainingExample stores a curated example. Examples are authored
// outside the learning subsystem; this is the seeding entry point.
func (b Bolt) UpsertTrainingExample(example goqueryrag.TrainingExample) error {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}

	raw, err := json.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to encode training example: %w", err)
	}

	return b.DB.Update(func(tx *bolt.Tx) error {
		key := []byte(example.DatasetID + "/" + example.ID)
		return tx.Bucket([]byte(exampleBucket)).Put(key, raw)
	})
}

// TouchTrainingExample updates the last-used timestamp of an example.
func (b Bolt) TouchTrainingExample(datasetID, id string, usedAt time.Time) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(exampleBucket))
		key := []byte(datasetID + "/" + id)

		raw := bucket.Get(key)
		if raw == nil {
			return goqueryrag.ErrExampleNotFound
		}

		var example goqueryrag.TrainingExample
		if err := json.Unmarshal(raw, &example); err != nil {
			return fmt.Errorf("failed to decode training example: %w", err)
		}
		example.LastUsedAt = usedAt

		updated, err := json.Marshal(example)
		if err != nil {
			return fmt.Errorf("failed to encode training example: %w", err)
		}
		return bucket.Put(key, updated)
	})
}
