package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goqueryrag "github.com/inteligo-bi/go-query-rag"
	"github.com/redis/go-redis/v9"
)

// Redis provides a networked implementation of the QueryStore interface.
// Learned queries live under "lq:{dataset}:{hash}" with an id index and a
// per-intent set; training examples under "tex:{dataset}:{id}" with a
// per-dataset index set.
type Redis struct {
	Client *redis.Client
}

const redisTimeout = 10 * time.Second

// NewRedis creates a new Redis client connection with the provided
// configuration and verifies it with a ping.
func NewRedis(addr, password string, db int) (Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return Redis{}, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Redis{Client: client}, nil
}

func redisLearnedKey(datasetID, hash string) string {
	return fmt.Sprintf("lq:%s:%s", datasetID, hash)
}

func redisIntentKey(datasetID string, intent goqueryrag.Intent) string {
	return fmt.Sprintf("lqintent:%s:%s", datasetID, intent)
}

func redisExampleKey(datasetID, id string) string {
	return fmt.Sprintf("tex:%s:%s", datasetID, id)
}

// LearnedQuery retrieves a learned query by its ID via the id index.
func (r Redis) LearnedQuery(id string) (goqueryrag.LearnedQuery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key, err := r.Client.Get(ctx, "lqid:"+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goqueryrag.LearnedQuery{}, goqueryrag.ErrQueryNotFound
		}
		return goqueryrag.LearnedQuery{}, fmt.Errorf("failed to get query id index: %w", err)
	}

	return r.learnedByKey(ctx, key)
}

// LearnedQueryByHash retrieves a learned query by dataset and content hash.
func (r Redis) LearnedQueryByHash(datasetID, hash string) (goqueryrag.LearnedQuery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return r.learnedByKey(ctx, redisLearnedKey(datasetID, hash))
}

func (r Redis) learnedByKey(ctx context.Context, key string) (goqueryrag.LearnedQuery, error) {
	raw, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goqueryrag.LearnedQuery{}, goqueryrag.ErrQueryNotFound
		}
		return goqueryrag.LearnedQuery{}, fmt.Errorf("failed to get learned query: %w", err)
	}

	var query goqueryrag.LearnedQuery
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		return goqueryrag.LearnedQuery{}, fmt.Errorf("failed to decode learned query: %w", err)
	}

	return query, nil
}

// SuccessfulQueriesByIntent reads the per-intent set and returns up to
// limit successful learned queries.
func (r Redis) SuccessfulQueriesByIntent(
	datasetID string,
	intent goqueryrag.Intent,
	limit int,
) ([]goqueryrag.LearnedQuery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	keys, err := r.Client.SMembers(ctx, redisIntentKey(datasetID, intent)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read intent index: %w", err)
	}

	results := make([]goqueryrag.LearnedQuery, 0, len(keys))
	for _, key := range keys {
		query, err := r.learnedByKey(ctx, key)
		if err != nil {
			if errors.Is(err, goqueryrag.ErrQueryNotFound) {
				continue
			}
			return nil, err
		}
		if !query.Success {
			continue
		}
		results = append(results, query)
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

// UpsertLearnedQuery creates or replaces a learned query, maintaining the
// id and intent indexes in one pipeline.
func (r Redis) UpsertLearnedQuery(query goqueryrag.LearnedQuery) error {
	if query.ID == "" {
		query.ID = uuid.New().String()
	}

	raw, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to encode learned query: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := redisLearnedKey(query.DatasetID, query.QueryHash)

	pipe := r.Client.Pipeline()
	pipe.Set(ctx, key, raw, 0)
	pipe.Set(ctx, "lqid:"+query.ID, key, 0)
	pipe.SAdd(ctx, redisIntentKey(query.DatasetID, query.Intent), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert learned query: %w", err)
	}

	return nil
}

// TrainingExamples retrieves all curated examples for the dataset.
func (r Redis) TrainingExamples(datasetID string) ([]goqueryrag.TrainingExample, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	ids, err := r.Client.SMembers(ctx, "texidx:"+datasetID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read example index: %w", err)
	}

	results := make([]goqueryrag.TrainingExample, 0, len(ids))
	for _, id := range ids {
		raw, err := r.Client.Get(ctx, redisExampleKey(datasetID, id)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get training example: %w", err)
		}
		var example goqueryrag.TrainingExample
		if err := json.Unmarshal([]byte(raw), &example); err != nil {
			return nil, fmt.Errorf("failed to decode training example: %w", err)
		}
		results = append(results, example)
	}

	return results, nil
}

// UpsertTrainingExample stores a curated example and indexes it.
func (r Redis) UpsertTrainingExample(example goqueryrag.TrainingExample) error {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}

	raw, err := json.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to encode training example: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := r.Client.Pipeline()
	pipe.Set(ctx, redisExampleKey(example.DatasetID, example.ID), raw, 0)
	pipe.SAdd(ctx, "texidx:"+example.DatasetID, example.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert training example: %w", err)
	}

	return nil
}

// TouchTrainingExample updates the last-used timestamp of an example.
func (r Redis) TouchTrainingExample(datasetID, id string, usedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := redisExampleKey(datasetID, id)

	raw, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goqueryrag.ErrExampleNotFound
		}
		return fmt.Errorf("failed to get training example: %w", err)
	}

	var example goqueryrag.TrainingExample
	if err := json.Unmarshal([]byte(raw), &example); err != nil {
		return fmt.Errorf("failed to decode training example: %w", err)
	}
	example.LastUsedAt = usedAt

	updated, err := json.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to encode training example: %w", err)
	}

	if err := r.Client.Set(ctx, key, updated, 0).Err(); err != nil {
		return fmt.Errorf("failed to touch training example: %w", err)
	}

	return nil
}
