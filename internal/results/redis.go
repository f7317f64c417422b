package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"citizenship-adjudicator/internal/models"
)

// RedisStore keeps rows as JSON values in one hash, keyed by job and case.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore does not own client; Close is a no-op.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Append(ctx context.Context, row models.ResultRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("redis: encode row: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, fieldFor(row), payload).Err(); err != nil {
		return fmt.Errorf("redis: hset %s: %w", s.key, err)
	}
	return nil
}

// Rows returns every stored row ordered by timestamp. A hash has no write
// order, so equal timestamps fall back to case ID.
func (s *RedisStore) Rows(ctx context.Context) ([]models.ResultRow, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", s.key, err)
	}

	rows := make([]models.ResultRow, 0, len(values))
	for field, raw := range values {
		var row models.ResultRow
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("redis: decode %s: %w", field, err)
		}
		rows = append(rows, row)
	}
	sortByCaseID(rows)
	sortByTime(rows)
	return rows, nil
}

func (s *RedisStore) Close() error { return nil }

func fieldFor(row models.ResultRow) string {
	if row.JobID == "" {
		return row.CaseID
	}
	return row.JobID + ":" + row.CaseID
}
