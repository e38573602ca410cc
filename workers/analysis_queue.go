package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// AnalysisQueueKey is the Redis list the AI pipeline consumes from.
const AnalysisQueueKey = "observations:process"

// RedisAnalysisQueue pushes observation ids onto a Redis list for the
// external AI pipeline. Delivery is at-most-once: a push that fails is
// logged by the caller and left to the requeue worker.
type RedisAnalysisQueue struct {
	Client *redis.Client
}

func NewRedisAnalysisQueue(client *redis.Client) *RedisAnalysisQueue {
	return &RedisAnalysisQueue{Client: client}
}

// NewRedisClient builds the shared Redis client from REDIS_URL.
func NewRedisClient() (*redis.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

type processJob struct {
	ObservationID string `json:"observation_id"`
}

func (q *RedisAnalysisQueue) EnqueueObservation(ctx context.Context, observationID string) error {
	payload, err := json.Marshal(processJob{ObservationID: observationID})
	if err != nil {
		return err
	}
	return q.Client.LPush(ctx, AnalysisQueueKey, payload).Err()
}
