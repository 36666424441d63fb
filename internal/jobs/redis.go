package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a redis-list job queue. Ingestion jobs get a dedicated list
// so PBX latency and failures stay isolated from unrelated job types.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job IngestionJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (IngestionJob, bool, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return IngestionJob{}, false, nil
		}
		return IngestionJob{}, false, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return IngestionJob{}, false, fmt.Errorf("dequeue job: unexpected reply length %d", len(res))
	}
	var job IngestionJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return IngestionJob{}, false, fmt.Errorf("decode job: %w", err)
	}
	return job, true, nil
}

// releaseScript deletes the lock key only when the caller still holds it,
// so an expired lease taken over by another run is never released by the
// original holder.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLock is a single-key distributed lock with a bounded lease.
type RedisLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{rdb: rdb, key: key, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
