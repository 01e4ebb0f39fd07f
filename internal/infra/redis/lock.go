package redis

import (
	"context"
	"fmt"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/pipeline"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ pipeline.Locker = (*JobLocker)(nil)

// JobLocker is the redis-backed job lock. A single SetNX attempt per call:
// contention means another run or regeneration is in flight and the caller
// must be told, not queued. The TTL is a safety net against a crashed holder
// wedging the job forever.
type JobLocker struct {
	cli *redis.Client
	ttl time.Duration
}

func NewJobLocker(c *Client, ttl time.Duration) *JobLocker {
	return &JobLocker{cli: c.cli, ttl: ttl}
}

func lockKey(jobID string) string { return "job_lock:" + jobID }

func (l *JobLocker) TryLock(ctx context.Context, jobID string) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, lockKey(jobID), token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrConflict
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *JobLocker) Unlock(ctx context.Context, jobID, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{lockKey(jobID)}, token).Result()
	return err
}

var luaExtend = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

// Extend re-arms the full TTL while the holder's run is still in flight, so
// runs longer than the TTL keep their lock. Only the token holder can extend.
func (l *JobLocker) Extend(ctx context.Context, jobID, token string) error {
	res, err := luaExtend.Run(ctx, l.cli, []string{lockKey(jobID)}, token, l.ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if n, ok := res.(int64); !ok || n == 0 {
		return fmt.Errorf("lock for job %s expired or taken by another holder", jobID)
	}
	return nil
}
