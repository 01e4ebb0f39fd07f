package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"audio-translation-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Locker serializes writers per job id. A pipeline run (initial or retry) and
// a regeneration each take the job's lock for their full duration, so the two
// can never mutate the same record concurrently. Contended acquisition fails
// with domain.ErrConflict; callers reject, they never queue. Extend re-arms
// the holder's TTL so a run longer than the TTL cannot lose the lock mid-run.
type Locker interface {
	TryLock(ctx context.Context, jobID string) (token string, err error)
	Unlock(ctx context.Context, jobID, token string) error
	Extend(ctx context.Context, jobID, token string) error
}

// lockRefreshInterval paces Extend calls while a run holds its lock. Keep it
// well under the smallest LockTTL an operator would configure.
const lockRefreshInterval = 30 * time.Second

// holdLock re-arms the job lock until ctx is cancelled. A failed extension is
// logged, not fatal: the run keeps going and the next tick tries again.
func holdLock(ctx context.Context, l Locker, jobID, token string, interval time.Duration, log *zerolog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := l.Extend(ctx, jobID, token); err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("job lock extension failed")
			}
		}
	}
}

// MemoryLocker is the in-process lock table used when redis is not
// configured, and by tests. Sufficient for the single-process deployment
// model; the redis locker exists for operators who run redis anyway and want
// the TTL safety net.
type MemoryLocker struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{tokens: make(map[string]string)}
}

func (l *MemoryLocker) TryLock(ctx context.Context, jobID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.tokens[jobID]; held {
		return "", domain.ErrConflict
	}
	token := uuid.NewString()
	l.tokens[jobID] = token
	return token, nil
}

func (l *MemoryLocker) Unlock(ctx context.Context, jobID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[jobID] == token {
		delete(l.tokens, jobID)
	}
	return nil
}

// Extend is a no-op for held in-process locks; they have no TTL to re-arm.
// It still reports a lost lock so holdLock surfaces the same signal as redis.
func (l *MemoryLocker) Extend(ctx context.Context, jobID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[jobID] != token {
		return fmt.Errorf("lock for job %s no longer held", jobID)
	}
	return nil
}
