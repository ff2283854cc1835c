package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// releaseScript deletes the lock only while it still carries our token, so
// a holder whose TTL expired cannot release someone else's lock.
var releaseScript = redislib.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lock TTL only while it still carries our token.
var refreshScript = redislib.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type partnerLocker struct {
	client redislib.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewPartnerLocker creates a Redis-backed PartnerLocker usable across
// several server instances. ttl bounds how long a crashed holder blocks the
// partner; retry is the polling interval while waiting.
func NewPartnerLocker(client redislib.UniversalClient, ttl, retry time.Duration, logger *zap.Logger) repository.PartnerLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &partnerLocker{
		client: client,
		prefix: "lock:bpartner:",
		ttl:    ttl,
		retry:  retry,
		logger: logger,
	}
}

// Lock blocks until the partner lock is acquired or ctx is done. While held,
// the lock TTL is refreshed every third of the TTL, so a long
// reconciliation keeps it; only a crashed holder lets it expire.
func (l *partnerLocker) Lock(ctx context.Context, partnerUUID string) (func(), error) {
	key := l.key(partnerUUID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.WrapError(domain.ErrCodeConflict, domain.ErrLockNotAcquired.Message, ctx.Err())
			}
			return nil, err
		}
		if ok {
			stop := make(chan struct{})
			go l.keepAlive(key, token, stop)
			return l.releaser(key, token, stop), nil
		}

		select {
		case <-ctx.Done():
			return nil, domain.WrapError(domain.ErrCodeConflict, domain.ErrLockNotAcquired.Message, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *partnerLocker) keepAlive(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
		refreshed, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			l.logger.Warn("failed to refresh bpartner lock", zap.String("key", key), zap.Error(err))
		case refreshed == 0:
			l.logger.Error("bpartner lock lost before release", zap.String("key", key))
			return
		}
	}
}

func (l *partnerLocker) releaser(key, token string, stop chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release bpartner lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func (l *partnerLocker) key(partnerUUID string) string {
	return fmt.Sprintf("%s%s", l.prefix, partnerUUID)
}
