package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agentsync/domain"
)

// newClient connects to TEST_REDIS_URL; tests are skipped when it is unset.
func newClient(t *testing.T) *redislib.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redislib.ParseURL(url)
	require.NoError(t, err)
	client := redislib.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestPartnerLockExcludes(t *testing.T) {
	client := newClient(t)
	locker := NewPartnerLocker(client, time.Second, 10*time.Millisecond, nil)
	partner := uuid.NewString()

	release, err := locker.Lock(context.Background(), partner)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, partner)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	release()
	release()

	release2, err := locker.Lock(context.Background(), partner)
	require.NoError(t, err)
	release2()
}

func TestExpiredHolderCannotReleaseNewLock(t *testing.T) {
	client := newClient(t)
	locker := NewPartnerLocker(client, 50*time.Millisecond, 10*time.Millisecond, nil)
	partner := uuid.NewString()

	stale, err := locker.Lock(context.Background(), partner)
	require.NoError(t, err)
	// the key vanishing stands in for an expiry the holder did not notice
	require.NoError(t, client.Del(context.Background(), "lock:bpartner:"+partner).Err())

	fresh, err := locker.Lock(context.Background(), partner)
	require.NoError(t, err)
	stale()

	exists, err := client.Exists(context.Background(), "lock:bpartner:"+partner).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
	fresh()
}

func TestHeldLockOutlivesTTL(t *testing.T) {
	client := newClient(t)
	locker := NewPartnerLocker(client, 60*time.Millisecond, 10*time.Millisecond, nil)
	partner := uuid.NewString()

	release, err := locker.Lock(context.Background(), partner)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, partner)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "refreshed lock must stay exclusive")
}

func TestPartnerLockSerializes(t *testing.T) {
	client := newClient(t)
	locker := NewPartnerLocker(client, time.Second, 5*time.Millisecond, nil)
	partner := uuid.NewString()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), partner)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
