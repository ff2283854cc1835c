package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/internal/infrastructure/buffer"
)

// Probe checks one backing service. A nil Probe means the service is not
// configured and never counts against IsOnline.
type Probe func(ctx context.Context) error

// PostgresProbe pings pool, or returns nil when pool is nil.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	if pool == nil {
		return nil
	}
	return pool.Ping
}

// RedisProbe pings client, or returns nil when client is nil.
func RedisProbe(client *redislib.Client) Probe {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// Probes groups the services the sync path depends on.
type Probes struct {
	Postgres Probe
	Redis    Probe
}

// Monitor probes the backing services in the background and tells
// listeners when the server goes offline or comes back.
type Monitor struct {
	probes Probes
	buffer *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	logger   *zap.Logger

	listeners []func(online bool)
}

func New(probes Probes, buf *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probes:   probes,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// OnChange registers fn to run after every online/offline transition.
// It must be called before Start.
func (m *Monitor) OnChange(fn func(online bool)) {
	if fn != nil {
		m.listeners = append(m.listeners, fn)
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every configured store answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status.LastCheck.IsZero() {
		return false
	}
	return m.onlineLocked()
}

func (m *Monitor) onlineLocked() bool {
	return (m.probes.Postgres == nil || m.status.PostgreSQL) && (m.probes.Redis == nil || m.status.Redis)
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		PostgreSQL: check(m.probes.Postgres, 3*time.Second),
		Redis:      check(m.probes.Redis, 2*time.Second),
		Buffer:     bufferOK,
		BufferSize: bufferSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	first := m.status.LastCheck.IsZero()
	wasOnline := m.onlineLocked()
	m.status = status
	online := m.onlineLocked()
	m.mu.Unlock()

	switch {
	case (first || wasOnline) && !online:
		m.logger.Warn("backing store unreachable, syncs will be buffered",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	case !first && !wasOnline && online:
		m.logger.Info("backing stores reachable again", zap.Int("buffered", status.BufferSize))
	default:
		return
	}
	for _, fn := range m.listeners {
		fn(online)
	}
}

func check(probe Probe, timeout time.Duration) bool {
	if probe == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return probe(ctx) == nil
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
