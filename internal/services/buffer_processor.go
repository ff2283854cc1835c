package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/internal/infrastructure/buffer"
	"github.com/fastygo/agentsync/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
	// MaxSize caps the number of buffered items; zero means unbounded.
	MaxSize int
}

// BufferProcessor replays buffered reconciliations through the dispatcher.
type BufferProcessor struct {
	store      *buffer.Store
	monitor    ConnectionHealth
	dispatcher *usecase.Dispatcher
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        ProcessorConfig

	draining sync.Mutex
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	dispatcher *usecase.Dispatcher,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:      store,
		monitor:    monitor,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})
	_, _ = bp.cron.AddFunc("@hourly", func() {
		if err := bp.store.Cleanup(time.Now().Add(-cfg.Retention)); err != nil {
			bp.logger.Error("buffer cleanup failed", zap.Error(err))
		}
	})

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started")
}

// Stop gracefully stops the scheduler.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// DrainAsync starts a drain in the background, bounded by the drain interval.
func (bp *BufferProcessor) DrainAsync() {
	if bp == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), bp.cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	}()
}

// Drain replays buffered items synchronously, oldest first within a priority.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}
	if !bp.draining.TryLock() {
		bp.logger.Debug("skipping buffer drain (already running)")
		return nil
	}
	defer bp.draining.Unlock()

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := bp.processItem(ctx, item)
		if err == nil {
			if err := bp.store.Remove(item); err != nil {
				bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
			}
			bp.logger.Info("buffered sync replayed",
				zap.String("item_id", item.ID),
				zap.String("bpartner_uuid", item.PartnerUUID))
			continue
		}

		log := bp.logger.With(
			zap.String("item_id", item.ID),
			zap.String("entity", item.Entity),
			zap.String("bpartner_uuid", item.PartnerUUID),
			zap.Error(err))

		if permanent(err) {
			log.Warn("dropping buffer item (rejected on replay)")
			_ = bp.store.Remove(item)
			continue
		}

		item.Retries++
		item.LastError = err.Error()
		if item.Retries >= bp.cfg.MaxRetries {
			log.Warn("dropping buffer item (max retries reached)")
			_ = bp.store.Remove(item)
			continue
		}

		log.Error("failed to process buffer item")
		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to remove buffer item", zap.Error(err))
		}
		if err := bp.store.Requeue(item); err != nil {
			bp.logger.Error("failed to requeue buffer item", zap.Error(err))
		}
	}
	return nil
}

// Enqueue persists item for a later replay. Items sharing an ID replace each
// other.
func (bp *BufferProcessor) Enqueue(_ context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}
	if bp.cfg.MaxSize > 0 && bp.Size() >= bp.cfg.MaxSize {
		return fmt.Errorf("buffer full (%d items)", bp.cfg.MaxSize)
	}
	return bp.store.Replace(item)
}

// Discard drops the buffered item with id. A sync that committed newer state
// calls it so the stale item is never replayed.
func (bp *BufferProcessor) Discard(_ context.Context, id string) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	return bp.store.Discard(id)
}

// Pending reports whether the item with id received at receivedAt still
// waits for replay.
func (bp *BufferProcessor) Pending(_ context.Context, id string, receivedAt time.Time) (bool, error) {
	if bp == nil || bp.store == nil {
		return false, nil
	}
	return bp.store.Pending(id, receivedAt)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Entity {
	case buffer.EntityBPartner:
		var snapshot domain.SyncBPartner
		if err := json.Unmarshal(item.Data, &snapshot); err != nil {
			return domain.WrapError(domain.ErrCodeInvalid, "corrupt buffered snapshot", err)
		}
		switch item.Operation {
		case buffer.OperationSync:
			_, err := bp.dispatcher.ExecuteCommand(ctx, usecase.CommandSyncBPartner, &usecase.BufferedBPartner{
				Snapshot:   &snapshot,
				BufferedAt: item.ReceivedAt,
			})
			return err
		default:
			return domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unsupported operation %s", item.Operation))
		}
	default:
		return domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unsupported entity %s", item.Entity))
	}
}

// permanent reports errors that a later replay cannot fix.
func permanent(err error) bool {
	var recErr *domain.RecordError
	return errors.As(err, &recErr) || domain.IsDomainError(err, domain.ErrCodeInvalid)
}
