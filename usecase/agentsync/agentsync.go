package agentsync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/pkg/logger"
	"github.com/fastygo/agentsync/repository"
	"github.com/fastygo/agentsync/usecase"
	"github.com/fastygo/agentsync/usecase/reconcile"
)

// Status is the outcome of one partner in a batch.
type Status string

const (
	StatusSynced   Status = "synced"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
	StatusBuffered Status = "buffered"
	StatusSkipped  Status = "skipped"
)

type PartnerResult struct {
	PartnerUUID string              `json:"bpartner_uuid"`
	Status      Status              `json:"status"`
	Report      *reconcile.Report   `json:"report,omitempty"`
	Error       *domain.RecordError `json:"error,omitempty"`
}

type BatchResult struct {
	BPartners []PartnerResult `json:"bpartners"`
}

// Count returns how many partners ended with status.
func (b *BatchResult) Count(status Status) int {
	n := 0
	for _, r := range b.BPartners {
		if r.Status == status {
			n++
		}
	}
	return n
}

type UseCase struct {
	uow        repository.UnitOfWork
	locker     repository.PartnerLocker
	reconciler *reconcile.Reconciler
	buffer     usecase.OperationBuffer
	logger     *zap.Logger
}

func New(
	uow repository.UnitOfWork,
	locker repository.PartnerLocker,
	reconciler *reconcile.Reconciler,
	buffer usecase.OperationBuffer,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reconciler == nil {
		reconciler = reconcile.New(logger)
	}
	return &UseCase{
		uow:        uow,
		locker:     locker,
		reconciler: reconciler,
		buffer:     buffer,
		logger:     logger,
	}
}

// SyncBPartners reconciles every partner of the batch in order, each in its
// own unit of work. One partner failing never affects the others. Partners
// not yet started when ctx is done are reported as skipped.
func (uc *UseCase) SyncBPartners(ctx context.Context, req *domain.SyncBPartnersRequest) (*BatchResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidPayload
	}
	log := logger.WithRequestID(ctx, uc.logger)
	started := time.Now()

	result := &BatchResult{BPartners: make([]PartnerResult, 0, len(req.BPartners))}
	for i := range req.BPartners {
		snapshot := &req.BPartners[i]
		if ctx.Err() != nil {
			result.BPartners = append(result.BPartners, PartnerResult{PartnerUUID: snapshot.UUID, Status: StatusSkipped})
			continue
		}
		result.BPartners = append(result.BPartners, uc.syncOne(ctx, log, snapshot))
	}

	log.Info("bpartners sync finished",
		zap.Int("bpartners", len(req.BPartners)),
		zap.Int("synced", result.Count(StatusSynced)),
		zap.Int("rejected", result.Count(StatusRejected)),
		zap.Int("failed", result.Count(StatusFailed)),
		zap.Int("buffered", result.Count(StatusBuffered)),
		zap.Int("skipped", result.Count(StatusSkipped)),
		zap.Duration("took", time.Since(started)))
	return result, nil
}

func (uc *UseCase) syncOne(ctx context.Context, log *zap.Logger, snapshot *domain.SyncBPartner) PartnerResult {
	res := PartnerResult{PartnerUUID: snapshot.UUID}

	report, buffered, err := uc.syncBPartner(ctx, snapshot, nil)
	if err == nil {
		res.Status, res.Report = StatusSynced, report
		return res
	}

	var recErr *domain.RecordError
	switch {
	case errors.As(err, &recErr):
		res.Status, res.Error = StatusRejected, recErr
		log.Warn("bpartner snapshot rejected", zap.String("bpartner_uuid", snapshot.UUID), zap.Error(err))
		return res
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		res.Status = StatusRejected
		res.Error = domain.NewValidationError(domain.KindPartner, snapshot.UUID, "%s", err.Error())
		return res
	}

	res.Status = StatusFailed
	res.Error = &domain.RecordError{Kind: domain.KindPartner, UUID: snapshot.UUID, Code: errorCode(err), Message: err.Error()}
	log.Error("bpartner sync failed", zap.String("bpartner_uuid", snapshot.UUID), zap.Error(err))
	if buffered {
		res.Status = StatusBuffered
	}
	return res
}

// errorCode returns the code of the domain error in err's chain, or INTERNAL.
func errorCode(err error) domain.ErrorCode {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return domain.ErrCodeInternal
}

// SyncBPartner validates and reconciles a single snapshot under the partner
// lock and inside one unit of work. Once committed, any snapshot of the
// partner still waiting in the retry buffer is older and gets discarded.
func (uc *UseCase) SyncBPartner(ctx context.Context, snapshot *domain.SyncBPartner) (*reconcile.Report, error) {
	report, _, err := uc.syncBPartner(ctx, snapshot, nil)
	return report, err
}

// replayBPartner applies a buffered snapshot unless a newer sync of the
// partner committed or was buffered since. A superseded snapshot is
// reported with a nil Report.
func (uc *UseCase) replayBPartner(ctx context.Context, buffered *usecase.BufferedBPartner) (*reconcile.Report, error) {
	if buffered == nil || buffered.Snapshot == nil {
		return nil, domain.ErrInvalidPayload
	}
	report, _, err := uc.syncBPartner(ctx, buffered.Snapshot, buffered)
	return report, err
}

// syncBPartner does the work of SyncBPartner and replayBPartner. Buffering a
// failed direct sync and discarding a stale buffered snapshot both happen
// while the partner lock is held, so they are ordered with every other sync
// of the partner. buffered reports whether a failed snapshot was buffered.
func (uc *UseCase) syncBPartner(ctx context.Context, snapshot *domain.SyncBPartner, replay *usecase.BufferedBPartner) (report *reconcile.Report, buffered bool, err error) {
	if verr := snapshot.Validate(); verr != nil {
		return nil, false, verr
	}
	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("bpartner_uuid", snapshot.UUID))

	if uc.locker != nil {
		release, lockErr := uc.locker.Lock(ctx, snapshot.UUID)
		if lockErr != nil {
			return nil, false, lockErr
		}
		defer release()
	}

	if replay != nil && uc.buffer != nil {
		pending, pendErr := uc.buffer.PartnerSyncPending(ctx, snapshot.UUID, replay.BufferedAt)
		if pendErr != nil {
			return nil, false, pendErr
		}
		if !pending {
			log.Info("buffered bpartner snapshot superseded, skipping replay",
				zap.Time("buffered_at", replay.BufferedAt))
			return nil, false, nil
		}
	}

	err = uc.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var txErr error
		report, txErr = uc.reconciler.SyncPartner(ctx, stores, snapshot)
		return txErr
	})
	if err != nil {
		if replay == nil {
			buffered = uc.shouldBuffer(ctx, log, snapshot, err)
		}
		return nil, buffered, err
	}

	if replay == nil && uc.buffer != nil {
		if dErr := uc.buffer.DiscardPartnerSync(context.WithoutCancel(ctx), snapshot.UUID); dErr != nil {
			log.Error("failed to discard buffered bpartner snapshot", zap.Error(dErr))
		}
	}
	return report, false, nil
}

// SyncProducts upserts product master data in one unit of work.
func (uc *UseCase) SyncProducts(ctx context.Context, req *domain.SyncProductsRequest) (reconcile.Stats, error) {
	if req == nil {
		return reconcile.Stats{}, domain.ErrInvalidPayload
	}
	var stats reconcile.Stats
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var err error
		stats, err = uc.reconciler.SyncProducts(ctx, stores, req.Products)
		return err
	})
	if err != nil {
		return reconcile.Stats{}, err
	}
	logger.WithRequestID(ctx, uc.logger).Info("products synced",
		zap.Int("products", len(req.Products)),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated))
	return stats, nil
}

// shouldBuffer hands storage failures to the retry buffer. Reconciliation is
// idempotent, so replaying the snapshot later converges to the same state.
func (uc *UseCase) shouldBuffer(ctx context.Context, log *zap.Logger, snapshot *domain.SyncBPartner, cause error) bool {
	if uc.buffer == nil {
		return false
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return false
	}
	var recErr *domain.RecordError
	if errors.As(cause, &recErr) || domain.IsDomainError(cause, domain.ErrCodeConflict) || domain.IsDomainError(cause, domain.ErrCodeInvalid) {
		return false
	}
	if err := uc.buffer.BufferPartnerSync(context.WithoutCancel(ctx), snapshot); err != nil {
		log.Error("failed to buffer bpartner sync", zap.Error(err))
		return false
	}
	log.Warn("bpartner sync buffered")
	return true
}

// RegisterCommands exposes the replayable operations on d.
func (uc *UseCase) RegisterCommands(d *usecase.Dispatcher) {
	d.RegisterCommand(usecase.CommandSyncBPartner, func(ctx context.Context, payload interface{}) (interface{}, error) {
		buffered, ok := payload.(*usecase.BufferedBPartner)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.replayBPartner(ctx, buffered)
	})
}
