package usecase

import (
	"context"
	"time"

	"github.com/fastygo/agentsync/domain"
)

// Commands understood by the Dispatcher. Buffered operations are replayed
// through them.
const (
	CommandSyncBPartner = "bpartner.sync"
)

// BufferedBPartner is the payload of CommandSyncBPartner: a snapshot taken
// out of the buffer together with the time it was buffered.
type BufferedBPartner struct {
	Snapshot   *domain.SyncBPartner
	BufferedAt time.Time
}

// OperationBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferPartnerSync(ctx context.Context, snapshot *domain.SyncBPartner) error
	// DiscardPartnerSync drops the snapshot buffered for a partner, if any.
	DiscardPartnerSync(ctx context.Context, partnerUUID string) error
	// PartnerSyncPending reports whether the snapshot buffered at bufferedAt
	// is still the one waiting for the partner.
	PartnerSyncPending(ctx context.Context, partnerUUID string, bufferedAt time.Time) (bool, error)
}
