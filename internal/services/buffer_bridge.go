package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/internal/infrastructure/buffer"
	"github.com/fastygo/agentsync/usecase"
)

type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func partnerItemID(partnerUUID string) string {
	return "bpartner:" + partnerUUID
}

func (b *BufferBridge) BufferPartnerSync(ctx context.Context, snapshot *domain.SyncBPartner) error {
	if b.processor == nil || snapshot == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	item := buffer.Item{
		ID:          partnerItemID(snapshot.UUID),
		PartnerUUID: snapshot.UUID,
		Entity:      buffer.EntityBPartner,
		Operation:   buffer.OperationSync,
		Data:        payload,
		Priority:    3,
		Timestamp:   now,
		ReceivedAt:  now,
	}
	return b.processor.Enqueue(ctx, item)
}

func (b *BufferBridge) DiscardPartnerSync(ctx context.Context, partnerUUID string) error {
	if b.processor == nil {
		return nil
	}
	return b.processor.Discard(ctx, partnerItemID(partnerUUID))
}

func (b *BufferBridge) PartnerSyncPending(ctx context.Context, partnerUUID string, bufferedAt time.Time) (bool, error) {
	if b.processor == nil {
		return false, nil
	}
	return b.processor.Pending(ctx, partnerItemID(partnerUUID), bufferedAt)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
