package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityBPartner = "bpartner"

	OperationSync = "sync"
)

// Item is a reconciliation that failed on storage and should be replayed.
type Item struct {
	ID          string          `json:"id"`
	PartnerUUID string          `json:"bpartner_uuid"`
	Entity      string          `json:"entity"`
	Operation   string          `json:"operation"`
	Data        json.RawMessage `json:"data"`
	Priority    int             `json:"priority"`
	Retries     int             `json:"retries"`
	LastError   string          `json:"last_error,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	// ReceivedAt is when the operation was first buffered. Requeue keeps it.
	ReceivedAt time.Time `json:"received_at"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
	if i.ReceivedAt.IsZero() {
		i.ReceivedAt = i.Timestamp
	}
}
