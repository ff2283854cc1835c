package domain

import "time"

// EntityKind names a synchronized entity type in reports and errors.
type EntityKind string

const (
	KindPartner      EntityKind = "bpartner"
	KindProduct      EntityKind = "product"
	KindContract     EntityKind = "contract"
	KindContractLine EntityKind = "contract_line"
	KindSupply       EntityKind = "product_supply"
)

// Partner is a business partner pushed by the procurement agent.
// Partners are never tombstoned; only their contracts are.
type Partner struct {
	ID            int64     `json:"id"`
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"`
	SyncContracts bool      `json:"sync_contracts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Product is master data referenced by contract lines and supplies.
type Product struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	PackingInfo string    `json:"packing_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
