package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSupply is a quantity a partner reported for one day. Records are
// append-only and may point at a contract line that was later tombstoned.
type ProductSupply struct {
	ID             int64           `json:"id"`
	UUID           string          `json:"uuid"`
	PartnerID      int64           `json:"bpartner_id"`
	ProductID      int64           `json:"product_id"`
	ContractLineID *int64          `json:"contract_line_id,omitempty"`
	Day            time.Time       `json:"day"`
	Qty            decimal.Decimal `json:"qty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SupplyReport is what a partner submits to record a supplied quantity.
// ContractLineUUID is optional: supplies may be reported outside a contract.
type SupplyReport struct {
	UUID             string          `json:"uuid,omitempty"`
	BPartnerUUID     string          `json:"bpartner_uuid"`
	ProductUUID      string          `json:"product_uuid"`
	ContractLineUUID string          `json:"contract_line_uuid,omitempty"`
	Day              time.Time       `json:"day"`
	Qty              decimal.Decimal `json:"qty"`
}

func (r *SupplyReport) Validate() *RecordError {
	switch {
	case r.BPartnerUUID == "":
		return NewValidationError(KindSupply, r.UUID, "missing bpartner uuid")
	case r.ProductUUID == "":
		return NewValidationError(KindSupply, r.UUID, "missing product uuid")
	case r.Day.IsZero():
		return NewValidationError(KindSupply, r.UUID, "missing day")
	case r.Qty.IsNegative():
		return NewValidationError(KindSupply, r.UUID, "negative qty %s", r.Qty)
	}
	return nil
}
