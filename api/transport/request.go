package transport

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastygo/agentsync/domain"
)

// SupplyRequest is the wire form of a supply report. Day accepts a plain
// date or an RFC 3339 timestamp; qty accepts a JSON number or string.
type SupplyRequest struct {
	UUID             string          `json:"uuid"`
	BPartnerUUID     string          `json:"bpartner_uuid"`
	ProductUUID      string          `json:"product_uuid"`
	ContractLineUUID string          `json:"contract_line_uuid"`
	Day              string          `json:"day"`
	Qty              decimal.Decimal `json:"qty"`
}

func (r SupplyRequest) ToReport() (domain.SupplyReport, error) {
	day, err := ParseDay(r.Day)
	if err != nil {
		return domain.SupplyReport{}, domain.WrapError(domain.ErrCodeInvalid, "invalid day", err)
	}
	return domain.SupplyReport{
		UUID:             strings.TrimSpace(r.UUID),
		BPartnerUUID:     strings.TrimSpace(r.BPartnerUUID),
		ProductUUID:      strings.TrimSpace(r.ProductUUID),
		ContractLineUUID: strings.TrimSpace(r.ContractLineUUID),
		Day:              day,
		Qty:              r.Qty,
	}, nil
}

// ParseDay reads a calendar date. An empty value yields the zero time.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return domain.TruncDay(t), nil
}
