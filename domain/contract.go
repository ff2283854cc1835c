package domain

import "time"

// Contract belongs to exactly one partner and owns its contract lines.
type Contract struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	PartnerID int64     `json:"bpartner_id"`
	DateFrom  time.Time `json:"date_from"`
	DateTo    time.Time `json:"date_to"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the contract shows up in default listings.
func (c *Contract) IsActive() bool {
	return c != nil && !c.Deleted
}

// Covers reports whether day falls inside the inclusive validity window.
func (c *Contract) Covers(day time.Time) bool {
	if c == nil {
		return false
	}
	d := TruncDay(day)
	return !d.Before(c.DateFrom) && !d.After(c.DateTo)
}

// ContractLine is a product position of a contract. Supplies reference it,
// so it is tombstoned instead of being removed.
type ContractLine struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	ContractID int64     `json:"contract_id"`
	ProductID  int64     `json:"product_id"`
	Deleted    bool      `json:"deleted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (l *ContractLine) IsActive() bool {
	return l != nil && !l.Deleted
}

// TruncDay drops the time of day, keeping calendar dates in UTC.
func TruncDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
