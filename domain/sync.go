package domain

import (
	"strings"
	"time"
)

// SyncBPartnersRequest is the batch an agent pushes. Partners are reconciled
// in the order they appear.
type SyncBPartnersRequest struct {
	BPartners []SyncBPartner `json:"bpartners" yaml:"bpartners"`
}

// SyncBPartner is the full snapshot of one partner as the agent sees it.
type SyncBPartner struct {
	UUID          string         `json:"uuid" yaml:"uuid"`
	Name          string         `json:"name" yaml:"name"`
	SyncContracts bool           `json:"sync_contracts" yaml:"sync_contracts"`
	Contracts     []SyncContract `json:"contracts,omitempty" yaml:"contracts,omitempty"`
}

// SyncContract is nested in its partner. BPartnerUUID is optional; when the
// agent sends it, it must match the enclosing partner.
type SyncContract struct {
	UUID          string             `json:"uuid" yaml:"uuid"`
	BPartnerUUID  string             `json:"bpartner_uuid,omitempty" yaml:"bpartner_uuid,omitempty"`
	DateFrom      time.Time          `json:"date_from" yaml:"date_from"`
	DateTo        time.Time          `json:"date_to" yaml:"date_to"`
	ContractLines []SyncContractLine `json:"contract_lines,omitempty" yaml:"contract_lines,omitempty"`
}

type SyncContractLine struct {
	UUID    string       `json:"uuid" yaml:"uuid"`
	Product *SyncProduct `json:"product" yaml:"product"`
}

// SyncProduct is pass-through master data.
type SyncProduct struct {
	UUID        string `json:"uuid" yaml:"uuid"`
	Name        string `json:"name" yaml:"name"`
	PackingInfo string `json:"packing_info,omitempty" yaml:"packing_info,omitempty"`
}

type SyncProductsRequest struct {
	Products []SyncProduct `json:"products" yaml:"products"`
}

// Validate checks the snapshot before anything is written for the partner.
// It returns the first problem found.
func (p *SyncBPartner) Validate() *RecordError {
	if p == nil {
		return NewValidationError(KindPartner, "", "missing bpartner")
	}
	if strings.TrimSpace(p.UUID) == "" {
		return NewValidationError(KindPartner, "", "missing uuid")
	}

	contracts := make(map[string]struct{}, len(p.Contracts))
	lines := make(map[string]struct{})
	for i := range p.Contracts {
		c := &p.Contracts[i]
		if strings.TrimSpace(c.UUID) == "" {
			return NewValidationError(KindContract, "", "missing uuid in contract #%d of bpartner %s", i, p.UUID)
		}
		if _, dup := contracts[c.UUID]; dup {
			return NewValidationError(KindContract, c.UUID, "duplicate contract uuid")
		}
		contracts[c.UUID] = struct{}{}

		if c.BPartnerUUID != "" && c.BPartnerUUID != p.UUID {
			return NewValidationError(KindContract, c.UUID, "contract belongs to bpartner %s, not %s", c.BPartnerUUID, p.UUID)
		}
		if c.DateFrom.IsZero() || c.DateTo.IsZero() {
			return NewValidationError(KindContract, c.UUID, "missing validity window")
		}
		if TruncDay(c.DateTo).Before(TruncDay(c.DateFrom)) {
			return NewValidationError(KindContract, c.UUID, "date_to %s before date_from %s",
				c.DateTo.Format(time.DateOnly), c.DateFrom.Format(time.DateOnly))
		}

		for j := range c.ContractLines {
			l := &c.ContractLines[j]
			if strings.TrimSpace(l.UUID) == "" {
				return NewValidationError(KindContractLine, "", "missing uuid in line #%d of contract %s", j, c.UUID)
			}
			if _, dup := lines[l.UUID]; dup {
				return NewValidationError(KindContractLine, l.UUID, "duplicate contract line uuid")
			}
			lines[l.UUID] = struct{}{}
			if err := l.Product.Validate(); err != nil {
				return NewValidationError(KindContractLine, l.UUID, "invalid product: %s", err.Message)
			}
		}
	}
	return nil
}

func (p *SyncProduct) Validate() *RecordError {
	if p == nil {
		return NewValidationError(KindProduct, "", "missing product")
	}
	if strings.TrimSpace(p.UUID) == "" {
		return NewValidationError(KindProduct, "", "missing uuid")
	}
	return nil
}
