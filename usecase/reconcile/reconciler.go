// Package reconcile brings persisted partners, contracts and contract lines in
// line with the snapshot an agent pushes for one partner.
//
// Nothing is ever physically deleted: records missing from a snapshot are
// tombstoned, which hides them from active listings while keeping them
// resolvable by UUID for the supplies that reference them. A tombstoned
// record that shows up again is resurrected in place.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// Reconciler is stateless; callers provide the stores of an open unit of
// work and guarantee that no other reconciliation of the same partner runs
// concurrently.
type Reconciler struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// pass holds the state of one partner reconciliation.
type pass struct {
	stores repository.Stores
	ids    *identityMap
	report *Report
	logger *zap.Logger
}

// SyncPartner reconciles one partner snapshot. The snapshot must have been
// validated. Identity conflicts are reported, not returned; any returned
// error means the unit of work has to be rolled back.
func (r *Reconciler) SyncPartner(ctx context.Context, stores repository.Stores, snapshot *domain.SyncBPartner) (*Report, error) {
	p := &pass{
		stores: stores,
		ids:    newIdentityMap(stores),
		report: newReport(snapshot.UUID),
		logger: r.logger.With(zap.String("bpartner_uuid", snapshot.UUID)),
	}

	partner, err := p.syncPartner(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	if !partner.SyncContracts {
		p.logger.Debug("contract sync disabled for bpartner, contracts left untouched")
		return p.report, nil
	}

	if err := p.syncContracts(ctx, partner, snapshot.Contracts); err != nil {
		return nil, err
	}

	if len(p.report.Rejected) > 0 {
		p.logger.Warn("bpartner sync rejected records", zap.Int("rejected", len(p.report.Rejected)))
	}
	return p.report, nil
}

func (p *pass) syncPartner(ctx context.Context, snapshot *domain.SyncBPartner) (*domain.Partner, error) {
	partner, found, err := p.ids.partner(ctx, snapshot.UUID)
	if err != nil {
		return nil, err
	}
	stats := p.report.count(domain.KindPartner)

	if !found {
		partner = &domain.Partner{
			UUID:          snapshot.UUID,
			Name:          snapshot.Name,
			SyncContracts: snapshot.SyncContracts,
		}
		if err := p.stores.Partners.Create(ctx, partner); err != nil {
			return nil, err
		}
		p.ids.partners[partner.UUID] = partner
		stats.Created++
		return partner, nil
	}

	if partner.Name == snapshot.Name && partner.SyncContracts == snapshot.SyncContracts {
		stats.Unchanged++
		return partner, nil
	}
	partner.Name = snapshot.Name
	partner.SyncContracts = snapshot.SyncContracts
	if err := p.stores.Partners.Update(ctx, partner); err != nil {
		return nil, err
	}
	stats.Updated++
	return partner, nil
}

func (p *pass) syncContracts(ctx context.Context, partner *domain.Partner, incoming []domain.SyncContract) error {
	current, err := p.stores.Contracts.List(ctx, repository.ContractFilter{PartnerID: partner.ID})
	if err != nil {
		return err
	}

	return Apply(ctx, Diff[*domain.SyncContract, *domain.Contract]{
		Kind:      domain.KindContract,
		Incoming:  refs(incoming),
		Active:    p.ids.activeContracts(current),
		Key:       func(in *domain.SyncContract) string { return in.UUID },
		RecordKey: func(c *domain.Contract) string { return c.UUID },
		Resolve:   p.ids.contract,
		InScope:   func(c *domain.Contract) bool { return c.PartnerID == partner.ID },
		Create: func(ctx context.Context, in *domain.SyncContract) (*domain.Contract, error) {
			c := &domain.Contract{
				UUID:      in.UUID,
				PartnerID: partner.ID,
				DateFrom:  domain.TruncDay(in.DateFrom),
				DateTo:    domain.TruncDay(in.DateTo),
			}
			if err := p.stores.Contracts.Create(ctx, c); err != nil {
				return nil, err
			}
			p.ids.contracts[c.UUID] = c
			return c, nil
		},
		Update:    p.updateContract,
		Tombstone: p.tombstoneContract,
		Descend: func(ctx context.Context, c *domain.Contract, in *domain.SyncContract) error {
			return p.syncLines(ctx, c, in.ContractLines)
		},
	}, p.report)
}

func (p *pass) updateContract(ctx context.Context, c *domain.Contract, in *domain.SyncContract) (bool, error) {
	from, to := domain.TruncDay(in.DateFrom), domain.TruncDay(in.DateTo)
	if !c.Deleted && c.DateFrom.Equal(from) && c.DateTo.Equal(to) {
		return false, nil
	}
	c.DateFrom, c.DateTo, c.Deleted = from, to, false
	if err := p.stores.Contracts.Update(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

// tombstoneContract hides the contract and every line still active under it.
func (p *pass) tombstoneContract(ctx context.Context, c *domain.Contract) error {
	lines, err := p.stores.ContractLines.List(ctx, repository.ContractLineFilter{ContractID: c.ID})
	if err != nil {
		return err
	}
	for _, l := range p.ids.activeLines(lines) {
		if err := p.tombstoneLine(ctx, l); err != nil {
			return err
		}
		p.report.count(domain.KindContractLine).Tombstoned++
	}

	if err := p.stores.Contracts.SetDeleted(ctx, c.ID, true); err != nil {
		return err
	}
	c.Deleted = true
	p.logger.Debug("contract tombstoned", zap.String("contract_uuid", c.UUID), zap.Int("lines", len(lines)))
	return nil
}

func (p *pass) syncLines(ctx context.Context, c *domain.Contract, incoming []domain.SyncContractLine) error {
	current, err := p.stores.ContractLines.List(ctx, repository.ContractLineFilter{ContractID: c.ID})
	if err != nil {
		return err
	}

	return Apply(ctx, Diff[*domain.SyncContractLine, *domain.ContractLine]{
		Kind:      domain.KindContractLine,
		Incoming:  refs(incoming),
		Active:    p.ids.activeLines(current),
		Key:       func(in *domain.SyncContractLine) string { return in.UUID },
		RecordKey: func(l *domain.ContractLine) string { return l.UUID },
		Resolve:   p.ids.line,
		InScope:   func(l *domain.ContractLine) bool { return l.ContractID == c.ID },
		Create: func(ctx context.Context, in *domain.SyncContractLine) (*domain.ContractLine, error) {
			product, err := p.syncProduct(ctx, in.Product)
			if err != nil {
				return nil, err
			}
			l := &domain.ContractLine{UUID: in.UUID, ContractID: c.ID, ProductID: product.ID}
			if err := p.stores.ContractLines.Create(ctx, l); err != nil {
				return nil, err
			}
			p.ids.lines[l.UUID] = l
			return l, nil
		},
		Update: func(ctx context.Context, l *domain.ContractLine, in *domain.SyncContractLine) (bool, error) {
			product, err := p.syncProduct(ctx, in.Product)
			if err != nil {
				return false, err
			}
			if !l.Deleted && l.ProductID == product.ID {
				return false, nil
			}
			l.ProductID, l.Deleted = product.ID, false
			if err := p.stores.ContractLines.Update(ctx, l); err != nil {
				return false, err
			}
			return true, nil
		},
		Tombstone: p.tombstoneLine,
	}, p.report)
}

func (p *pass) tombstoneLine(ctx context.Context, l *domain.ContractLine) error {
	if err := p.stores.ContractLines.SetDeleted(ctx, l.ID, true); err != nil {
		return err
	}
	l.Deleted = true
	return nil
}

func refs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
