package reconcile

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// identityMap resolves agent identifiers to persisted records once per
// reconciliation pass. Records created during the pass are registered so a
// second mention of the same identifier never creates a duplicate.
type identityMap struct {
	stores repository.Stores

	partners  map[string]*domain.Partner
	products  map[string]*domain.Product
	contracts map[string]*domain.Contract
	lines     map[string]*domain.ContractLine

	// products already refreshed from a snapshot during this pass
	syncedProducts map[string]struct{}
}

func newIdentityMap(stores repository.Stores) *identityMap {
	return &identityMap{
		stores:         stores,
		partners:       make(map[string]*domain.Partner),
		products:       make(map[string]*domain.Product),
		contracts:      make(map[string]*domain.Contract),
		lines:          make(map[string]*domain.ContractLine),
		syncedProducts: make(map[string]struct{}),
	}
}

// lookup memoizes get, storing nil for identifiers that do not exist yet.
func lookup[T any](ctx context.Context, cache map[string]*T, uuid string, get func(context.Context, string) (*T, error)) (*T, bool, error) {
	if rec, ok := cache[uuid]; ok {
		return rec, rec != nil, nil
	}
	rec, err := get(ctx, uuid)
	if err != nil {
		if domain.IsNotFound(err) {
			cache[uuid] = nil
			return nil, false, nil
		}
		return nil, false, err
	}
	cache[uuid] = rec
	return rec, true, nil
}

func (m *identityMap) partner(ctx context.Context, uuid string) (*domain.Partner, bool, error) {
	return lookup(ctx, m.partners, uuid, m.stores.Partners.GetByUUID)
}

func (m *identityMap) product(ctx context.Context, uuid string) (*domain.Product, bool, error) {
	return lookup(ctx, m.products, uuid, m.stores.Products.GetByUUID)
}

func (m *identityMap) contract(ctx context.Context, uuid string) (*domain.Contract, bool, error) {
	return lookup(ctx, m.contracts, uuid, m.stores.Contracts.GetByUUID)
}

func (m *identityMap) line(ctx context.Context, uuid string) (*domain.ContractLine, bool, error) {
	return lookup(ctx, m.lines, uuid, m.stores.ContractLines.GetByUUID)
}

// activeContracts registers a listing and returns the canonical records,
// reusing instances already resolved in this pass.
func (m *identityMap) activeContracts(list []domain.Contract) []*domain.Contract {
	out := make([]*domain.Contract, 0, len(list))
	for i := range list {
		if cached := m.contracts[list[i].UUID]; cached != nil {
			out = append(out, cached)
			continue
		}
		m.contracts[list[i].UUID] = &list[i]
		out = append(out, &list[i])
	}
	return out
}

func (m *identityMap) activeLines(list []domain.ContractLine) []*domain.ContractLine {
	out := make([]*domain.ContractLine, 0, len(list))
	for i := range list {
		if cached := m.lines[list[i].UUID]; cached != nil {
			out = append(out, cached)
			continue
		}
		m.lines[list[i].UUID] = &list[i]
		out = append(out, &list[i])
	}
	return out
}
