package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fastygo/agentsync/domain"
)

type supplyRepository struct {
	db access
}

func (r *supplyRepository) GetByUUID(_ context.Context, uuid string) (*domain.ProductSupply, error) {
	var out *domain.ProductSupply
	err := r.db.read(func(st *state) error {
		id, ok := st.supplyIdx[uuid]
		if !ok {
			return domain.ErrSupplyNotFound
		}
		s := st.supplies[id]
		out = &s
		return nil
	})
	return out, err
}

func (r *supplyRepository) Append(_ context.Context, supply *domain.ProductSupply) error {
	if supply == nil || supply.UUID == "" {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		if _, exists := st.supplyIdx[supply.UUID]; exists {
			return domain.NewError(domain.ErrCodeConflict, "product supply uuid already exists")
		}
		if supply.ContractLineID != nil {
			if _, ok := st.lines[*supply.ContractLineID]; !ok {
				return domain.ErrContractLineNotFound
			}
			lineID := *supply.ContractLineID
			supply.ContractLineID = &lineID
		}
		supply.ID = st.nextID()
		supply.CreatedAt = time.Now()
		st.supplies[supply.ID] = *supply
		st.supplyIdx[supply.UUID] = supply.ID
		return nil
	})
}

func (r *supplyRepository) ListByContractLine(_ context.Context, contractLineID int64) ([]domain.ProductSupply, error) {
	var out []domain.ProductSupply
	err := r.db.read(func(st *state) error {
		for _, s := range st.supplies {
			if s.ContractLineID != nil && *s.ContractLineID == contractLineID {
				out = append(out, s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}
