package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type contractRepository struct {
	db access
}

func (r *contractRepository) GetByID(_ context.Context, id int64) (*domain.Contract, error) {
	var out *domain.Contract
	err := r.db.read(func(st *state) error {
		c, ok := st.contracts[id]
		if !ok {
			return domain.ErrContractNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *contractRepository) GetByUUID(_ context.Context, uuid string) (*domain.Contract, error) {
	var out *domain.Contract
	err := r.db.read(func(st *state) error {
		id, ok := st.contractIdx[uuid]
		if !ok {
			return domain.ErrContractNotFound
		}
		c := st.contracts[id]
		out = &c
		return nil
	})
	return out, err
}

func (r *contractRepository) List(_ context.Context, filter repository.ContractFilter) ([]domain.Contract, error) {
	var out []domain.Contract
	err := r.db.read(func(st *state) error {
		for _, c := range st.contracts {
			if filter.PartnerID != 0 && c.PartnerID != filter.PartnerID {
				continue
			}
			if c.Deleted && !filter.IncludeDeleted {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *contractRepository) Create(_ context.Context, contract *domain.Contract) error {
	if contract == nil || contract.UUID == "" {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		if _, exists := st.contractIdx[contract.UUID]; exists {
			return domain.NewError(domain.ErrCodeConflict, "contract uuid already exists")
		}
		if _, ok := st.partners[contract.PartnerID]; !ok {
			return domain.ErrPartnerNotFound
		}
		now := time.Now()
		contract.ID = st.nextID()
		contract.CreatedAt, contract.UpdatedAt = now, now
		st.contracts[contract.ID] = *contract
		st.contractIdx[contract.UUID] = contract.ID
		return nil
	})
}

func (r *contractRepository) Update(_ context.Context, contract *domain.Contract) error {
	if contract == nil {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		current, ok := st.contracts[contract.ID]
		if !ok {
			return domain.ErrContractNotFound
		}
		current.DateFrom = contract.DateFrom
		current.DateTo = contract.DateTo
		current.Deleted = contract.Deleted
		current.UpdatedAt = time.Now()
		st.contracts[current.ID] = current
		*contract = current
		return nil
	})
}

func (r *contractRepository) SetDeleted(_ context.Context, id int64, deleted bool) error {
	return r.db.write(func(st *state) error {
		current, ok := st.contracts[id]
		if !ok {
			return domain.ErrContractNotFound
		}
		current.Deleted = deleted
		current.UpdatedAt = time.Now()
		st.contracts[id] = current
		return nil
	})
}
