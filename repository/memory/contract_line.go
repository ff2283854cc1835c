package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type contractLineRepository struct {
	db access
}

func (r *contractLineRepository) GetByID(_ context.Context, id int64) (*domain.ContractLine, error) {
	var out *domain.ContractLine
	err := r.db.read(func(st *state) error {
		l, ok := st.lines[id]
		if !ok {
			return domain.ErrContractLineNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *contractLineRepository) GetByUUID(_ context.Context, uuid string) (*domain.ContractLine, error) {
	var out *domain.ContractLine
	err := r.db.read(func(st *state) error {
		id, ok := st.lineIdx[uuid]
		if !ok {
			return domain.ErrContractLineNotFound
		}
		l := st.lines[id]
		out = &l
		return nil
	})
	return out, err
}

func (r *contractLineRepository) List(_ context.Context, filter repository.ContractLineFilter) ([]domain.ContractLine, error) {
	var out []domain.ContractLine
	err := r.db.read(func(st *state) error {
		for _, l := range st.lines {
			if filter.ContractID != 0 && l.ContractID != filter.ContractID {
				continue
			}
			if l.Deleted && !filter.IncludeDeleted {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Limit, filter.Offset), err
}

func (r *contractLineRepository) Create(_ context.Context, line *domain.ContractLine) error {
	if line == nil || line.UUID == "" {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		if _, exists := st.lineIdx[line.UUID]; exists {
			return domain.NewError(domain.ErrCodeConflict, "contract line uuid already exists")
		}
		if _, ok := st.contracts[line.ContractID]; !ok {
			return domain.ErrContractNotFound
		}
		if _, ok := st.products[line.ProductID]; !ok {
			return domain.ErrProductNotFound
		}
		now := time.Now()
		line.ID = st.nextID()
		line.CreatedAt, line.UpdatedAt = now, now
		st.lines[line.ID] = *line
		st.lineIdx[line.UUID] = line.ID
		return nil
	})
}

func (r *contractLineRepository) Update(_ context.Context, line *domain.ContractLine) error {
	if line == nil {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		current, ok := st.lines[line.ID]
		if !ok {
			return domain.ErrContractLineNotFound
		}
		if _, ok := st.products[line.ProductID]; !ok {
			return domain.ErrProductNotFound
		}
		current.ProductID = line.ProductID
		current.Deleted = line.Deleted
		current.UpdatedAt = time.Now()
		st.lines[current.ID] = current
		*line = current
		return nil
	})
}

func (r *contractLineRepository) SetDeleted(_ context.Context, id int64, deleted bool) error {
	return r.db.write(func(st *state) error {
		current, ok := st.lines[id]
		if !ok {
			return domain.ErrContractLineNotFound
		}
		current.Deleted = deleted
		current.UpdatedAt = time.Now()
		st.lines[id] = current
		return nil
	})
}
