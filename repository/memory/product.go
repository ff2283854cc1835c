package memory

import (
	"context"
	"time"

	"github.com/fastygo/agentsync/domain"
)

type productRepository struct {
	db access
}

func (r *productRepository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	var out *domain.Product
	err := r.db.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *productRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Product, error) {
	var id int64
	err := r.db.read(func(st *state) error {
		var ok bool
		if id, ok = st.productIdx[uuid]; !ok {
			return domain.ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *productRepository) Create(_ context.Context, product *domain.Product) error {
	if product == nil || product.UUID == "" {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		if _, exists := st.productIdx[product.UUID]; exists {
			return domain.NewError(domain.ErrCodeConflict, "product uuid already exists")
		}
		now := time.Now()
		product.ID = st.nextID()
		product.CreatedAt, product.UpdatedAt = now, now
		st.products[product.ID] = *product
		st.productIdx[product.UUID] = product.ID
		return nil
	})
}

func (r *productRepository) Update(_ context.Context, product *domain.Product) error {
	if product == nil {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		current, ok := st.products[product.ID]
		if !ok {
			return domain.ErrProductNotFound
		}
		current.Name = product.Name
		current.PackingInfo = product.PackingInfo
		current.UpdatedAt = time.Now()
		st.products[current.ID] = current
		*product = current
		return nil
	})
}
