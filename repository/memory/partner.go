package memory

import (
	"context"
	"time"

	"github.com/fastygo/agentsync/domain"
)

type partnerRepository struct {
	db access
}

func (r *partnerRepository) GetByUUID(_ context.Context, uuid string) (*domain.Partner, error) {
	var out *domain.Partner
	err := r.db.read(func(st *state) error {
		id, ok := st.partnerIdx[uuid]
		if !ok {
			return domain.ErrPartnerNotFound
		}
		p := st.partners[id]
		out = &p
		return nil
	})
	return out, err
}

func (r *partnerRepository) Create(_ context.Context, partner *domain.Partner) error {
	if partner == nil || partner.UUID == "" {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		if _, exists := st.partnerIdx[partner.UUID]; exists {
			return domain.NewError(domain.ErrCodeConflict, "bpartner uuid already exists")
		}
		now := time.Now()
		partner.ID = st.nextID()
		partner.CreatedAt, partner.UpdatedAt = now, now
		st.partners[partner.ID] = *partner
		st.partnerIdx[partner.UUID] = partner.ID
		return nil
	})
}

func (r *partnerRepository) Update(_ context.Context, partner *domain.Partner) error {
	if partner == nil {
		return domain.ErrInvalidPayload
	}
	return r.db.write(func(st *state) error {
		current, ok := st.partners[partner.ID]
		if !ok {
			return domain.ErrPartnerNotFound
		}
		current.Name = partner.Name
		current.SyncContracts = partner.SyncContracts
		current.UpdatedAt = time.Now()
		st.partners[current.ID] = current
		*partner = current
		return nil
	})
}
