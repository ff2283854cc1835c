package postgres

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type partnerRepository struct {
	db DBTX
}

// NewPartnerRepository returns a Postgres-backed implementation of PartnerRepository.
func NewPartnerRepository(db DBTX) repository.PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Partner, error) {
	const query = `
	SELECT id, uuid, name, sync_contracts, created_at, updated_at
	FROM bpartners
	WHERE uuid = $1
	`
	return scanPartner(r.db.QueryRow(ctx, query, uuid))
}

func (r *partnerRepository) Create(ctx context.Context, partner *domain.Partner) error {
	if partner == nil || partner.UUID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO bpartners (uuid, name, sync_contracts)
	VALUES ($1, $2, $3)
	RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, partner.UUID, partner.Name, partner.SyncContracts).
		Scan(&partner.ID, &partner.CreatedAt, &partner.UpdatedAt)
	return mapError(err, domain.ErrPartnerNotFound)
}

func (r *partnerRepository) Update(ctx context.Context, partner *domain.Partner) error {
	if partner == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE bpartners
	SET name = $2,
		sync_contracts = $3,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, partner.ID, partner.Name, partner.SyncContracts).Scan(&partner.UpdatedAt)
	return mapError(err, domain.ErrPartnerNotFound)
}

func scanPartner(row scanner) (*domain.Partner, error) {
	var p domain.Partner
	if err := row.Scan(&p.ID, &p.UUID, &p.Name, &p.SyncContracts, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapError(err, domain.ErrPartnerNotFound)
	}
	return &p, nil
}
