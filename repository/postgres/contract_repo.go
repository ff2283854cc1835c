package postgres

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type contractRepository struct {
	db DBTX
}

// NewContractRepository returns a Postgres-backed implementation of ContractRepository.
func NewContractRepository(db DBTX) repository.ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `id, uuid, bpartner_id, date_from, date_to, deleted, created_at, updated_at`

func (r *contractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.db.QueryRow(ctx, query, id))
}

func (r *contractRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE uuid = $1`
	return scanContract(r.db.QueryRow(ctx, query, uuid))
}

func (r *contractRepository) List(ctx context.Context, filter repository.ContractFilter) ([]domain.Contract, error) {
	query := `
	SELECT ` + contractColumns + `
	FROM contracts
	WHERE ($1::bigint = 0 OR bpartner_id = $1::bigint)
	  AND ($2 OR NOT deleted)
	ORDER BY id
	LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.PartnerID, filter.IncludeDeleted, limitArg(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanContract)
}

func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	if contract == nil || contract.UUID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO contracts (uuid, bpartner_id, date_from, date_to, deleted)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		contract.UUID,
		contract.PartnerID,
		domain.TruncDay(contract.DateFrom),
		domain.TruncDay(contract.DateTo),
		contract.Deleted,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt)
	return mapError(err, domain.ErrContractNotFound)
}

func (r *contractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	if contract == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE contracts
	SET date_from = $2,
		date_to = $3,
		deleted = $4,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		contract.ID,
		domain.TruncDay(contract.DateFrom),
		domain.TruncDay(contract.DateTo),
		contract.Deleted,
	).Scan(&contract.UpdatedAt)
	return mapError(err, domain.ErrContractNotFound)
}

func (r *contractRepository) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	const query = `UPDATE contracts SET deleted = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, deleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContractNotFound
	}
	return nil
}

func scanContract(row scanner) (*domain.Contract, error) {
	var c domain.Contract
	if err := row.Scan(
		&c.ID,
		&c.UUID,
		&c.PartnerID,
		&c.DateFrom,
		&c.DateTo,
		&c.Deleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, mapError(err, domain.ErrContractNotFound)
	}
	return &c, nil
}
