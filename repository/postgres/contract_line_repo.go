package postgres

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type contractLineRepository struct {
	db DBTX
}

// NewContractLineRepository returns a Postgres-backed implementation of ContractLineRepository.
func NewContractLineRepository(db DBTX) repository.ContractLineRepository {
	return &contractLineRepository{db: db}
}

const contractLineColumns = `id, uuid, contract_id, product_id, deleted, created_at, updated_at`

func (r *contractLineRepository) GetByID(ctx context.Context, id int64) (*domain.ContractLine, error) {
	query := `SELECT ` + contractLineColumns + ` FROM contract_lines WHERE id = $1`
	return scanContractLine(r.db.QueryRow(ctx, query, id))
}

func (r *contractLineRepository) GetByUUID(ctx context.Context, uuid string) (*domain.ContractLine, error) {
	query := `SELECT ` + contractLineColumns + ` FROM contract_lines WHERE uuid = $1`
	return scanContractLine(r.db.QueryRow(ctx, query, uuid))
}

func (r *contractLineRepository) List(ctx context.Context, filter repository.ContractLineFilter) ([]domain.ContractLine, error) {
	query := `
	SELECT ` + contractLineColumns + `
	FROM contract_lines
	WHERE ($1::bigint = 0 OR contract_id = $1::bigint)
	  AND ($2 OR NOT deleted)
	ORDER BY id
	LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.ContractID, filter.IncludeDeleted, limitArg(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanContractLine)
}

func (r *contractLineRepository) Create(ctx context.Context, line *domain.ContractLine) error {
	if line == nil || line.UUID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO contract_lines (uuid, contract_id, product_id, deleted)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, line.UUID, line.ContractID, line.ProductID, line.Deleted).
		Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt)
	return mapError(err, domain.ErrContractLineNotFound)
}

func (r *contractLineRepository) Update(ctx context.Context, line *domain.ContractLine) error {
	if line == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE contract_lines
	SET product_id = $2,
		deleted = $3,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, line.ID, line.ProductID, line.Deleted).Scan(&line.UpdatedAt)
	return mapError(err, domain.ErrContractLineNotFound)
}

func (r *contractLineRepository) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	const query = `UPDATE contract_lines SET deleted = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, deleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContractLineNotFound
	}
	return nil
}

func scanContractLine(row scanner) (*domain.ContractLine, error) {
	var l domain.ContractLine
	if err := row.Scan(&l.ID, &l.UUID, &l.ContractID, &l.ProductID, &l.Deleted, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, mapError(err, domain.ErrContractLineNotFound)
	}
	return &l, nil
}
