package postgres

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type supplyRepository struct {
	db DBTX
}

// NewSupplyRepository returns a Postgres-backed implementation of SupplyRepository.
func NewSupplyRepository(db DBTX) repository.SupplyRepository {
	return &supplyRepository{db: db}
}

const supplyColumns = `id, uuid, bpartner_id, product_id, contract_line_id, day, qty, created_at`

func (r *supplyRepository) GetByUUID(ctx context.Context, uuid string) (*domain.ProductSupply, error) {
	query := `SELECT ` + supplyColumns + ` FROM product_supplies WHERE uuid = $1`
	return scanSupply(r.db.QueryRow(ctx, query, uuid))
}

func (r *supplyRepository) Append(ctx context.Context, supply *domain.ProductSupply) error {
	if supply == nil || supply.UUID == "" {
		return domain.ErrInvalidPayload
	}

	// qty is decoded by shopspring/decimal through its Valuer/Scanner pair.
	const query = `
	INSERT INTO product_supplies (uuid, bpartner_id, product_id, contract_line_id, day, qty)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		supply.UUID,
		supply.PartnerID,
		supply.ProductID,
		supply.ContractLineID,
		domain.TruncDay(supply.Day),
		supply.Qty,
	).Scan(&supply.ID, &supply.CreatedAt)
	return mapError(err, domain.ErrSupplyNotFound)
}

func (r *supplyRepository) ListByContractLine(ctx context.Context, contractLineID int64) ([]domain.ProductSupply, error) {
	query := `
	SELECT ` + supplyColumns + `
	FROM product_supplies
	WHERE contract_line_id = $1
	ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, contractLineID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSupply)
}

func scanSupply(row scanner) (*domain.ProductSupply, error) {
	var s domain.ProductSupply
	if err := row.Scan(
		&s.ID,
		&s.UUID,
		&s.PartnerID,
		&s.ProductID,
		&s.ContractLineID,
		&s.Day,
		&s.Qty,
		&s.CreatedAt,
	); err != nil {
		return nil, mapError(err, domain.ErrSupplyNotFound)
	}
	return &s, nil
}
