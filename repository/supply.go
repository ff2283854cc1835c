package repository

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

// SupplyRepository is append-only.
type SupplyRepository interface {
	GetByUUID(ctx context.Context, uuid string) (*domain.ProductSupply, error)
	Append(ctx context.Context, supply *domain.ProductSupply) error
	ListByContractLine(ctx context.Context, contractLineID int64) ([]domain.ProductSupply, error)
}
