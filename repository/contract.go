package repository

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

// ContractFilter selects contracts. Tombstoned contracts are excluded unless
// IncludeDeleted is set; a zero Limit means no limit.
type ContractFilter struct {
	PartnerID      int64
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type ContractRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Contract, error)
	// GetByUUID returns the contract whatever its status or partner.
	GetByUUID(ctx context.Context, uuid string) (*domain.Contract, error)
	List(ctx context.Context, filter ContractFilter) ([]domain.Contract, error)
	Create(ctx context.Context, contract *domain.Contract) error
	Update(ctx context.Context, contract *domain.Contract) error
	SetDeleted(ctx context.Context, id int64, deleted bool) error
}
