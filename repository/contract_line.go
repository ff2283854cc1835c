package repository

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

// ContractLineFilter selects contract lines. A zero ContractID lists lines of
// every contract.
type ContractLineFilter struct {
	ContractID     int64
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type ContractLineRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ContractLine, error)
	// GetByUUID returns the line whatever its status or contract.
	GetByUUID(ctx context.Context, uuid string) (*domain.ContractLine, error)
	List(ctx context.Context, filter ContractLineFilter) ([]domain.ContractLine, error)
	Create(ctx context.Context, line *domain.ContractLine) error
	Update(ctx context.Context, line *domain.ContractLine) error
	SetDeleted(ctx context.Context, id int64, deleted bool) error
}
