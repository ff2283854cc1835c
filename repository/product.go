package repository

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByUUID(ctx context.Context, uuid string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
}
