package repository

import (
	"context"

	"github.com/fastygo/agentsync/domain"
)

type PartnerRepository interface {
	GetByUUID(ctx context.Context, uuid string) (*domain.Partner, error)
	Create(ctx context.Context, partner *domain.Partner) error
	Update(ctx context.Context, partner *domain.Partner) error
}
