package postgres

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type productRepository struct {
	db DBTX
}

// NewProductRepository returns a Postgres-backed implementation of ProductRepository.
func NewProductRepository(db DBTX) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, uuid, name, packing_info, created_at, updated_at`

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *productRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE uuid = $1`
	return scanProduct(r.db.QueryRow(ctx, query, uuid))
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product == nil || product.UUID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO products (uuid, name, packing_info)
	VALUES ($1, $2, $3)
	RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.UUID, product.Name, product.PackingInfo).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	return mapError(err, domain.ErrProductNotFound)
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if product == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE products
	SET name = $2,
		packing_info = $3,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, product.ID, product.Name, product.PackingInfo).Scan(&product.UpdatedAt)
	return mapError(err, domain.ErrProductNotFound)
}

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.UUID, &p.Name, &p.PackingInfo, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapError(err, domain.ErrProductNotFound)
	}
	return &p, nil
}
