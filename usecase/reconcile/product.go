package reconcile

import (
	"context"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// SyncProducts upserts product master data. Products are never tombstoned:
// the agent distributes them one way and lines keep referencing them.
func (r *Reconciler) SyncProducts(ctx context.Context, stores repository.Stores, products []domain.SyncProduct) (Stats, error) {
	p := &pass{
		stores: stores,
		ids:    newIdentityMap(stores),
		report: newReport(""),
		logger: r.logger,
	}
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return Stats{}, err
		}
		if _, err := p.syncProduct(ctx, &products[i]); err != nil {
			return Stats{}, err
		}
	}
	return p.report.For(domain.KindProduct), nil
}

// syncProduct creates or refreshes the product carried by a snapshot.
// Each product is written at most once per pass.
func (p *pass) syncProduct(ctx context.Context, in *domain.SyncProduct) (*domain.Product, error) {
	product, found, err := p.ids.product(ctx, in.UUID)
	if err != nil {
		return nil, err
	}
	if _, done := p.ids.syncedProducts[in.UUID]; done {
		return product, nil
	}
	p.ids.syncedProducts[in.UUID] = struct{}{}
	stats := p.report.count(domain.KindProduct)

	if !found {
		product = &domain.Product{UUID: in.UUID, Name: in.Name, PackingInfo: in.PackingInfo}
		if err := p.stores.Products.Create(ctx, product); err != nil {
			return nil, err
		}
		p.ids.products[product.UUID] = product
		stats.Created++
		return product, nil
	}

	if product.Name == in.Name && product.PackingInfo == in.PackingInfo {
		stats.Unchanged++
		return product, nil
	}
	product.Name, product.PackingInfo = in.Name, in.PackingInfo
	if err := p.stores.Products.Update(ctx, product); err != nil {
		return nil, err
	}
	stats.Updated++
	return product, nil
}
