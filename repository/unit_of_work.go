package repository

import "context"

// Stores groups the repositories that take part in one unit of work.
type Stores struct {
	Partners      PartnerRepository
	Products      ProductRepository
	Contracts     ContractRepository
	ContractLines ContractLineRepository
	Supplies      SupplyRepository
}

// UnitOfWork runs fn atomically. If fn returns an error every write made
// through the provided Stores is rolled back.
type UnitOfWork interface {
	Stores() Stores
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// PartnerLocker serializes reconciliations of the same partner. The returned
// release function must be called exactly once.
type PartnerLocker interface {
	Lock(ctx context.Context, partnerUUID string) (release func(), err error)
}
