package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/repository"
)

// UnitOfWork runs each WithinTx callback in one read-committed transaction.
// Partner serialization is the job of the PartnerLocker; the row locks taken
// by the updates only protect against writers that bypass it.
type UnitOfWork struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewUnitOfWork(pool *pgxpool.Pool, logger *zap.Logger) *UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{pool: pool, logger: logger}
}

// Stores returns repositories bound to the pool, outside any transaction.
func (u *UnitOfWork) Stores() repository.Stores {
	return storesOn(u.pool)
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		// no-op once committed
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			u.logger.Warn("transaction rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(ctx, storesOn(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func storesOn(db DBTX) repository.Stores {
	return repository.Stores{
		Partners:      NewPartnerRepository(db),
		Products:      NewProductRepository(db),
		Contracts:     NewContractRepository(db),
		ContractLines: NewContractLineRepository(db),
		Supplies:      NewSupplyRepository(db),
	}
}
