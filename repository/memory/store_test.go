package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

func seedContract(t *testing.T, stores repository.Stores) (*domain.Partner, *domain.Contract, *domain.Product) {
	t.Helper()
	ctx := context.Background()

	partner := &domain.Partner{UUID: "bp-1", Name: "Test", SyncContracts: true}
	require.NoError(t, stores.Partners.Create(ctx, partner))

	product := &domain.Product{UUID: "p-1", Name: "P1", PackingInfo: "P1 packing info"}
	require.NoError(t, stores.Products.Create(ctx, product))

	contract := &domain.Contract{
		UUID:      "c-1",
		PartnerID: partner.ID,
		DateFrom:  time.Date(2015, 4, 1, 0, 0, 0, 0, time.UTC),
		DateTo:    time.Date(2016, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, stores.Contracts.Create(ctx, contract))
	return partner, contract, product
}

func TestTombstonedLinesStayResolvable(t *testing.T) {
	ctx := context.Background()
	store := New()
	stores := store.Stores()
	_, contract, product := seedContract(t, stores)

	line := &domain.ContractLine{UUID: "l-1", ContractID: contract.ID, ProductID: product.ID}
	require.NoError(t, stores.ContractLines.Create(ctx, line))
	require.NoError(t, stores.ContractLines.SetDeleted(ctx, line.ID, true))

	active, err := stores.ContractLines.List(ctx, repository.ContractLineFilter{ContractID: contract.ID})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := stores.ContractLines.List(ctx, repository.ContractLineFilter{ContractID: contract.ID, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	found, err := stores.ContractLines.GetByUUID(ctx, "l-1")
	require.NoError(t, err)
	assert.True(t, found.Deleted)
	assert.Equal(t, line.ID, found.ID)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		seedContract(t, stores)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Stores().Partners.GetByUUID(ctx, "bp-1")
	assert.True(t, domain.IsNotFound(err))
	_, err = store.Stores().Contracts.GetByUUID(ctx, "c-1")
	assert.True(t, domain.IsNotFound(err))
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		seedContract(t, stores)
		return nil
	}))

	partner, err := store.Stores().Partners.GetByUUID(ctx, "bp-1")
	require.NoError(t, err)
	contracts, err := store.Stores().Contracts.List(ctx, repository.ContractFilter{PartnerID: partner.ID})
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "c-1", contracts[0].UUID)
}

func TestCreateRejectsDuplicateUUID(t *testing.T) {
	ctx := context.Background()
	stores := New().Stores()
	require.NoError(t, stores.Products.Create(ctx, &domain.Product{UUID: "p-1"}))

	err := stores.Products.Create(ctx, &domain.Product{UUID: "p-1"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
}

func TestSupplyAppendAndList(t *testing.T) {
	ctx := context.Background()
	stores := New().Stores()
	partner, contract, product := seedContract(t, stores)

	line := &domain.ContractLine{UUID: "l-1", ContractID: contract.ID, ProductID: product.ID}
	require.NoError(t, stores.ContractLines.Create(ctx, line))

	supply := &domain.ProductSupply{
		UUID:           "s-1",
		PartnerID:      partner.ID,
		ProductID:      product.ID,
		ContractLineID: &line.ID,
		Day:            time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, stores.Supplies.Append(ctx, supply))

	missing := int64(999)
	err := stores.Supplies.Append(ctx, &domain.ProductSupply{UUID: "s-2", ContractLineID: &missing})
	assert.True(t, domain.IsNotFound(err))

	supplies, err := stores.Supplies.ListByContractLine(ctx, line.ID)
	require.NoError(t, err)
	require.Len(t, supplies, 1)
	assert.Equal(t, "s-1", supplies[0].UUID)
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	stores := New().Stores()
	_, contract, product := seedContract(t, stores)
	for _, id := range []string{"l-1", "l-2", "l-3"} {
		require.NoError(t, stores.ContractLines.Create(ctx, &domain.ContractLine{UUID: id, ContractID: contract.ID, ProductID: product.ID}))
	}

	lines, err := stores.ContractLines.List(ctx, repository.ContractLineFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "l-2", lines[0].UUID)
	assert.Equal(t, "l-3", lines[1].UUID)
}

func TestLockerSerializesSamePartner(t *testing.T) {
	locker := NewLocker()
	ctx := context.Background()

	release, err := locker.Lock(ctx, "bp-1")
	require.NoError(t, err)

	other, err := locker.Lock(ctx, "bp-2")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "bp-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	release()
	release2, err := locker.Lock(ctx, "bp-1")
	require.NoError(t, err)
	release2()
	assert.Empty(t, locker.locks)
}
