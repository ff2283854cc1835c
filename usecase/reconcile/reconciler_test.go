package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
	"github.com/fastygo/agentsync/repository/memory"
	"github.com/fastygo/agentsync/usecase/reconcile"
)

var (
	contractDateFrom = time.Date(2015, time.April, 1, 0, 0, 0, 0, time.UTC)
	contractDateTo   = time.Date(2016, time.March, 31, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	t     *testing.T
	store *memory.Store
	rec   *reconcile.Reconciler
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, store: memory.New(), rec: reconcile.New(nil)}
}

func (f *fixture) sync(snapshot domain.SyncBPartner) *reconcile.Report {
	f.t.Helper()
	require.Nil(f.t, snapshot.Validate())

	var report *reconcile.Report
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, stores repository.Stores) error {
		var err error
		report, err = f.rec.SyncPartner(ctx, stores, &snapshot)
		return err
	})
	require.NoError(f.t, err)
	return report
}

func (f *fixture) stores() repository.Stores {
	return f.store.Stores()
}

func (f *fixture) activeLines(contractUUID string) []string {
	f.t.Helper()
	ctx := context.Background()
	contract, err := f.stores().Contracts.GetByUUID(ctx, contractUUID)
	require.NoError(f.t, err)
	lines, err := f.stores().ContractLines.List(ctx, repository.ContractLineFilter{ContractID: contract.ID})
	require.NoError(f.t, err)
	return lineUUIDs(lines)
}

func (f *fixture) allActiveLines() []string {
	f.t.Helper()
	lines, err := f.stores().ContractLines.List(context.Background(), repository.ContractLineFilter{})
	require.NoError(f.t, err)
	return lineUUIDs(lines)
}

func (f *fixture) activeContracts(partnerUUID string) []string {
	f.t.Helper()
	ctx := context.Background()
	partner, err := f.stores().Partners.GetByUUID(ctx, partnerUUID)
	require.NoError(f.t, err)
	contracts, err := f.stores().Contracts.List(ctx, repository.ContractFilter{PartnerID: partner.ID})
	require.NoError(f.t, err)
	out := []string{}
	for _, c := range contracts {
		out = append(out, c.UUID)
	}
	return out
}

func (f *fixture) line(uuid string) *domain.ContractLine {
	f.t.Helper()
	line, err := f.stores().ContractLines.GetByUUID(context.Background(), uuid)
	require.NoError(f.t, err)
	return line
}

func lineUUIDs(lines []domain.ContractLine) []string {
	out := []string{}
	for _, l := range lines {
		out = append(out, l.UUID)
	}
	return out
}

func newUUID() string {
	return uuid.NewString()
}

func product(name string) *domain.SyncProduct {
	return &domain.SyncProduct{UUID: newUUID(), Name: name, PackingInfo: name + " packing info"}
}

func partnerWith(contracts ...domain.SyncContract) domain.SyncBPartner {
	return domain.SyncBPartner{UUID: newUUID(), Name: "Test", SyncContracts: true, Contracts: contracts}
}

func contractWith(lines ...domain.SyncContractLine) domain.SyncContract {
	return domain.SyncContract{UUID: newUUID(), DateFrom: contractDateFrom, DateTo: contractDateTo, ContractLines: lines}
}

func lineFor(p *domain.SyncProduct) domain.SyncContractLine {
	return domain.SyncContractLine{UUID: newUUID(), Product: p}
}

func TestSyncCreatesPartnerContractAndLine(t *testing.T) {
	f := newFixture(t)
	p1 := product("P1")
	l1 := lineFor(p1)
	c1 := contractWith(l1)
	bp := partnerWith(c1)

	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindPartner).Created)
	assert.Equal(t, 1, report.For(domain.KindContract).Created)
	assert.Equal(t, 1, report.For(domain.KindContractLine).Created)
	assert.Equal(t, 1, report.For(domain.KindProduct).Created)
	assert.Empty(t, report.Rejected)

	assert.Equal(t, []string{l1.UUID}, f.activeLines(c1.UUID))
	assert.Equal(t, []string{l1.UUID}, f.allActiveLines())

	stored, err := f.stores().Products.GetByID(context.Background(), f.line(l1.UUID).ProductID)
	require.NoError(t, err)
	assert.Equal(t, p1.UUID, stored.UUID)
	assert.Equal(t, "P1 packing info", stored.PackingInfo)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p1 := product("P1")
	c1 := contractWith(lineFor(p1), lineFor(p1))
	c2 := contractWith(lineFor(product("P2")))
	bp := partnerWith(c1, c2)

	f.sync(bp)
	linesBefore := f.allActiveLines()
	contractsBefore := f.activeContracts(bp.UUID)

	report := f.sync(bp)

	assert.False(t, report.Changed())
	assert.Equal(t, 2, report.For(domain.KindContract).Unchanged)
	assert.Equal(t, 3, report.For(domain.KindContractLine).Unchanged)
	assert.Equal(t, linesBefore, f.allActiveLines())
	assert.Equal(t, contractsBefore, f.activeContracts(bp.UUID))
}

// A contract line for a product was canceled and a new line for the same
// product was created: the old line is tombstoned, its supply survives.
func TestReplacedLineKeepsSupplyHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p1 := product("P1")
	l1 := lineFor(p1)
	c1 := contractWith(l1)
	bp := partnerWith(c1)
	f.sync(bp)

	partner, err := f.stores().Partners.GetByUUID(ctx, bp.UUID)
	require.NoError(t, err)
	old := f.line(l1.UUID)
	supply := &domain.ProductSupply{
		UUID:           newUUID(),
		PartnerID:      partner.ID,
		ProductID:      old.ProductID,
		ContractLineID: &old.ID,
		Day:            domain.TruncDay(time.Now()),
		Qty:            decimal.NewFromInt(10),
	}
	require.NoError(t, f.stores().Supplies.Append(ctx, supply))

	l2 := lineFor(p1)
	bp.Contracts[0].ContractLines = []domain.SyncContractLine{l2}
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindContractLine).Created)
	assert.Equal(t, 1, report.For(domain.KindContractLine).Tombstoned)
	assert.Equal(t, []string{l2.UUID}, f.allActiveLines())

	tombstoned := f.line(l1.UUID)
	assert.True(t, tombstoned.Deleted)
	assert.Equal(t, old.ID, tombstoned.ID)
	assert.Equal(t, f.line(l2.UUID).ProductID, tombstoned.ProductID)

	stored, err := f.stores().Supplies.GetByUUID(ctx, supply.UUID)
	require.NoError(t, err)
	require.NotNil(t, stored.ContractLineID)
	line, err := f.stores().ContractLines.GetByID(ctx, *stored.ContractLineID)
	require.NoError(t, err)
	assert.Equal(t, l1.UUID, line.UUID)
	assert.True(t, stored.Qty.Equal(decimal.NewFromInt(10)))
}

func TestRemovingAllContractsCascades(t *testing.T) {
	f := newFixture(t)
	c1 := contractWith(lineFor(product("P1")), lineFor(product("P2")))
	c2 := contractWith(lineFor(product("P3")))
	bp := partnerWith(c1, c2)
	f.sync(bp)

	bp.Contracts = nil
	report := f.sync(bp)

	assert.Equal(t, 2, report.For(domain.KindContract).Tombstoned)
	assert.Equal(t, 3, report.For(domain.KindContractLine).Tombstoned)
	assert.Empty(t, f.activeContracts(bp.UUID))
	assert.Empty(t, f.allActiveLines())

	for _, c := range []domain.SyncContract{c1, c2} {
		contract, err := f.stores().Contracts.GetByUUID(context.Background(), c.UUID)
		require.NoError(t, err)
		assert.True(t, contract.Deleted)
		for _, l := range c.ContractLines {
			assert.True(t, f.line(l.UUID).Deleted)
		}
	}
}

func TestTombstonedLineIsResurrected(t *testing.T) {
	f := newFixture(t)
	l1, l2 := lineFor(product("P1")), lineFor(product("P2"))
	c1 := contractWith(l1, l2)
	bp := partnerWith(c1)
	f.sync(bp)
	originalID := f.line(l2.UUID).ID

	bp.Contracts[0].ContractLines = []domain.SyncContractLine{l1}
	f.sync(bp)
	require.True(t, f.line(l2.UUID).Deleted)

	bp.Contracts[0].ContractLines = []domain.SyncContractLine{l1, l2}
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindContractLine).Resurrected)
	assert.Equal(t, 0, report.For(domain.KindContractLine).Created)
	resurrected := f.line(l2.UUID)
	assert.False(t, resurrected.Deleted)
	assert.Equal(t, originalID, resurrected.ID)
	assert.ElementsMatch(t, []string{l1.UUID, l2.UUID}, f.activeLines(c1.UUID))

	all, err := f.stores().ContractLines.List(context.Background(), repository.ContractLineFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTombstonedContractIsResurrectedWithItsLines(t *testing.T) {
	f := newFixture(t)
	l1 := lineFor(product("P1"))
	c1 := contractWith(l1)
	bp := partnerWith(c1)
	f.sync(bp)

	bp.Contracts = nil
	f.sync(bp)

	bp.Contracts = []domain.SyncContract{c1}
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindContract).Resurrected)
	assert.Equal(t, 1, report.For(domain.KindContractLine).Resurrected)
	assert.Equal(t, []string{c1.UUID}, f.activeContracts(bp.UUID))
	assert.Equal(t, []string{l1.UUID}, f.activeLines(c1.UUID))
}

func TestPartialOverlapWithinOneContract(t *testing.T) {
	f := newFixture(t)
	p1, p2 := product("P1"), product("P2")
	keep, drop := lineFor(p1), lineFor(p2)
	c1 := contractWith(keep, drop)
	bp := partnerWith(c1)
	f.sync(bp)

	added := lineFor(p2)
	moved := keep
	moved.Product = p2
	bp.Contracts[0].ContractLines = []domain.SyncContractLine{moved, added}
	report := f.sync(bp)

	stats := report.For(domain.KindContractLine)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Tombstoned)
	assert.ElementsMatch(t, []string{keep.UUID, added.UUID}, f.activeLines(c1.UUID))
	assert.Equal(t, f.line(added.UUID).ProductID, f.line(keep.UUID).ProductID)
}

func TestContractValidityWindowIsUpdated(t *testing.T) {
	f := newFixture(t)
	c1 := contractWith(lineFor(product("P1")))
	bp := partnerWith(c1)
	f.sync(bp)

	newTo := time.Date(2016, time.June, 30, 15, 4, 5, 0, time.UTC)
	bp.Contracts[0].DateTo = newTo
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindContract).Updated)
	contract, err := f.stores().Contracts.GetByUUID(context.Background(), c1.UUID)
	require.NoError(t, err)
	assert.True(t, contract.DateTo.Equal(domain.TruncDay(newTo)))
}

func TestPartnerUpdatedInPlace(t *testing.T) {
	f := newFixture(t)
	bp := partnerWith()
	f.sync(bp)

	bp.Name = "Renamed"
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindPartner).Updated)
	partner, err := f.stores().Partners.GetByUUID(context.Background(), bp.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", partner.Name)
}

func TestDisabledContractSyncLeavesContractsUntouched(t *testing.T) {
	f := newFixture(t)
	l1 := lineFor(product("P1"))
	c1 := contractWith(l1)
	bp := partnerWith(c1)
	f.sync(bp)

	bp.SyncContracts = false
	bp.Contracts = nil
	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindPartner).Updated)
	assert.Zero(t, report.For(domain.KindContract))
	assert.Equal(t, []string{c1.UUID}, f.activeContracts(bp.UUID))
	assert.Equal(t, []string{l1.UUID}, f.allActiveLines())
}

func TestDisabledPartnerIsStillPersisted(t *testing.T) {
	f := newFixture(t)
	bp := partnerWith(contractWith(lineFor(product("P1"))))
	bp.SyncContracts = false
	f.sync(bp)

	partner, err := f.stores().Partners.GetByUUID(context.Background(), bp.UUID)
	require.NoError(t, err)
	assert.False(t, partner.SyncContracts)
	assert.Empty(t, f.activeContracts(bp.UUID))
}

func TestForeignContractIdentifierIsRejected(t *testing.T) {
	f := newFixture(t)
	lOther := lineFor(product("P1"))
	cOther := contractWith(lOther)
	other := partnerWith(cOther)
	f.sync(other)

	mine := contractWith(lineFor(product("P2")))
	stolen := cOther
	stolen.ContractLines = nil
	bp := partnerWith(mine, stolen)
	report := f.sync(bp)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, domain.KindContract, report.Rejected[0].Kind)
	assert.Equal(t, cOther.UUID, report.Rejected[0].UUID)
	assert.True(t, domain.IsDomainError(report.Rejected[0], domain.ErrCodeConflict))

	// the rest of the scope still applies
	assert.Equal(t, []string{mine.UUID}, f.activeContracts(bp.UUID))
	// the other partner is untouched
	assert.Equal(t, []string{cOther.UUID}, f.activeContracts(other.UUID))
	assert.Equal(t, []string{lOther.UUID}, f.activeLines(cOther.UUID))
}

func TestForeignLineIdentifierIsRejected(t *testing.T) {
	f := newFixture(t)
	shared := lineFor(product("P1"))
	c1 := contractWith(shared)
	c2 := contractWith(lineFor(product("P2")))
	bp := partnerWith(c1, c2)
	f.sync(bp)

	// the agent now claims the line under the second contract
	bp.Contracts[1].ContractLines = append(bp.Contracts[1].ContractLines, shared)
	bp.Contracts[0].ContractLines = []domain.SyncContractLine{lineFor(product("P3"))}
	report := f.sync(bp)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, domain.KindContractLine, report.Rejected[0].Kind)
	assert.Equal(t, shared.UUID, report.Rejected[0].UUID)

	assert.Len(t, f.activeLines(c2.UUID), 1)
	assert.Len(t, f.activeLines(c1.UUID), 1)
	assert.True(t, f.line(shared.UUID).Deleted)

	contract, err := f.stores().Contracts.GetByUUID(context.Background(), c1.UUID)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, f.line(shared.UUID).ContractID)
}

func TestPartnersDoNotInterfere(t *testing.T) {
	f := newFixture(t)
	p1 := product("P1")
	bp1 := partnerWith(contractWith(lineFor(p1)))
	bp2 := partnerWith(contractWith(lineFor(p1)), contractWith(lineFor(p1)))
	f.sync(bp1)
	f.sync(bp2)

	bp1.Contracts = nil
	f.sync(bp1)

	assert.Empty(t, f.activeContracts(bp1.UUID))
	assert.Len(t, f.activeContracts(bp2.UUID), 2)
	assert.Len(t, f.allActiveLines(), 2)
}

func TestSharedProductIsWrittenOnce(t *testing.T) {
	f := newFixture(t)
	p1 := product("P1")
	bp := partnerWith(contractWith(lineFor(p1), lineFor(p1)), contractWith(lineFor(p1)))

	report := f.sync(bp)

	assert.Equal(t, 1, report.For(domain.KindProduct).Created)
	assert.Equal(t, 3, report.For(domain.KindContractLine).Created)
}

func TestSyncProductsUpserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p1 := product("P1")

	stats, err := f.rec.SyncProducts(ctx, f.stores(), []domain.SyncProduct{*p1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	p1.PackingInfo = "10 x 1kg"
	stats, err = f.rec.SyncProducts(ctx, f.stores(), []domain.SyncProduct{*p1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	stored, err := f.stores().Products.GetByUUID(ctx, p1.UUID)
	require.NoError(t, err)
	assert.Equal(t, "10 x 1kg", stored.PackingInfo)

	_, err = f.rec.SyncProducts(ctx, f.stores(), []domain.SyncProduct{{Name: "no uuid"}})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

type failingLines struct {
	repository.ContractLineRepository
	err error
}

func (f failingLines) Create(context.Context, *domain.ContractLine) error {
	return f.err
}

func TestStorageFailureRollsBackPartner(t *testing.T) {
	f := newFixture(t)
	bp := partnerWith(contractWith(lineFor(product("P1"))))
	boom := errors.New("disk full")

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, stores repository.Stores) error {
		stores.ContractLines = failingLines{ContractLineRepository: stores.ContractLines, err: boom}
		_, err := f.rec.SyncPartner(ctx, stores, &bp)
		return err
	})
	require.ErrorIs(t, err, boom)

	_, err = f.stores().Partners.GetByUUID(context.Background(), bp.UUID)
	assert.True(t, domain.IsNotFound(err))
	_, err = f.stores().Contracts.GetByUUID(context.Background(), bp.Contracts[0].UUID)
	assert.True(t, domain.IsNotFound(err))

	// retrying the same snapshot converges
	f.sync(bp)
	assert.Len(t, f.allActiveLines(), 1)
}
