// Package memory provides in-process repositories used by tests and by the
// server when STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

type state struct {
	seq int64

	partners  map[int64]domain.Partner
	products  map[int64]domain.Product
	contracts map[int64]domain.Contract
	lines     map[int64]domain.ContractLine
	supplies  map[int64]domain.ProductSupply

	// uuid indexes, one per entity kind
	partnerIdx  map[string]int64
	productIdx  map[string]int64
	contractIdx map[string]int64
	lineIdx     map[string]int64
	supplyIdx   map[string]int64
}

func newState() *state {
	return &state{
		partners:    make(map[int64]domain.Partner),
		products:    make(map[int64]domain.Product),
		contracts:   make(map[int64]domain.Contract),
		lines:       make(map[int64]domain.ContractLine),
		supplies:    make(map[int64]domain.ProductSupply),
		partnerIdx:  make(map[string]int64),
		productIdx:  make(map[string]int64),
		contractIdx: make(map[string]int64),
		lineIdx:     make(map[string]int64),
		supplyIdx:   make(map[string]int64),
	}
}

// clone copies every table. Rows are values, so a shallow map copy is enough.
func (s *state) clone() *state {
	return &state{
		seq:         s.seq,
		partners:    maps.Clone(s.partners),
		products:    maps.Clone(s.products),
		contracts:   maps.Clone(s.contracts),
		lines:       maps.Clone(s.lines),
		supplies:    maps.Clone(s.supplies),
		partnerIdx:  maps.Clone(s.partnerIdx),
		productIdx:  maps.Clone(s.productIdx),
		contractIdx: maps.Clone(s.contractIdx),
		lineIdx:     maps.Clone(s.lineIdx),
		supplyIdx:   maps.Clone(s.supplyIdx),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is an in-memory system of record. Transactions work on a private
// copy of the tables that replaces the live copy on commit.
type Store struct {
	writeMu sync.Mutex   // one writer (transaction or single write) at a time
	mu      sync.RWMutex // guards live
	live    *state
}

func New() *Store {
	return &Store{live: newState()}
}

// Stores returns repositories that read and write the live tables directly.
func (s *Store) Stores() repository.Stores {
	return bind(&liveAccess{store: s})
}

// WithinTx runs fn against a snapshot of the tables and publishes the
// snapshot only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.live.clone()
	s.mu.RUnlock()

	if err := fn(ctx, bind(&txAccess{st: work})); err != nil {
		return err
	}

	s.mu.Lock()
	s.live = work
	s.mu.Unlock()
	return nil
}

var _ repository.UnitOfWork = (*Store)(nil)

// access abstracts how repositories reach the tables.
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type liveAccess struct {
	store *Store
}

func (a *liveAccess) read(fn func(st *state) error) error {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.live)
}

func (a *liveAccess) write(fn func(st *state) error) error {
	a.store.writeMu.Lock()
	defer a.store.writeMu.Unlock()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.live)
}

// txAccess is only used by the goroutine running the transaction.
type txAccess struct {
	st *state
}

func (a *txAccess) read(fn func(st *state) error) error  { return fn(a.st) }
func (a *txAccess) write(fn func(st *state) error) error { return fn(a.st) }

func bind(a access) repository.Stores {
	return repository.Stores{
		Partners:      &partnerRepository{db: a},
		Products:      &productRepository{db: a},
		Contracts:     &contractRepository{db: a},
		ContractLines: &contractLineRepository{db: a},
		Supplies:      &supplyRepository{db: a},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
