package memory

import (
	"context"
	"sync"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/repository"
)

// Locker is a keyed mutex for single-process deployments.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock waits until the partner is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, partnerUUID string) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[partnerUUID]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[partnerUUID] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(partnerUUID, k)
		return nil, domain.WrapError(domain.ErrCodeConflict, domain.ErrLockNotAcquired.Message, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.ch
			l.drop(partnerUUID, k)
		})
	}, nil
}

func (l *Locker) drop(partnerUUID string, k *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, partnerUUID)
	}
}

var _ repository.PartnerLocker = (*Locker)(nil)
