package uow

import (
	"context"
	"sync"
)

type memTxKey struct{}

// Snapshotter is implemented by in-memory stores that can capture their
// current state and hand back a restore function.
type Snapshotter interface {
	Snapshot() (restore func())
}

// MemoryManager implements Manager over snapshot-capable stores. On rollback
// every registered store is restored to its pre-transaction state, newest
// snapshot first. Top-level transactions serialize on a mutex: a restore
// only ever puts back state this transaction snapshotted itself, so a commit
// on another goroutine cannot be erased by a concurrent rollback.
type MemoryManager struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewMemoryManager(stores ...Snapshotter) *MemoryManager {
	return &MemoryManager{stores: stores}
}

// Register adds stores after construction; useful when stores are built
// incrementally during wiring.
func (m *MemoryManager) Register(stores ...Snapshotter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = append(m.stores, stores...)
}

func (m *MemoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(context.WithValue(ctx, memTxKey{}, struct{}{})); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
