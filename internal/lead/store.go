package lead

import (
	"context"
	"sync"

	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
)

// ErrNotFound keeps store-specific lookups consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// ErrConflict is returned when a uniqueness constraint (email, phone,
// idempotency key) is violated on create.
var ErrConflict = sentinel.ErrConflict

// Store is the persistence boundary for leads. Implementations must provide
// per-lead exclusion via Lock so concurrent Advance calls on the same lead
// serialize while unrelated leads proceed in parallel.
type Store interface {
	Create(ctx context.Context, l *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Lead, error)
	FindByEnvelopeID(ctx context.Context, envelopeID string) (*Lead, error)
	List(ctx context.Context) ([]*Lead, error)
	ListByStage(ctx context.Context, stage Stage) ([]*Lead, error)
	Update(ctx context.Context, l *Lead) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Lock acquires the per-lead mutex and returns its release func. Callers
	// must release before returning; collaborator I/O for other leads is never
	// blocked by a held lock.
	Lock(id string) func()
}

// keyedMutex provides per-key exclusion shared by store implementations.
// Entries are never removed; the key space is bounded by the lead population.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
