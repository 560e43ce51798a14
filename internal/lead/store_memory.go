package lead

import (
	"context"
	"sync"
)

// InMemoryStore keeps the initial implementation lightweight and testable. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	keyed *keyedMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		leads: make(map[string]*Lead),
		keyed: newKeyedMutex(),
	}
}

func (s *InMemoryStore) Create(_ context.Context, l *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.leads {
		if l.Email != "" && existing.Email == l.Email {
			return ErrConflict
		}
		if l.Phone != "" && existing.Phone == l.Phone {
			return ErrConflict
		}
		if l.IdempotencyKey != "" && existing.IdempotencyKey == l.IdempotencyKey {
			return ErrConflict
		}
	}
	s.leads[l.ID] = clone(l)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.leads[id]; ok {
		return clone(l), nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*Lead, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.IdempotencyKey == key {
			return clone(l), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) FindByEnvelopeID(_ context.Context, envelopeID string) (*Lead, error) {
	if envelopeID == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.ConsentEnvelopeID == envelopeID {
			return clone(l), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, clone(l))
	}
	return out, nil
}

func (s *InMemoryStore) ListByStage(_ context.Context, stage Stage) ([]*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Lead
	for _, l := range s.leads {
		if l.Stage == stage {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, l *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; !ok {
		return ErrNotFound
	}
	s.leads[l.ID] = clone(l)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return ErrNotFound
	}
	delete(s.leads, id)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads), nil
}

func (s *InMemoryStore) Lock(id string) func() {
	return s.keyed.Lock(id)
}

// clone copies a lead so callers never share slices or mutate stored state.
func clone(l *Lead) *Lead {
	c := *l
	c.RequiredDocs = append([]string(nil), l.RequiredDocs...)
	c.ReceivedDocs = append([]string(nil), l.ReceivedDocs...)
	c.MissingDocs = append([]string(nil), l.MissingDocs...)
	c.StageHistory = append([]StageChange(nil), l.StageHistory...)
	return &c
}
