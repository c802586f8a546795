package session

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.RWMutex
	values   map[Key]string
	lastSeen time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[Key]string{}, lastSeen: time.Now()}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (string, error) {
	if !key.valid() {
		return "", ErrUnknownKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryStore) Set(_ context.Context, key Key, value string) error {
	if !key.valid() {
		return ErrUnknownKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	if value == "" {
		delete(s.values, key)
		return nil
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return FromValues(s.values), nil
}

func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	values := sess.Values()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.values = values
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.values = map[Key]string{}
	return nil
}

func (s *MemoryStore) SetAccessIf(_ context.Context, refresh string, access string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refresh == "" || s.values[KeyRefresh] != refresh {
		return false, nil
	}
	s.lastSeen = time.Now()
	if access == "" {
		delete(s.values, KeyAccess)
	} else {
		s.values[KeyAccess] = access
	}
	return true, nil
}

func (s *MemoryStore) ClearIf(_ context.Context, refresh string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values[KeyRefresh] != refresh || len(s.values) == 0 {
		return false, nil
	}
	s.lastSeen = time.Now()
	s.values = map[Key]string{}
	return true, nil
}

func (s *MemoryStore) empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values) == 0
}

func (s *MemoryStore) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// MemoryRegistry keeps one MemoryStore per session id that holds at least one
// key. Handles for empty sessions cost nothing: the entry is created by the
// first write and dropped as soon as the session is empty again.
type MemoryRegistry struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{stores: map[string]*MemoryStore{}}
}

func (r *MemoryRegistry) Store(id string) Store {
	return &registryStore{registry: r, id: id}
}

func (r *MemoryRegistry) lookup(id string) *MemoryStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stores[id]
}

// write runs fn on the store for id, creating it first, and forgets the store
// if fn leaves it empty. Holding r.mu throughout keeps a concurrent write from
// landing in a store that was just dropped.
func (r *MemoryRegistry) write(id string, fn func(*MemoryStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[id]
	if !ok {
		store = NewMemoryStore()
	}
	err := fn(store)
	switch {
	case store.empty():
		delete(r.stores, id)
	case !ok:
		r.stores[id] = store
	}
	return err
}

func (r *MemoryRegistry) Sweep(_ context.Context, idleFor time.Duration) (int64, error) {
	cutoff := time.Now().Add(-idleFor)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, store := range r.stores {
		if store.idleSince().Before(cutoff) {
			delete(r.stores, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many sessions currently hold data.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

type registryStore struct {
	registry *MemoryRegistry
	id       string
}

func (s *registryStore) Get(ctx context.Context, key Key) (string, error) {
	if !key.valid() {
		return "", ErrUnknownKey
	}
	store := s.registry.lookup(s.id)
	if store == nil {
		return "", nil
	}
	return store.Get(ctx, key)
}

func (s *registryStore) Set(ctx context.Context, key Key, value string) error {
	if !key.valid() {
		return ErrUnknownKey
	}
	return s.registry.write(s.id, func(store *MemoryStore) error {
		return store.Set(ctx, key, value)
	})
}

func (s *registryStore) Load(ctx context.Context) (Session, error) {
	store := s.registry.lookup(s.id)
	if store == nil {
		return Session{}, nil
	}
	return store.Load(ctx)
}

func (s *registryStore) Save(ctx context.Context, sess Session) error {
	return s.registry.write(s.id, func(store *MemoryStore) error {
		return store.Save(ctx, sess)
	})
}

func (s *registryStore) Clear(ctx context.Context) error {
	return s.registry.write(s.id, func(store *MemoryStore) error {
		return store.Clear(ctx)
	})
}

func (s *registryStore) SetAccessIf(ctx context.Context, refresh string, access string) (bool, error) {
	var applied bool
	err := s.registry.write(s.id, func(store *MemoryStore) error {
		var err error
		applied, err = store.SetAccessIf(ctx, refresh, access)
		return err
	})
	return applied, err
}

func (s *registryStore) ClearIf(ctx context.Context, refresh string) (bool, error) {
	var cleared bool
	err := s.registry.write(s.id, func(store *MemoryStore) error {
		var err error
		cleared, err = store.ClearIf(ctx, refresh)
		return err
	})
	return cleared, err
}
