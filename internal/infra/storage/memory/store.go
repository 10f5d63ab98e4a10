package memory

import (
	"sort"
	"sync"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// slot holds the state of one wallet under its own lock.
type slot struct {
	mu    sync.RWMutex
	state domain.WalletState
	set   bool
}

// Store is an in-memory StateStore with one independently locked slot per
// wallet key. Operations on different keys never share a lock.
type Store struct {
	// fixed is built once by NewStore and never written again.
	fixed map[domain.WalletKey]*slot
	// late holds keys that were not known at construction.
	late sync.Map // domain.WalletKey -> *slot
}

// NewStore creates a store with a slot for each of keys. Other keys get a
// slot on their first Put.
func NewStore(keys ...domain.WalletKey) *Store {
	s := &Store{fixed: make(map[domain.WalletKey]*slot, len(keys))}
	for _, k := range keys {
		s.fixed[k] = &slot{}
	}
	return s
}

func (s *Store) slotFor(key domain.WalletKey, create bool) *slot {
	if sl, ok := s.fixed[key]; ok {
		return sl
	}
	if v, ok := s.late.Load(key); ok {
		return v.(*slot)
	}
	if !create {
		return nil
	}
	v, _ := s.late.LoadOrStore(key, &slot{})
	return v.(*slot)
}

// Get implements storage.StateStore.
func (s *Store) Get(key domain.WalletKey) (domain.WalletState, bool) {
	sl := s.slotFor(key, false)
	if sl == nil {
		return domain.WalletState{}, false
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.state, sl.set
}

// Put implements storage.StateStore.
func (s *Store) Put(key domain.WalletKey, state domain.WalletState) {
	state.Key = key
	sl := s.slotFor(key, true)
	sl.mu.Lock()
	sl.state, sl.set = state, true
	sl.mu.Unlock()
}

// Restore loads persisted states, typically once at startup.
func (s *Store) Restore(states []domain.WalletState) {
	for _, st := range states {
		s.Put(st.Key, st)
	}
}

func (s *Store) each(fn func(*slot)) {
	for _, sl := range s.fixed {
		fn(sl)
	}
	s.late.Range(func(_, v any) bool {
		fn(v.(*slot))
		return true
	})
}

// Snapshot returns a copy of every recorded state ordered by key. Each slot
// is read under its own lock, so the result is consistent per wallet only.
func (s *Store) Snapshot() []domain.WalletState {
	var out []domain.WalletState
	s.each(func(sl *slot) {
		sl.mu.RLock()
		if sl.set {
			out = append(out, sl.state)
		}
		sl.mu.RUnlock()
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Len returns the number of wallets with a recorded state.
func (s *Store) Len() int {
	n := 0
	s.each(func(sl *slot) {
		sl.mu.RLock()
		if sl.set {
			n++
		}
		sl.mu.RUnlock()
	})
	return n
}
