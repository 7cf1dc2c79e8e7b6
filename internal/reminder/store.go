package reminder

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// PolicyStore persists per-entity reminder policies plus the global default.
// Looking up an entity without an explicit policy yields the default.
type PolicyStore interface {
	Policy(ctx context.Context, id uuid.UUID) (Policy, error)
	SetPolicy(ctx context.Context, id uuid.UUID, p Policy) error
	DeletePolicy(ctx context.Context, id uuid.UUID) error
	DefaultPolicy(ctx context.Context) (Policy, error)
	SetDefaultPolicy(ctx context.Context, p Policy) error
}

// ApplyDefault makes def the default policy of s. Settings own the default:
// a different default persisted by an earlier run is overwritten. changed
// reports whether a write happened.
func ApplyDefault(ctx context.Context, s PolicyStore, def Policy) (changed bool, err error) {
	def = def.Normalize()
	current, err := s.DefaultPolicy(ctx)
	if err != nil {
		return false, err
	}
	current = current.Normalize()
	if current.Enabled == def.Enabled && current.Hour == def.Hour &&
		current.Minute == def.Minute && slices.Equal(current.OffsetsDays, def.OffsetsDays) {
		return false, nil
	}
	return true, s.SetDefaultPolicy(ctx, def)
}

// MemoryStore keeps policies in a map. Apart from validation it never fails.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[uuid.UUID]Policy
	def      Policy
}

// NewMemoryStore returns an empty store using def as the default policy.
func NewMemoryStore(def Policy) *MemoryStore {
	return &MemoryStore{
		policies: make(map[uuid.UUID]Policy),
		def:      def.Normalize(),
	}
}

func (s *MemoryStore) Policy(_ context.Context, id uuid.UUID) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[id]; ok {
		return p.Clone(), nil
	}
	return s.def.Clone(), nil
}

func (s *MemoryStore) SetPolicy(_ context.Context, id uuid.UUID, p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[id] = p.Normalize()
	return nil
}

func (s *MemoryStore) DeletePolicy(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, id)
	return nil
}

func (s *MemoryStore) DefaultPolicy(_ context.Context) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def.Clone(), nil
}

func (s *MemoryStore) SetDefaultPolicy(_ context.Context, p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = p.Normalize()
	return nil
}

// Snapshot returns a copy of every explicit policy, for persistence.
func (s *MemoryStore) Snapshot() map[uuid.UUID]Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := maps.Clone(s.policies)
	for id, p := range out {
		out[id] = p.Clone()
	}
	return out
}

// Restore replaces the store content. Invalid entries are normalized rather
// than rejected so that a hand-edited file still loads.
func (s *MemoryStore) Restore(def Policy, policies map[uuid.UUID]Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = def.Normalize()
	s.policies = make(map[uuid.UUID]Policy, len(policies))
	for id, p := range policies {
		s.policies[id] = p.Normalize()
	}
}
