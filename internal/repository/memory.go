package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pinguard/pinguard/internal/model"
)

var (
	_ RegistrationStore = (*MemoryStore)(nil)
	_ DoorDirectory     = (*MemoryStore)(nil)
)

type memEntry struct {
	reg *model.Registration
	seq uint64
}

// MemoryStore keeps doors and registrations in process memory.
// Registrations are indexed owner -> pin -> record under one RWMutex.
type MemoryStore struct {
	mu            sync.RWMutex
	doors         map[string]model.Door
	doorOrder     []string
	registrations map[string]map[string]*memEntry
	seq           uint64
	now           func() time.Time
}

// NewMemoryStore creates a store seeded with the given doors.
func NewMemoryStore(doors []model.Door) *MemoryStore {
	s := &MemoryStore{
		doors:         make(map[string]model.Door, len(doors)),
		registrations: make(map[string]map[string]*memEntry),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, d := range doors {
		if _, ok := s.doors[d.ID]; !ok {
			s.doorOrder = append(s.doorOrder, d.ID)
		}
		s.doors[d.ID] = d
	}
	return s
}

// ListDoors returns the doors in seed order.
func (s *MemoryStore) ListDoors(_ context.Context) ([]model.Door, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Door, 0, len(s.doorOrder))
	for _, id := range s.doorOrder {
		out = append(out, s.doors[id])
	}
	return out, nil
}

// GetDoor looks up a door by id.
func (s *MemoryStore) GetDoor(_ context.Context, id string) (model.Door, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doors[id]
	return d, ok, nil
}

// SaveRegistration inserts or replaces the record for (OwnerID, PinCode).
func (s *MemoryStore) SaveRegistration(_ context.Context, reg *model.Registration) (*model.Registration, error) {
	if !validKey(reg) {
		return nil, ErrInvalidRegistration
	}

	stored := reg.Clone()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	byPin, ok := s.registrations[stored.OwnerID]
	if !ok {
		byPin = make(map[string]*memEntry)
		s.registrations[stored.OwnerID] = byPin
	}

	if existing, ok := byPin[stored.PinCode]; ok {
		stored.ID = existing.reg.ID
		stored.CreatedAt = existing.reg.CreatedAt
		stored.UpdatedAt = now
		existing.reg = stored
		return stored.Clone(), nil
	}

	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.seq++
	byPin[stored.PinCode] = &memEntry{reg: stored, seq: s.seq}

	return stored.Clone(), nil
}

// GetRegistration returns a copy of the record for (ownerID, pinCode).
func (s *MemoryStore) GetRegistration(_ context.Context, ownerID, pinCode string) (*model.Registration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.registrations[ownerID][pinCode]
	if !ok {
		return nil, false, nil
	}
	return e.reg.Clone(), true, nil
}

// DeleteRegistration removes the record for (ownerID, pinCode).
func (s *MemoryStore) DeleteRegistration(_ context.Context, ownerID, pinCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPin, ok := s.registrations[ownerID]
	if !ok {
		return ErrRegistrationNotFound
	}
	if _, ok := byPin[pinCode]; !ok {
		return ErrRegistrationNotFound
	}

	delete(byPin, pinCode)
	if len(byPin) == 0 {
		delete(s.registrations, ownerID)
	}
	return nil
}

// ListRegistrations returns every record in insertion order.
func (s *MemoryStore) ListRegistrations(_ context.Context) ([]*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*memEntry
	for _, byPin := range s.registrations {
		for _, e := range byPin {
			entries = append(entries, e)
		}
	}
	return snapshot(entries), nil
}

// ListRegistrationsForOwner returns the owner's records in insertion order.
func (s *MemoryStore) ListRegistrationsForOwner(_ context.Context, ownerID string) ([]*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPin := s.registrations[ownerID]
	entries := make([]*memEntry, 0, len(byPin))
	for _, e := range byPin {
		entries = append(entries, e)
	}
	return snapshot(entries), nil
}

// FindRegistrationByPinCode returns the earliest-inserted record carrying pinCode.
func (s *MemoryStore) FindRegistrationByPinCode(_ context.Context, pinCode string) (*model.Registration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *memEntry
	for _, byPin := range s.registrations {
		if e, ok := byPin[pinCode]; ok && (first == nil || e.seq < first.seq) {
			first = e
		}
	}
	if first == nil {
		return nil, false, nil
	}
	return first.reg.Clone(), true, nil
}

// snapshot sorts entries by insertion sequence and deep-copies them. Caller holds the read lock.
func snapshot(entries []*memEntry) []*model.Registration {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*model.Registration, len(entries))
	for i, e := range entries {
		out[i] = e.reg.Clone()
	}
	return out
}
