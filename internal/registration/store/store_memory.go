// Package store persists registrations as opaque snapshots keyed by
// registration ID, with a secondary index from email to the latest
// registration started for it.
package store

import (
	"context"
	"sync"
	"time"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

// ErrNotFound is returned when no live registration matches the lookup.
var ErrNotFound = sentinel.ErrNotFound

// InMemory keeps registrations in process. Entries older than the TTL are
// treated as absent.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RegistrationID]memoryEntry
	byEmail map[string]id.RegistrationID
	ttl     time.Duration
	clock   func() time.Time
}

type memoryEntry struct {
	snapshot  models.Snapshot
	expiresAt time.Time
}

// MemoryOption configures an InMemory store.
type MemoryOption func(*InMemory)

// WithMemoryClock sets the clock used for expiry.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory creates an in-memory store. A zero ttl keeps entries forever.
func NewInMemory(ttl time.Duration, opts ...MemoryOption) *InMemory {
	s := &InMemory{
		records: make(map[id.RegistrationID]memoryEntry),
		byEmail: make(map[string]id.RegistrationID),
		ttl:     ttl,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Save(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{snapshot: r.Snapshot()}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.records[r.ID()] = entry
	s.byEmail[r.Email()] = r.ID()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(regID)
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.findLocked(regID)
}

func (s *InMemory) findLocked(regID id.RegistrationID) (*models.Registration, error) {
	entry, ok := s.records[regID]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.clock().Before(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return models.Restore(entry.snapshot)
}

// Purge drops expired entries and returns how many were removed.
func (s *InMemory) Purge(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for regID, entry := range s.records {
		if entry.expiresAt.IsZero() || now.Before(entry.expiresAt) {
			continue
		}
		delete(s.records, regID)
		if s.byEmail[entry.snapshot.Email] == regID {
			delete(s.byEmail, entry.snapshot.Email)
		}
		removed++
	}
	return removed
}
