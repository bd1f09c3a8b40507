// Package identity owns the anonymous guest identifier: creation,
// persistence and the principal attached to storefront calls.
package identity

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/storage"
)

// GuestIDKey is the storage key holding the guest identifier. Only Store
// writes it.
const GuestIDKey = "guest_id"

// Store reads or creates the persisted guest identifier
type Store struct {
	storage storage.Store
	gen     *Generator
	logger  zerolog.Logger

	mu      sync.Mutex
	loading atomic.Bool
}

// Option configures a Store
type Option func(*Store)

// WithGenerator replaces the crypto-seeded generator
func WithGenerator(g *Generator) Option {
	return func(s *Store) { s.gen = g }
}

// WithLogger sets the logger used for degraded-storage warnings
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an identity store over st
func NewStore(st storage.Store, opts ...Option) *Store {
	s := &Store{
		storage: st,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = NewGenerator()
	}
	return s
}

// GetOrCreate returns the stored identifier, generating and persisting one
// when none exists. If storage fails the fresh identifier is still
// returned, only unpersisted.
func (s *Store) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading.Store(true)
	id, ok, err := s.storage.Get(GuestIDKey)
	s.loading.Store(false)

	if err != nil {
		s.logger.Warn().Err(err).Msg("guest id lookup failed; using an unpersisted id")
		return s.gen.NewID()
	}
	if ok && id != "" {
		return id
	}

	id = s.gen.NewID()
	s.persist(id)
	return id
}

// Regenerate unconditionally replaces the stored identifier. Other
// guest-scoped keys, such as the registration marker, are left alone.
func (s *Store) Regenerate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.gen.NewID()
	s.persist(id)
	return id
}

// Loading reports whether the initial storage lookup is in progress
func (s *Store) Loading() bool {
	return s.loading.Load()
}

func (s *Store) persist(id string) {
	if err := s.storage.Set(GuestIDKey, id); err != nil {
		s.logger.Warn().Err(err).Str("guest_id", id).Msg("failed to persist guest id")
	}
}
