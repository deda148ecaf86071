package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore interface.
// Entries live only as long as the process and are swept on every Save, so it
// is only suitable for a single instance deployment.
type MemoryStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex
	now        func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore(opts ...MemoryOption) ports.ChallengeStore {
	s := &MemoryStore{
		challenges: make(map[string]core.Challenge),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores the challenge and drops every entry that has already expired
func (s *MemoryStore) Save(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, id)
		}
	}

	s.challenges[challenge.ID] = *challenge
	return nil
}

// Verify compares code with the stored challenge and consumes it on match
func (s *MemoryStore) Verify(ctx context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok || c.Expired(s.now()) {
		return core.ErrChallengeExpiredOrMissing
	}

	// Only the supplied side is normalized
	if c.Code != strings.ToUpper(code) {
		return core.ErrChallengeMismatch
	}

	delete(s.challenges, id)
	return nil
}

// Len returns the number of entries currently held, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}
