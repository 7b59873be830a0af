// Package session provides the in-memory session store with per-session
// mutual exclusion.
package session

import (
	"context"
	"sync"
	"time"

	"presales_backend/internal/chat/domain"
	"presales_backend/platform/apperr"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = apperr.NotFound("session not found")

type entry struct {
	mu      sync.Mutex
	session *domain.Session
	deleted bool
}

// Store holds sessions in memory. Turns on the same session serialize on a
// per-session lock; turns on different sessions proceed concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
}

// WithSession runs fn while holding the session's lock. When createIfAbsent
// is set, a missing session is created in the greeting state; otherwise
// ErrNotFound is returned. The session passed to fn may be mutated freely;
// changes are visible once fn returns.
func (s *Store) WithSession(ctx context.Context, id string, createIfAbsent bool, fn func(*domain.Session) error) error {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			if !createIfAbsent {
				s.mu.Unlock()
				return ErrNotFound
			}
			e = &entry{session: domain.NewSession(id, s.clock())}
			s.entries[id] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.deleted {
			// Lost a race with Delete. The entry is gone from the map,
			// so retry against the current map state.
			e.mu.Unlock()
			if !createIfAbsent {
				return ErrNotFound
			}
			continue
		}

		err := fn(e.session)
		e.mu.Unlock()
		return err
	}
}

// Snapshot returns a copy of the session safe to read without the lock.
func (s *Store) Snapshot(id string) (domain.Session, error) {
	var copied domain.Session
	err := s.WithSession(context.Background(), id, false, func(sess *domain.Session) error {
		copied = *sess
		copied.History = append([]domain.Message(nil), sess.History...)
		copied.Facts.Requirements = append([]string(nil), sess.Facts.Requirements...)
		return nil
	})
	return copied, err
}

// Delete removes the session. It takes the session lock first, so a turn in
// flight finishes before the session disappears.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrNotFound
	}
	e.deleted = true

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// SweepIdle deletes sessions whose last activity is older than maxIdle and
// returns their IDs. A nonpositive maxIdle is a no-op: the cutoff would sit
// at or after now and sweep every live session.
func (s *Store) SweepIdle(maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-maxIdle)

	s.mu.Lock()
	candidates := make([]string, 0, len(s.entries))
	for id := range s.entries {
		candidates = append(candidates, id)
	}
	s.mu.Unlock()

	swept := make([]string, 0)
	for _, id := range candidates {
		if s.deleteIfIdle(id, cutoff) {
			swept = append(swept, id)
		}
	}
	return swept
}

// deleteIfIdle removes the session only if its last activity is still before
// the cutoff once the session lock is held. Checking and deleting under one
// lock means a turn that slips in ahead of the sweep keeps its session.
func (s *Store) deleteIfIdle(id string, cutoff time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || !e.session.LastActive.Before(cutoff) {
		return false
	}
	e.deleted = true

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
