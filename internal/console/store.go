package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	console  *Console
	lastSeen time.Time
}

// Store keeps one Console per browser session in memory. Sessions idle for
// longer than ttl are evicted by Run.
type Store struct {
	ttl        time.Duration
	newConsole func(sessionID string) *Console
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewStore(ttl time.Duration, newConsole func(sessionID string) *Console, logger *slog.Logger) *Store {
	return &Store{
		ttl:        ttl,
		newConsole: newConsole,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*sessionEntry),
	}
}

// Acquire returns the console for sessionID, creating a fresh session when
// the id is empty, malformed or unknown. The returned id is the one to hand
// back to the client.
func (s *Store) Acquire(sessionID string) (string, *Console) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.sessions[sessionID]; ok {
		entry.lastSeen = now
		return sessionID, entry.console
	}

	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}

	c := s.newConsole(sessionID)
	s.sessions[sessionID] = &sessionEntry{console: c, lastSeen: now}
	s.logger.Debug("console session created", "session_id", sessionID)
	return sessionID, c
}

// Lookup returns the console for a known sessionID without creating one.
func (s *Store) Lookup(sessionID string) (*Console, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.console, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops sessions not seen since now minus ttl and returns how many were
// removed.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.logger.Info("evicted idle console sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}
