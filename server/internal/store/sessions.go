package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/viewport"
)

// Session is one chart view over a processed recording channel. The engine
// is not safe for concurrent use; all access goes through Do.
type Session struct {
	ID          string
	RecordingID string
	Channel     types.Channel
	Stride      int
	CreatedAt   time.Time

	mu       sync.Mutex
	engine   *viewport.Engine
	lastUsed time.Time
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(e *viewport.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine)
}

// Sessions is the thread-safe collection of chart sessions. A background
// goroutine (Run) evicts sessions that have not been used within the TTL.
type Sessions struct {
	mu    sync.RWMutex
	data  map[string]*Session
	ttl   time.Duration
	newID IDGenerator
	now   func() time.Time // injectable for deterministic tests
}

// NewSessions creates an empty collection with the given idle TTL.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		data:  make(map[string]*Session),
		ttl:   ttl,
		newID: UUIDv7(),
		now:   time.Now,
	}
}

// Create registers a session over engine.
func (s *Sessions) Create(recordingID string, ch types.Channel, stride int, engine *viewport.Engine) *Session {
	now := s.now()
	sess := &Session{
		ID:          s.newID(),
		RecordingID: recordingID,
		Channel:     ch,
		Stride:      stride,
		CreatedAt:   now.UTC(),
		engine:      engine,
		lastUsed:    now,
	}
	s.mu.Lock()
	s.data[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with the given ID and marks it as used.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.now()
	sess.mu.Lock()
	sess.lastUsed = now
	sess.mu.Unlock()
	return sess, true
}

// Delete removes the session with the given ID.
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// DeleteRecording removes every session over the given recording and returns
// how many were removed.
func (s *Sessions) DeleteRecording(recordingID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.data {
		if sess.RecordingID == recordingID {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// SetTTL changes the idle TTL used by later evictions.
func (s *Sessions) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	s.ttl = ttl
	s.mu.Unlock()
}

func (s *Sessions) currentTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl
}

// Evict removes sessions whose last use is older than now minus TTL.
// It returns the number of sessions removed. A zero TTL disables eviction.
func (s *Sessions) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, sess := range s.data {
		sess.mu.Lock()
		stale := !sess.lastUsed.After(cutoff)
		sess.mu.Unlock()
		if stale {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.currentTTL() / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted idle chart sessions", "count", n)
			}
		}
	}
}
