package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an ID does not name a stored record.
var ErrNotFound = errors.New("not found")

// IDGenerator produces unique record identifiers.
type IDGenerator func() string

// UUIDv7 produces RFC 9562 UUID v7 strings, which sort by creation time.
func UUIDv7() IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// ParseID validates a record ID taken from a request path.
func ParseID(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid id: %w", err)
	}
	return u.String(), nil
}

// Store groups the three collections. Each collection owns its own lock.
type Store struct {
	Calculations *Calculations
	Recordings   *Recordings
	Sessions     *Sessions
}

// New creates an empty Store whose chart sessions expire after sessionTTL
// without use. A zero TTL keeps sessions until deleted.
func New(sessionTTL time.Duration) *Store {
	return &Store{
		Calculations: NewCalculations(),
		Recordings:   NewRecordings(),
		Sessions:     NewSessions(sessionTTL),
	}
}

// Stats is a point-in-time count of stored records.
type Stats struct {
	Recordings   int `json:"recordings"`
	Processed    int `json:"processed"`
	Calculations int `json:"calculations"`
	Sessions     int `json:"sessions"`
}

// Stats counts the records in every collection.
func (s *Store) Stats() Stats {
	total, processed := s.Recordings.Count()
	return Stats{
		Recordings:   total,
		Processed:    processed,
		Calculations: s.Calculations.Count(),
		Sessions:     s.Sessions.Count(),
	}
}
