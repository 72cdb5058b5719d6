package store

import (
	"slices"
	"sync"
	"time"

	"github.com/herolab/signaldash/server/internal/compute"
)

// Calculation is a saved, immutable metric record: the five inputs and the
// three derived values.
type Calculation struct {
	ID string `json:"id"`
	compute.Input
	compute.Result
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	seq uint64
}

// Calculations is the thread-safe collection of saved calculations.
type Calculations struct {
	mu    sync.RWMutex
	data  map[string]Calculation
	seq   uint64
	newID IDGenerator
	now   func() time.Time // injectable for deterministic tests
}

// NewCalculations creates an empty collection.
func NewCalculations() *Calculations {
	return &Calculations{
		data:  make(map[string]Calculation),
		newID: UUIDv7(),
		now:   time.Now,
	}
}

// Create validates in, computes its metrics and saves a new record.
// Validation failures are returned unchanged (see compute.ValidationError)
// and nothing is stored.
func (c *Calculations) Create(in compute.Input, fileName string) (Calculation, error) {
	res, err := compute.Calculate(in)
	if err != nil {
		return Calculation{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	rec := Calculation{
		ID:        c.newID(),
		Input:     in,
		Result:    res,
		FileName:  fileName,
		CreatedAt: c.now().UTC(),
		seq:       c.seq,
	}
	c.data[rec.ID] = rec
	return rec, nil
}

// Get returns the record with the given ID.
func (c *Calculations) Get(id string) (Calculation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.data[id]
	return rec, ok
}

// List returns all records, newest first.
func (c *Calculations) List() []Calculation {
	c.mu.RLock()
	out := make([]Calculation, 0, len(c.data))
	for _, rec := range c.data {
		out = append(out, rec)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Calculation) int {
		if cmp := b.CreatedAt.Compare(a.CreatedAt); cmp != 0 {
			return cmp
		}
		return compareSeq(b.seq, a.seq)
	})
	return out
}

// Delete removes the record with the given ID.
func (c *Calculations) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[id]; !ok {
		return ErrNotFound
	}
	delete(c.data, id)
	return nil
}

// Count returns the number of saved records.
func (c *Calculations) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
