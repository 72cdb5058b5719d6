package store

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/herolab/signaldash/pkg/types"
)

// ErrNotProcessed is returned when a recording's processed data is requested
// before the processing service has delivered it.
var ErrNotProcessed = errors.New("data not processed yet")

// Recording is an uploaded acquisition file and, once processed, its
// channel arrays.
type Recording struct {
	ID          string
	FileName    string
	Raw         []byte
	UploadedAt  time.Time
	Data        *types.ProcessedData
	ProcessedAt time.Time

	seq uint64
}

// Processed reports whether processed data has been stored.
func (r *Recording) Processed() bool { return r.Data != nil }

// RecordingSummary is the list view of a Recording, without payloads.
type RecordingSummary struct {
	ID            string     `json:"id"`
	FileName      string     `json:"file_name"`
	FileSize      int64      `json:"file_size"`
	FileSizeHuman string     `json:"file_size_human"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	Processed     bool       `json:"processed"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	Samples       int        `json:"samples,omitempty"`
}

// Summary returns the list view of r.
func (r *Recording) Summary() RecordingSummary {
	s := RecordingSummary{
		ID:            r.ID,
		FileName:      r.FileName,
		FileSize:      int64(len(r.Raw)),
		FileSizeHuman: humanize.Bytes(uint64(len(r.Raw))),
		UploadedAt:    r.UploadedAt,
		Processed:     r.Processed(),
	}
	if r.Processed() {
		at := r.ProcessedAt
		s.ProcessedAt = &at
		s.Samples = r.Data.Len()
	}
	return s
}

// Recordings is the thread-safe collection of uploaded recordings.
// Stored recordings are never mutated in place; SetData swaps in a copy, so
// pointers returned by Get stay consistent.
type Recordings struct {
	mu    sync.RWMutex
	data  map[string]*Recording
	seq   uint64
	newID IDGenerator
	now   func() time.Time
}

// NewRecordings creates an empty collection.
func NewRecordings() *Recordings {
	return &Recordings{
		data:  make(map[string]*Recording),
		newID: UUIDv7(),
		now:   time.Now,
	}
}

// Add stores a new unprocessed recording. Callers must not modify raw
// afterwards.
func (r *Recordings) Add(fileName string, raw []byte) *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec := &Recording{
		ID:         r.newID(),
		FileName:   fileName,
		Raw:        raw,
		UploadedAt: r.now().UTC(),
		seq:        r.seq,
	}
	r.data[rec.ID] = rec
	return rec
}

// Get returns the recording with the given ID.
func (r *Recordings) Get(id string) (*Recording, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[id]
	return rec, ok
}

// Data returns the processed data of a recording: ErrNotFound for an unknown
// ID, ErrNotProcessed before processing completed.
func (r *Recordings) Data(id string) (*Recording, error) {
	rec, ok := r.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !rec.Processed() {
		return nil, ErrNotProcessed
	}
	return rec, nil
}

// SetData attaches processed data to a recording and stamps ProcessedAt.
// Reprocessing replaces earlier data.
func (r *Recordings) SetData(id string, data types.ProcessedData) (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := *old
	rec.Data = &data
	rec.ProcessedAt = r.now().UTC()
	r.data[id] = &rec
	return &rec, nil
}

// List returns summaries of all recordings, newest first.
func (r *Recordings) List() []RecordingSummary {
	r.mu.RLock()
	recs := make([]*Recording, 0, len(r.data))
	for _, rec := range r.data {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	slices.SortFunc(recs, func(a, b *Recording) int {
		if cmp := b.UploadedAt.Compare(a.UploadedAt); cmp != 0 {
			return cmp
		}
		return compareSeq(b.seq, a.seq)
	})
	out := make([]RecordingSummary, len(recs))
	for i, rec := range recs {
		out[i] = rec.Summary()
	}
	return out
}

// Delete removes the recording with the given ID.
func (r *Recordings) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Count returns the number of recordings and how many of them are processed.
func (r *Recordings) Count() (total, processed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.data {
		if rec.Processed() {
			processed++
		}
	}
	return len(r.data), processed
}
