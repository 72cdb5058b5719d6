package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/herolab/signaldash/server/internal/compute"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := cur
		cur = cur.Add(step)
		return now
	}
}

func validInput() compute.Input {
	return compute.Input{RI: 0.2, RINext: 1.0, FootJ: 0.35, RJ: 0.2, H: 1.7}
}

func TestCalculations_Create(t *testing.T) {
	c := NewCalculations()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = fixedClock(at)

	rec, err := c.Create(validInput(), "subject-04.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ParseID(rec.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", rec.ID, err)
	}
	if !rec.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt: got %v, want %v", rec.CreatedAt, at)
	}
	want, _ := compute.Calculate(validInput())
	if rec.Result != want {
		t.Errorf("Result: got %+v, want %+v", rec.Result, want)
	}
	if rec.Input != validInput() {
		t.Errorf("Input: got %+v", rec.Input)
	}
	if rec.FileName != "subject-04.txt" {
		t.Errorf("FileName: got %q", rec.FileName)
	}

	got, ok := c.Get(rec.ID)
	if !ok || got.ID != rec.ID {
		t.Errorf("Get(%q): got %+v, %v", rec.ID, got, ok)
	}
}

func TestCalculations_CreateInvalidStoresNothing(t *testing.T) {
	c := NewCalculations()
	in := validInput()
	in.H = 0

	_, err := c.Create(in, "")
	var verr *compute.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create: got %v, want ValidationError", err)
	}
	if verr.Field != compute.FieldH {
		t.Errorf("Field: got %q, want %q", verr.Field, compute.FieldH)
	}
	if n := c.Count(); n != 0 {
		t.Errorf("Count: got %d, want 0", n)
	}
}

func TestCalculations_ListNewestFirst(t *testing.T) {
	c := NewCalculations()
	c.now = stepClock(time.Unix(1_700_000_000, 0), time.Minute)

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := c.Create(validInput(), "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	list := c.List()
	if len(list) != 3 {
		t.Fatalf("List: got %d records, want 3", len(list))
	}
	for i, rec := range list {
		if want := ids[2-i]; rec.ID != want {
			t.Errorf("List[%d]: got %s, want %s", i, rec.ID, want)
		}
	}
}

func TestCalculations_ListSameInstantUsesInsertionOrder(t *testing.T) {
	c := NewCalculations()
	c.now = fixedClock(time.Unix(1_700_000_000, 0))

	first, _ := c.Create(validInput(), "")
	second, _ := c.Create(validInput(), "")

	list := c.List()
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List order: got [%s %s], want [%s %s]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestCalculations_Delete(t *testing.T) {
	c := NewCalculations()
	rec, _ := c.Create(validInput(), "")

	if err := c.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(rec.ID); ok {
		t.Error("Get after Delete: expected not found")
	}
	if err := c.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestCalculations_ConcurrentCreate(t *testing.T) {
	c := NewCalculations()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Create(validInput(), ""); err != nil {
				t.Errorf("Create: %v", err)
			}
			_ = c.List()
		}()
	}
	wg.Wait()
	if n := c.Count(); n != 50 {
		t.Errorf("Count: got %d, want 50", n)
	}
}

func TestParseID(t *testing.T) {
	id := UUIDv7()()
	if got, err := ParseID(id); err != nil || got != id {
		t.Errorf("ParseID(%q): got %q, %v", id, got, err)
	}
	if _, err := ParseID("../etc/passwd"); err == nil {
		t.Error("ParseID: expected error for non-UUID")
	}
}
