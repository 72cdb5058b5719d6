package viewport

import (
	"iter"
	"math"
)

// maxGridLines caps a single axis so a pathological domain/spacing pair
// still yields a finite, bounded sequence.
const maxGridLines = 10000

// Axis selects the chart axis a grid is generated for.
type Axis int

const (
	AxisX Axis = iota // time
	AxisY             // amplitude
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// GridRange is the arithmetic progression of grid positions covering a
// domain: N values starting at Start, Step apart.
type GridRange struct {
	Start float64
	Step  float64
	N     int
}

// NewGridRange covers [floor(min/spacing)*spacing, ceil(max/spacing)*spacing]
// in steps of spacing. Invalid inputs (non-positive spacing, non-finite
// bounds, min > max) give an empty range.
func NewGridRange(min, max, spacing float64) GridRange {
	if !(spacing > 0) || !isFinite(spacing) || !isFinite(min) || !isFinite(max) || min > max {
		return GridRange{}
	}
	start := math.Floor(min/spacing) * spacing
	end := math.Ceil(max/spacing) * spacing

	n := math.Round((end-start)/spacing) + 1
	if n > maxGridLines {
		n = maxGridLines
	}
	return GridRange{Start: start, Step: spacing, N: int(n)}
}

// Seq yields the positions lazily. Each call to the returned sequence starts
// over from the first position.
func (g GridRange) Seq() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for i := 0; i < g.N; i++ {
			if !yield(g.Start + float64(i)*g.Step) {
				return
			}
		}
	}
}

// GridLines returns the grid positions covering [min, max] at spacing.
func GridLines(min, max, spacing float64) iter.Seq[float64] {
	return NewGridRange(min, max, spacing).Seq()
}

type gridCache struct {
	domain Domain
	x, y   GridRange
}
