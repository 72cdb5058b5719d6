package viewport

import (
	"iter"

	"github.com/herolab/signaldash/pkg/types"
)

// Defaults for Settings fields left at zero.
const (
	DefaultGridSpacingX = 40.0 // ms per small grid square
	DefaultGridSpacingY = 1.0  // mV per small grid square
	DefaultMinSelection = 0.01 // drags narrower than this are treated as clicks
)

// Settings tunes an Engine. Non-positive fields take the package defaults.
type Settings struct {
	GridSpacingX float64
	GridSpacingY float64
	MinSelection float64
}

func (s Settings) withDefaults() Settings {
	if !(s.GridSpacingX > 0) {
		s.GridSpacingX = DefaultGridSpacingX
	}
	if !(s.GridSpacingY > 0) {
		s.GridSpacingY = DefaultGridSpacingY
	}
	if !(s.MinSelection > 0) {
		s.MinSelection = DefaultMinSelection
	}
	return s
}

// State is a serialisable snapshot of an Engine's view state.
type State struct {
	Domain     Domain   `json:"domain"`
	FullDomain Domain   `json:"full_domain"`
	Zoomed     bool     `json:"zoomed"`
	Selection  *Gesture `json:"selection,omitempty"`
	BrushStart int      `json:"brush_start"`
	BrushEnd   int      `json:"brush_end"`
}

// Engine holds the zoom and selection state of one chart over an immutable
// display series.
type Engine struct {
	series  []types.Sample
	channel types.Channel
	cfg     Settings
	full    Domain

	zoom    *Domain
	gesture *Gesture
	grid    *gridCache
}

// NewEngine creates an unzoomed Engine for channel ch of series. The series
// must not be modified afterwards.
func NewEngine(series []types.Sample, ch types.Channel, cfg Settings) *Engine {
	return &Engine{
		series:  series,
		channel: ch,
		cfg:     cfg.withDefaults(),
		full:    FullDomain(series, ch),
	}
}

// Series returns the display series the engine was built on.
func (e *Engine) Series() []types.Sample { return e.series }

// Channel returns the channel the engine computes Y domains for.
func (e *Engine) Channel() types.Channel { return e.channel }

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.cfg }

// Domain returns the current view: the zoom domain if set, else the full one.
func (e *Engine) Domain() Domain {
	if e.zoom != nil {
		return *e.zoom
	}
	return e.full
}

// FullDomain returns the unzoomed domain of the series.
func (e *Engine) FullDomain() Domain { return e.full }

// Zoomed reports whether an explicit zoom domain is set.
func (e *Engine) Zoomed() bool { return e.zoom != nil }

// Gesture returns the in-progress drag selection, if any.
func (e *Engine) Gesture() (Gesture, bool) {
	if e.gesture == nil {
		return Gesture{}, false
	}
	return *e.gesture, true
}

// State returns a copy of the current view state.
func (e *Engine) State() State {
	st := State{
		Domain:     e.Domain(),
		FullDomain: e.full,
		Zoomed:     e.Zoomed(),
	}
	if g, ok := e.Gesture(); ok {
		st.Selection = &g
	}
	st.BrushStart, st.BrushEnd = e.BrushRange()
	return st
}

// Reset clears the zoom domain and any in-progress gesture.
func (e *Engine) Reset() {
	e.zoom = nil
	e.gesture = nil
}

// ApplyBrushSelection zooms to the inclusive index range [start, end] picked
// with the brush control. Negative or out-of-range indices, or a selection
// covering the whole series, reset the view. A range whose end time does not
// exceed its start time leaves the state unchanged.
func (e *Engine) ApplyBrushSelection(start, end int) {
	n := len(e.series)
	if start < 0 || end < 0 || start >= n || end >= n {
		e.Reset()
		return
	}
	if start == 0 && end == n-1 {
		e.Reset()
		return
	}
	if start > end {
		return
	}

	xMin, xMax := e.series[start].Time, e.series[end].Time
	if !(xMax > xMin) {
		return
	}
	yMin, yMax, ok := selectionY(e.series[start:end+1], e.channel, nil)
	if !ok {
		return
	}
	e.zoom = &Domain{XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax}
}

// BeginDragSelection starts a drag anchored at t. It reports false, and
// changes nothing, if a drag is already active or t is not finite.
func (e *Engine) BeginDragSelection(t float64) bool {
	if e.gesture != nil || !isFinite(t) {
		return false
	}
	e.gesture = &Gesture{Anchor: t, Current: t}
	return true
}

// UpdateDragSelection moves the active drag's endpoint to t. It is a no-op
// without an active drag or for a non-finite t.
func (e *Engine) UpdateDragSelection(t float64) bool {
	if e.gesture == nil || !isFinite(t) {
		return false
	}
	e.gesture.Current = t
	return true
}

// EndDragSelection finishes the active drag and reports whether the view was
// zoomed. Drags no wider than the minimum selection, or covering no samples,
// leave the view unchanged. The gesture is cleared in every case.
func (e *Engine) EndDragSelection() bool {
	g := e.gesture
	e.gesture = nil
	if g == nil {
		return false
	}

	lo, hi := g.Bounds()
	if hi-lo <= e.cfg.MinSelection {
		return false
	}

	inside := func(s types.Sample) bool { return s.Time >= lo && s.Time <= hi }
	yMin, yMax, ok := selectionY(e.series, e.channel, inside)
	if !ok {
		return false
	}
	e.zoom = &Domain{XMin: lo, XMax: hi, YMin: yMin, YMax: yMax}
	return true
}

// GridLines returns the grid positions of axis for the current domain.
func (e *Engine) GridLines(axis Axis) iter.Seq[float64] {
	g := e.gridFor(e.Domain())
	if axis == AxisY {
		return g.y.Seq()
	}
	return g.x.Seq()
}

// Visible returns the samples whose time lies inside the current X domain.
func (e *Engine) Visible() []types.Sample {
	d := e.Domain()
	start, end := e.indexRange(d.XMin, d.XMax)
	if start > end {
		return nil
	}
	return e.series[start : end+1]
}

// BrushRange returns the index range the brush control should display for
// the current domain. Unzoomed, it spans the whole series.
func (e *Engine) BrushRange() (start, end int) {
	n := len(e.series)
	if n == 0 {
		return 0, 0
	}
	if e.zoom == nil {
		return 0, n - 1
	}
	start, end = e.indexRange(e.zoom.XMin, e.zoom.XMax)
	if start > end {
		return 0, n - 1
	}
	return start, end
}

// indexRange returns the first index with Time >= lo and the last index with
// Time <= hi. start > end means no sample lies in [lo, hi].
func (e *Engine) indexRange(lo, hi float64) (start, end int) {
	n := len(e.series)
	start, end = n, -1
	for i := 0; i < n; i++ {
		if e.series[i].Time >= lo {
			start = i
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if e.series[i].Time <= hi {
			end = i
			break
		}
	}
	return start, end
}

func (e *Engine) gridFor(d Domain) *gridCache {
	if e.grid == nil || e.grid.domain != d {
		e.grid = &gridCache{
			domain: d,
			x:      NewGridRange(d.XMin, d.XMax, e.cfg.GridSpacingX),
			y:      NewGridRange(d.YMin, d.YMax, e.cfg.GridSpacingY),
		}
	}
	return e.grid
}
