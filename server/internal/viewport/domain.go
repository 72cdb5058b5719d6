package viewport

import (
	"math"

	"github.com/herolab/signaldash/pkg/types"
)

const (
	// paddingRatio is the fraction of the value range added above and below
	// the Y extent.
	paddingRatio = 0.10

	// fallbackPadding is used when the value range (and, for the full
	// domain, the magnitude) is zero, so a flat signal stays visible.
	fallbackPadding = 0.01
)

// Domain is the visible window of a chart. XMin <= XMax and YMin <= YMax.
type Domain struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Gesture is an in-progress drag selection on the time axis.
type Gesture struct {
	Anchor  float64 `json:"anchor"`
	Current float64 `json:"current"`
}

// Bounds returns the gesture's endpoints in ascending order.
func (g Gesture) Bounds() (lo, hi float64) {
	return math.Min(g.Anchor, g.Current), math.Max(g.Anchor, g.Current)
}

// FullDomain returns the unzoomed domain of ch over series: X spans the
// exact time extent, Y the value extent padded by 10% of its range. For a
// flat signal the padding falls back to 10% of the magnitude, then to a fixed
// minimum. An empty series yields the zero Domain. NaN values are skipped.
func FullDomain(series []types.Sample, ch types.Channel) Domain {
	if len(series) == 0 {
		return Domain{}
	}

	xMin, xMax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if math.IsNaN(s.Time) {
			continue
		}
		xMin = math.Min(xMin, s.Time)
		xMax = math.Max(xMax, s.Time)
	}
	if xMin > xMax {
		xMin, xMax = 0, 0
	}

	d := Domain{XMin: xMin, XMax: xMax}
	lo, hi, ok := valueBounds(series, ch, nil)
	if !ok {
		return d
	}

	pad := (hi - lo) * paddingRatio
	if hi-lo <= 0 {
		pad = math.Abs(lo) * paddingRatio
	}
	if pad == 0 {
		pad = fallbackPadding
	}
	d.YMin, d.YMax = lo-pad, hi+pad
	return d
}

// selectionY computes the padded Y extent of ch over the samples accepted by
// keep. It reports false when no finite value was found.
func selectionY(series []types.Sample, ch types.Channel, keep func(types.Sample) bool) (yMin, yMax float64, ok bool) {
	lo, hi, ok := valueBounds(series, ch, keep)
	if !ok {
		return 0, 0, false
	}
	pad := (hi - lo) * paddingRatio
	if pad == 0 {
		pad = fallbackPadding
	}
	return lo - pad, hi + pad, true
}

// valueBounds returns the min and max finite value of ch among the samples
// accepted by keep (all samples when keep is nil).
func valueBounds(series []types.Sample, ch types.Channel, keep func(types.Sample) bool) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if keep != nil && !keep(s) {
			continue
		}
		v := ch.Value(s)
		if !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
