package viewport

import (
	"math"
	"slices"
	"testing"
)

func TestGridLines(t *testing.T) {
	tests := []struct {
		name          string
		min, max, gap float64
		want          []float64
	}{
		{"aligned", 0, 120, 40, []float64{0, 40, 80, 120}},
		{"unaligned", 15, 95, 40, []float64{0, 40, 80, 120}},
		{"negative", -2.5, 1.5, 1, []float64{-3, -2, -1, 0, 1, 2}},
		{"degenerate domain", 80, 80, 40, []float64{80}},
		{"zero spacing", 0, 10, 0, nil},
		{"negative spacing", 0, 10, -1, nil},
		{"NaN bound", math.NaN(), 10, 1, nil},
		{"inverted", 10, 0, 1, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := slices.Collect(GridLines(tc.min, tc.max, tc.gap))
			if !slices.Equal(got, tc.want) {
				t.Errorf("GridLines(%v, %v, %v) = %v, want %v", tc.min, tc.max, tc.gap, got, tc.want)
			}
		})
	}
}

func TestGridLines_CoverDomain(t *testing.T) {
	for _, d := range []Domain{
		{XMin: 3.2, XMax: 997.1, YMin: -1.7, YMax: 2.3},
		{XMin: -40, XMax: 40, YMin: 0.2, YMax: 0.4},
	} {
		xs := slices.Collect(GridLines(d.XMin, d.XMax, DefaultGridSpacingX))
		if len(xs) == 0 || xs[0] > d.XMin || xs[len(xs)-1] < d.XMax {
			t.Errorf("x grid %v does not cover [%v, %v]", xs, d.XMin, d.XMax)
		}
		ys := slices.Collect(GridLines(d.YMin, d.YMax, DefaultGridSpacingY))
		if len(ys) == 0 || ys[0] > d.YMin || ys[len(ys)-1] < d.YMax {
			t.Errorf("y grid %v does not cover [%v, %v]", ys, d.YMin, d.YMax)
		}
	}
}

func TestGridLines_Capped(t *testing.T) {
	n := 0
	for range GridLines(0, 1e12, 1) {
		n++
	}
	if n != maxGridLines {
		t.Errorf("lines: got %d, want %d", n, maxGridLines)
	}
}

func TestGridRange_SeqRestartsAndStopsEarly(t *testing.T) {
	seq := NewGridRange(0, 200, 40).Seq()

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second iteration = %v, want %v", second, first)
	}

	var got []float64
	for v := range seq {
		if v > 40 {
			break
		}
		got = append(got, v)
	}
	if want := []float64{0, 40}; !slices.Equal(got, want) {
		t.Errorf("early stop = %v, want %v", got, want)
	}
}

func TestAxis_String(t *testing.T) {
	if AxisX.String() != "x" || AxisY.String() != "y" {
		t.Errorf("Axis strings: got %q %q", AxisX, AxisY)
	}
}
