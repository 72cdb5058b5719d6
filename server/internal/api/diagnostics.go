package api

import (
	"fmt"
	"math"
	"slices"

	"github.com/herolab/signaldash/pkg/types"
)

// Thresholds for recording quality hints.
const (
	minDurationSeconds = 2.0   // two R-R intervals at 60 bpm
	minSamplingRateHz  = 250.0 // below this R-peak and pulse-foot timing blur
)

// DiagnosticHint is one human-readable note about a processed recording.
// The UI shows these as chips above the charts.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation shown on hover.
	Detail string `json:"detail"`
	// Value is an optional number associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// ChannelStats summarises one channel of a processed recording.
type ChannelStats struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Range   float64 `json:"range"`
	Invalid int     `json:"invalid"` // NaN or infinite values, excluded from the stats
}

// RecordingMetrics is the statistics block returned with processed data.
type RecordingMetrics struct {
	TotalSamples  int            `json:"total_samples"`
	Duration      float64        `json:"duration"`      // seconds
	SamplingRate  float64        `json:"sampling_rate"` // Hz, 0 when unknown
	MeanAmplitude float64        `json:"mean_amplitude"`
	StdAmplitude  float64        `json:"std_amplitude"`
	Channels      []ChannelStats `json:"channels"`
}

// computeMetrics derives per-channel statistics and overall figures from data.
func computeMetrics(data types.ProcessedData) RecordingMetrics {
	n := data.Len()
	m := RecordingMetrics{TotalSamples: n}
	if n > 1 {
		m.Duration = data.Time[n-1] - data.Time[0]
		if m.Duration > 0 {
			m.SamplingRate = float64(n-1) / m.Duration
		}
	}

	var all []float64
	for _, ch := range types.Channels {
		values := ch.Values(data)[:n]
		cs, finite := channelStats(values)
		cs.Key = ch.Key()
		cs.Name = ch.Name()
		m.Channels = append(m.Channels, cs)
		all = append(all, finite...)
	}
	m.MeanAmplitude, m.StdAmplitude = meanStd(all)
	return m
}

// channelStats returns the statistics of values and the finite subset they
// were computed from.
func channelStats(values []float64) (ChannelStats, []float64) {
	var cs ChannelStats
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			cs.Invalid++
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return cs, finite
	}

	sorted := slices.Sorted(slices.Values(finite))
	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.Range = cs.Max - cs.Min
	if mid := len(sorted) / 2; len(sorted)%2 == 1 {
		cs.Median = sorted[mid]
	} else {
		cs.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	cs.Mean, cs.Std = meanStd(finite)
	return cs, finite
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

// computeDiagnostics derives quality hints from a recording's data and its
// metrics. Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(data types.ProcessedData, m RecordingMetrics) []DiagnosticHint {
	if m.TotalSamples == 0 {
		return []DiagnosticHint{{
			Key:    "no_samples",
			Level:  "critical",
			Title:  "No samples",
			Detail: "The processing service returned no samples for this recording. Check the file format and process it again.",
		}}
	}

	hints := []DiagnosticHint{}

	if !slices.IsSorted(data.Time[:m.TotalSamples]) {
		hints = append(hints, DiagnosticHint{
			Key:   "time_unordered",
			Level: "warning",
			Title: "Time axis out of order",
			Detail: "Timestamps are not non-decreasing. Zooming by time and the grid " +
				"may show gaps or overlaps until the recording is reprocessed.",
		})
	}

	for _, cs := range m.Channels {
		if cs.Invalid > 0 {
			v := float64(cs.Invalid)
			hints = append(hints, DiagnosticHint{
				Key:   "invalid_" + cs.Key,
				Level: "warning",
				Title: fmt.Sprintf("%d invalid values", cs.Invalid),
				Detail: fmt.Sprintf("%s has %d values that are not finite numbers. "+
					"They are skipped when scaling the chart.", cs.Name, cs.Invalid),
				Value: &v,
			})
		}
		if cs.Invalid < m.TotalSamples && cs.Range == 0 {
			v := cs.Min
			hints = append(hints, DiagnosticHint{
				Key:   "flat_" + cs.Key,
				Level: "warning",
				Title: "Flat signal",
				Detail: fmt.Sprintf("%s is constant at %g. The sensor may have been "+
					"disconnected during the recording.", cs.Name, cs.Min),
				Value: &v,
			})
		}
	}

	if m.SamplingRate > 0 && m.SamplingRate < minSamplingRateHz {
		v := m.SamplingRate
		hints = append(hints, DiagnosticHint{
			Key:   "low_sampling_rate",
			Level: "warning",
			Title: fmt.Sprintf("%.0f Hz sampling", m.SamplingRate),
			Detail: fmt.Sprintf("The recording is sampled at about %.0f Hz. Peak and "+
				"pulse-foot positions picked from it are only accurate to %.1f ms.",
				m.SamplingRate, 1000/m.SamplingRate),
			Value: &v,
		})
	}

	if m.Duration < minDurationSeconds {
		v := m.Duration
		hints = append(hints, DiagnosticHint{
			Key:   "short_recording",
			Level: "info",
			Title: "Short recording",
			Detail: fmt.Sprintf("The recording covers %.2f s. At least two consecutive "+
				"R peaks are needed to compute heart rate.", m.Duration),
			Value: &v,
		})
	}

	slices.SortStableFunc(hints, func(a, b DiagnosticHint) int {
		return levelRank(a.Level) - levelRank(b.Level)
	})
	return hints
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 0
	case "warning":
		return 1
	default:
		return 2
	}
}
