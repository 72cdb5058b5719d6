package types

import (
	"fmt"
	"strings"
)

// Sample is one time-aligned reading of all three acquisition channels.
type Sample struct {
	Time     float64 `json:"time"`
	Channel1 float64 `json:"channel1"`
	Channel2 float64 `json:"channel2"`
	Channel3 float64 `json:"channel3"`
}

// ProcessedData is the output of the processing service: one time axis and
// three amplitude arrays of the same length, in seconds and volts.
type ProcessedData struct {
	Time     []float64 `json:"time"`
	Channel1 []float64 `json:"channel1"`
	Channel2 []float64 `json:"channel2"`
	Channel3 []float64 `json:"channel3"`
}

// Len returns the number of complete samples, i.e. the length of the
// shortest array.
func (p ProcessedData) Len() int {
	n := len(p.Time)
	for _, c := range [][]float64{p.Channel1, p.Channel2, p.Channel3} {
		if len(c) < n {
			n = len(c)
		}
	}
	return n
}

// Samples zips the parallel arrays into a sample slice. Equal lengths are
// the producer's contract; surplus values in longer arrays are ignored.
func (p ProcessedData) Samples() []Sample {
	n := p.Len()
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample{
			Time:     p.Time[i],
			Channel1: p.Channel1[i],
			Channel2: p.Channel2[i],
			Channel3: p.Channel3[i],
		}
	}
	return out
}

// Channel selects one of the three acquisition channels.
type Channel int

const (
	PCG Channel = iota + 1 // channel1, phonocardiogram
	PPG                    // channel2, photoplethysmogram
	ECG                    // channel3, electrocardiogram
)

// Channels lists every channel in acquisition order.
var Channels = []Channel{PCG, PPG, ECG}

// Value returns the channel's reading from s. An unknown channel reads 0.
func (c Channel) Value(s Sample) float64 {
	switch c {
	case PCG:
		return s.Channel1
	case PPG:
		return s.Channel2
	case ECG:
		return s.Channel3
	default:
		return 0
	}
}

// Values returns the channel's array from p. An unknown channel has none.
func (c Channel) Values(p ProcessedData) []float64 {
	switch c {
	case PCG:
		return p.Channel1
	case PPG:
		return p.Channel2
	case ECG:
		return p.Channel3
	default:
		return nil
	}
}

// Key returns the JSON field name of the channel ("channel1" ...).
func (c Channel) Key() string {
	if !c.Valid() {
		return ""
	}
	return fmt.Sprintf("channel%d", int(c))
}

// Name returns the display name of the channel.
func (c Channel) Name() string {
	switch c {
	case PCG:
		return "PCG (Phonocardiogram)"
	case PPG:
		return "PPG (Photoplethysmogram)"
	case ECG:
		return "ECG (Electrocardiogram)"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the three known channels.
func (c Channel) Valid() bool {
	return c >= PCG && c <= ECG
}

// ParseChannel accepts "channel1".."channel3", "1".."3" or the short names
// "pcg", "ppg", "ecg" (case-insensitive).
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel1", "1", "pcg":
		return PCG, nil
	case "channel2", "2", "ppg":
		return PPG, nil
	case "channel3", "3", "ecg":
		return ECG, nil
	default:
		return 0, fmt.Errorf("unknown channel %q: want channel1|channel2|channel3", s)
	}
}
