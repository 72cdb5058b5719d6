package viewport

import "github.com/herolab/signaldash/pkg/types"

// DefaultTargetPoints is the display point budget per chart.
const DefaultTargetPoints = 2000

// Scale is a fixed linear unit conversion applied to every sample.
type Scale struct {
	Time      float64 // multiplier for Time
	Amplitude float64 // multiplier for every channel value
}

// DisplayScale converts seconds to milliseconds and volts to millivolts.
var DisplayScale = Scale{Time: 1000, Amplitude: 1000}

// Apply returns a scaled copy of series.
func (s Scale) Apply(series []types.Sample) []types.Sample {
	out := make([]types.Sample, len(series))
	for i, v := range series {
		out[i] = types.Sample{
			Time:     v.Time * s.Time,
			Channel1: v.Channel1 * s.Amplitude,
			Channel2: v.Channel2 * s.Amplitude,
			Channel3: v.Channel3 * s.Amplitude,
		}
	}
	return out
}

// Stride returns the decimation step for n samples and a target point count:
// max(1, floor(n/target)). A non-positive target disables decimation.
func Stride(n, target int) int {
	if target <= 0 {
		return 1
	}
	if k := n / target; k > 1 {
		return k
	}
	return 1
}

// Resample keeps sample 0 and every stride-th sample after it, in order and
// unmodified. The input is never modified.
func Resample(series []types.Sample, stride int) []types.Sample {
	if stride < 1 {
		stride = 1
	}
	out := make([]types.Sample, 0, (len(series)+stride-1)/stride)
	for i := 0; i < len(series); i += stride {
		out = append(out, series[i])
	}
	return out
}

// Prepare turns a processed recording into its display series: unit
// conversion followed by decimation to roughly target points. It returns the
// series and the stride used.
func Prepare(data types.ProcessedData, target int, scale Scale) ([]types.Sample, int) {
	samples := data.Samples()
	stride := Stride(len(samples), target)
	return scale.Apply(Resample(samples, stride)), stride
}
