package compute

import "math"

// Regression coefficients of the MBP formula.
const (
	mbpQuadratic = 1.947
	mbpLinear    = 31.84
)

// Field names, in validation order.
const (
	FieldRI     = "ri"
	FieldRINext = "ri_next"
	FieldFootJ  = "foot_j"
	FieldRJ     = "r_j"
	FieldH      = "h"
)

// Fields lists the input fields in the order they are validated.
var Fields = []string{FieldRI, FieldRINext, FieldFootJ, FieldRJ, FieldH}

// Input holds the five manually picked values.
type Input struct {
	// RI and RINext are successive R-peak timestamps in seconds.
	RI     float64 `json:"ri"`
	RINext float64 `json:"ri_next"`

	// FootJ is the pulse wave foot and RJ the reference R-peak, in seconds.
	FootJ float64 `json:"foot_j"`
	RJ    float64 `json:"r_j"`

	// H is the height differential in metres.
	H float64 `json:"h"`
}

// Result is the output of Calculate.
type Result struct {
	HR  float64 `json:"hr"`  // beats per minute
	PTT float64 `json:"ptt"` // seconds
	MBP float64 `json:"mbp"` // mmHg
}

// Validate checks in against the documented constraints in order and returns
// the first violation.
func (in Input) Validate() error {
	values := in.values()
	for i, f := range Fields {
		if !isFinite(values[i]) {
			return invalidInput(f)
		}
	}
	if in.RINext <= in.RI {
		return invalidRange(FieldRINext, "R_i+1 must exceed R_i")
	}
	if in.FootJ <= in.RJ {
		return invalidRange(FieldFootJ, "foot_j must exceed R_j")
	}
	if in.H <= 0 {
		return invalidRange(FieldH, "h must be positive")
	}
	return nil
}

// Calculate validates in and derives heart rate, pulse transit time and mean
// blood pressure at full precision.
func Calculate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	rr := in.RINext - in.RI
	ptt := in.FootJ - in.RJ

	return Result{
		HR:  60.0 / rr,
		PTT: ptt,
		MBP: mbpQuadratic*(in.H*in.H)/(ptt*ptt) + mbpLinear*in.H,
	}, nil
}

// Rounded returns r at display precision: hr and mbp to 2 decimals, ptt to 6.
func (r Result) Rounded() Result {
	return Result{
		HR:  Round(r.HR, 2),
		PTT: Round(r.PTT, 6),
		MBP: Round(r.MBP, 2),
	}
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (in Input) values() [5]float64 {
	return [5]float64{in.RI, in.RINext, in.FootJ, in.RJ, in.H}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
