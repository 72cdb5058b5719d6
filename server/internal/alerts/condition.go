package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/herolab/signaldash/server/internal/store"
)

// Condition is a parsed "field operator value" rule expression.
type Condition struct {
	Field     string
	Op        string
	Threshold float64
}

// ParseCondition parses a rule condition over a calculation record.
//
// Supported expressions (field operator value):
//
//	hr > 120
//	hr < 40
//	mbp >= 110
//	mbp < 60
//	ptt <= 0.05
//
// Inputs (ri, ri_next, foot_j, r_j, h) may be used as fields too.
// Operators: > >= < <= == !=.
func ParseCondition(cond string) (Condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	c := Condition{Field: parts[0], Op: parts[1]}
	if _, ok := numericField(c.Field, store.Calculation{}); !ok {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", cond, c.Field)
	}
	switch c.Op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", cond, c.Op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", cond, err)
	}
	c.Threshold = v
	return c, nil
}

// Eval reports whether rec satisfies the condition, and the field value.
func (c Condition) Eval(rec store.Calculation) (bool, float64) {
	v, ok := numericField(c.Field, rec)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Threshold), v
}

// evalCondition parses and evaluates cond against rec.
// Returns (false, 0) if the expression cannot be parsed.
func evalCondition(cond string, rec store.Calculation) (bool, float64) {
	c, err := ParseCondition(cond)
	if err != nil {
		return false, 0
	}
	return c.Eval(rec)
}

// numericField maps a field name to its value in the record.
func numericField(field string, rec store.Calculation) (float64, bool) {
	switch field {
	case "hr":
		return rec.HR, true
	case "ptt":
		return rec.PTT, true
	case "mbp":
		return rec.MBP, true
	case "ri":
		return rec.RI, true
	case "ri_next":
		return rec.RINext, true
	case "foot_j":
		return rec.FootJ, true
	case "r_j":
		return rec.RJ, true
	case "h":
		return rec.H, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
