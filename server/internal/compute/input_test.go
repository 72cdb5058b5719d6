package compute

import (
	"errors"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestParseInput_Valid(t *testing.T) {
	in, err := ParseInput(map[string]string{
		"ri": "0", "ri_next": " 0.8 ", "foot_j": "0.5", "r_j": "0.2", "h": "1.2",
	})
	if err != nil {
		t.Fatalf("ParseInput: %v", err)
	}
	if in != validInput() {
		t.Errorf("Input = %+v, want %+v", in, validInput())
	}
}

func TestParseInput_FirstBadFieldReported(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]string
		wantField string
	}{
		{"all missing", map[string]string{}, FieldRI},
		{"ri_next blank", map[string]string{"ri": "0", "ri_next": "  ", "foot_j": "x", "r_j": "0", "h": "1"}, FieldRINext},
		{"foot_j not a number", map[string]string{"ri": "0", "ri_next": "1", "foot_j": "abc", "r_j": "0", "h": "1"}, FieldFootJ},
		{"h is NaN", map[string]string{"ri": "0", "ri_next": "1", "foot_j": "1", "r_j": "0", "h": "NaN"}, FieldH},
		{"r_j is Inf", map[string]string{"ri": "0", "ri_next": "1", "foot_j": "1", "r_j": "+Inf", "h": "1"}, FieldRJ},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseInput(tc.raw)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			var ve *ValidationError
			errors.As(err, &ve)
			if ve.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tc.wantField)
			}
		})
	}
}

func TestInputFrom_MissingField(t *testing.T) {
	_, err := InputFrom(map[string]*float64{
		"ri": ptr(0), "ri_next": ptr(1), "foot_j": ptr(1), "h": ptr(1),
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != FieldRJ {
		t.Fatalf("err = %v, want invalid r_j", err)
	}
	if ve.Kind != KindInvalidInput {
		t.Errorf("Kind = %q, want %q", ve.Kind, KindInvalidInput)
	}
}

func TestInputFrom_InvalidInputBeatsInvalidRange(t *testing.T) {
	// ri_next < ri would be a range error, but a missing h is reported first.
	in, err := InputFrom(map[string]*float64{
		"ri": ptr(2), "ri_next": ptr(1), "foot_j": ptr(1), "r_j": ptr(0),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput (input %+v)", err, in)
	}
}
