package compute

import (
	"strconv"
	"strings"
)

// ParseInput builds an Input from raw form values keyed by field name.
// The first field (in Fields order) that is missing, blank, unparseable or
// not finite yields an ErrInvalidInput naming it.
func ParseInput(raw map[string]string) (Input, error) {
	opt := make(map[string]*float64, len(Fields))
	for _, f := range Fields {
		s := strings.TrimSpace(raw[f])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		opt[f] = &v
	}
	return InputFrom(opt)
}

// InputFrom builds an Input from optional values keyed by field name, as
// decoded from a JSON body. A nil or absent entry is reported as
// ErrInvalidInput for that field.
func InputFrom(values map[string]*float64) (Input, error) {
	var out [5]float64
	for i, f := range Fields {
		v := values[f]
		if v == nil || !isFinite(*v) {
			return Input{}, invalidInput(f)
		}
		out[i] = *v
	}
	return Input{RI: out[0], RINext: out[1], FootJ: out[2], RJ: out[3], H: out[4]}, nil
}
