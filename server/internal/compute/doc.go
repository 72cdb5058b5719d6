// Package compute derives haemodynamic metrics from manually picked waveform
// landmarks.
//
// calculator.go provides the pure Calculate(Input) function:
//
//	hr  = 60 / (R_i+1 - R_i)                     beats per minute
//	ptt = foot_j - R_j                           seconds
//	mbp = 1.947 * h^2 / ptt^2 + 31.84 * h        mmHg
//
// The MBP coefficients are an empirical regression fit and are kept verbatim.
//
// input.go turns raw form strings or optional JSON numbers into an Input,
// reporting the first missing or non-finite field. Validation always runs to
// completion before any arithmetic; errors are *ValidationError values that
// match ErrInvalidInput or ErrInvalidRange with errors.Is.
//
// Results carry full precision. Rounded() applies the display precision
// (hr 2 decimals, ptt 6, mbp 2) and must only be used for presentation.
package compute
