// Package render draws a chart view as a PNG: the calibrated grid, the
// visible trace of one channel, the in-progress drag selection and axis
// labels.
package render
