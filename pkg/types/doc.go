// Package types defines the shared signal data model used by the server
// packages: one multi-channel Sample, the Channel selector, and the
// parallel-array ProcessedData payload delivered by the processing service.
package types
