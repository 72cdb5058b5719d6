// Package processor is the client for the signal-processing service. The
// service receives a raw recording file and answers with the processed time
// axis and channel arrays as JSON.
//
// Outgoing requests carry the configured authentication (API key, bearer
// token, basic auth or client certificate) and are bounded by the configured
// timeout.
//
// CheckCert inspects the service's TLS certificate so the server can report
// its remaining lifetime.
package processor
