// Package store holds the server's in-memory state: saved calculations,
// uploaded recordings and live chart sessions. Every collection is safe for
// concurrent use. Records are identified by UUIDv7 strings and listed newest
// first; idle chart sessions are evicted by a background loop (Run).
package store
