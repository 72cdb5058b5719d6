// Package ws implements the WebSocket hub behind /ws/stream.
//
// Hub manages a set of connected clients and broadcasts a payload to all of
// them on a configurable interval (default 5s in production) and whenever
// Notify is called, e.g. after a calculation is saved or deleted.
//
// New(event, source, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast loop; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// payload immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "calculations",
//	  "data":  { "calculations": [...], "stats": {...}, "generated_at": "..." }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws
