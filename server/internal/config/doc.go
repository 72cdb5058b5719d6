// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort            port for the REST API and WebSocket hub (default 8080)
//   - LogLevel            debug | info | warn | error (default info)
//   - Auth                API key check on /api/ and /ws/ ("apikey" or "none")
//   - Upload.MaxSize      human size string, e.g. "20MB" (default 20MB)
//   - Upload.Extensions   accepted recording extensions (default [".txt"])
//   - Processor           URL, timeout and client auth of the processing service
//   - Viewer              display scaling, decimation target, grid spacing,
//                         drag threshold, session TTL, broadcast interval
//   - Alerts              threshold rules on saved calculations and webhooks
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads on file change and keeps the previous config
// when a reload fails.
package config
