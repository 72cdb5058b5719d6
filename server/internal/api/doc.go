// Package api implements the HTTP REST API for signaldash-server.
//
// New(deps) returns an http.Handler that serves:
//
//	GET    /api/v1/health                       store counts, alert count, processor status
//	GET    /api/v1/recordings                   uploaded recordings, newest first
//	POST   /api/v1/recordings                   upload (multipart field "file", .txt only)
//	GET    /api/v1/recordings/{id}              processed data, statistics, quality hints
//	POST   /api/v1/recordings/{id}/process      send to the processing service; 502 on failure
//	PUT    /api/v1/recordings/{id}/data         processing service pushes its result
//	DELETE /api/v1/recordings/{id}
//	POST   /api/v1/calculate                    HR, PTT, MBP rounded for display; nothing saved
//	GET    /api/v1/calculations                 saved records, newest first
//	POST   /api/v1/calculations                 validate, compute and save a record
//	GET    /api/v1/calculations/{id}
//	DELETE /api/v1/calculations/{id}
//	POST   /api/v1/views                        open a chart session {recording_id, channel}
//	GET    /api/v1/views/{id}                   domain, full domain, selection, grid lines
//	GET    /api/v1/views/{id}/points            display samples inside the current domain
//	POST   /api/v1/views/{id}/brush             {start_index, end_index}
//	POST   /api/v1/views/{id}/drag/begin        {time}
//	POST   /api/v1/views/{id}/drag/update       {time}
//	POST   /api/v1/views/{id}/drag/end
//	POST   /api/v1/views/{id}/reset
//	GET    /api/v1/views/{id}/plot.png          rendered chart
//	DELETE /api/v1/views/{id}
//	GET    /api/v1/alerts                       firing and recently resolved alerts
//
// All endpoints:
//   - Respond with Content-Type: application/json, except plot.png and 204s
//   - Return 405 for unsupported methods and 404 for unknown ids
//   - Report calculation input errors as 400 {"error", "field", "kind"}
//
// Calculation inputs are accepted as JSON (numbers or numeric strings) or as
// a form-encoded body. Gesture routes serialise on the session, so each chart
// sees its operations one at a time.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
