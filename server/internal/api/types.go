package api

import (
	"time"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/compute"
	"github.com/herolab/signaldash/server/internal/store"
	"github.com/herolab/signaldash/server/internal/viewport"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	Recordings       int    `json:"recordings"`
	Processed        int    `json:"processed"`
	Calculations     int    `json:"calculations"`
	Sessions         int    `json:"sessions"`
	AlertCount       int    `json:"alert_count"`
	ProcessorEnabled bool   `json:"processor_enabled"`
}

// RecordingResponse is the payload for GET /api/v1/recordings/{id} and the
// process and data routes.
type RecordingResponse struct {
	store.RecordingSummary
	ProcessedData types.ProcessedData `json:"processed_data"`
	Metrics       RecordingMetrics    `json:"metrics"`
	Diagnostics   []DiagnosticHint    `json:"diagnostics"`
}

// CalculationResult is the payload for POST /api/v1/calculate.
type CalculationResult struct {
	compute.Result
	FileName string `json:"file_name,omitempty"`
}

// CreateViewRequest is the body of POST /api/v1/views.
type CreateViewRequest struct {
	RecordingID string `json:"recording_id"`
	Channel     string `json:"channel"` // channel1 | channel2 | channel3
}

// BrushRequest is the body of POST /api/v1/views/{id}/brush.
type BrushRequest struct {
	StartIndex *int `json:"start_index"`
	EndIndex   *int `json:"end_index"`
}

// DragRequest is the body of the drag/begin and drag/update routes.
type DragRequest struct {
	Time *float64 `json:"time"`
}

// ViewResponse is the state of one chart session.
type ViewResponse struct {
	ID          string `json:"id"`
	RecordingID string `json:"recording_id"`
	Channel     string `json:"channel"`
	ChannelName string `json:"channel_name"`
	viewport.State
	GridX      []float64 `json:"grid_x"`
	GridY      []float64 `json:"grid_y"`
	Stride     int       `json:"stride"`
	PointCount int       `json:"point_count"`
	Changed    *bool     `json:"changed,omitempty"` // set by gesture routes
}

// PointsResponse is the payload for GET /api/v1/views/{id}/points.
type PointsResponse struct {
	ID     string          `json:"id"`
	Domain viewport.Domain `json:"domain"`
	Time   []float64       `json:"time"`
	Values []float64       `json:"values"`
}

// Feed is the payload broadcast on /ws/stream.
type Feed struct {
	Calculations []store.Calculation `json:"calculations"`
	Stats        store.Stats         `json:"stats"`
	GeneratedAt  string              `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body. Field and Kind are set for
// calculation input errors.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
