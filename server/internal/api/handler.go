package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/alerts"
	"github.com/herolab/signaldash/server/internal/config"
	"github.com/herolab/signaldash/server/internal/render"
	"github.com/herolab/signaldash/server/internal/store"
	"github.com/herolab/signaldash/server/internal/telemetry"
)

// Processor turns a raw recording into processed channel arrays.
type Processor interface {
	Process(ctx context.Context, fileName string, raw []byte) (types.ProcessedData, error)
}

// Deps are the collaborators of the API handler. Store is required; the rest
// may be left nil.
type Deps struct {
	Store     *store.Store
	Processor Processor
	Alerts    *alerts.Engine
	Metrics   *telemetry.Registry
	Renderer  *render.Renderer

	// Notify is called after the calculation list changes.
	Notify func()

	// Config returns the current server configuration. It is called per
	// request so hot-reloaded settings apply to the next request.
	Config func() config.ServerConfig
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	d   Deps
	mux *http.ServeMux
}

// New creates a Handler wired to d and registers all routes.
func New(d Deps) http.Handler {
	if d.Notify == nil {
		d.Notify = func() {}
	}
	if d.Config == nil {
		def := config.Default().Server
		d.Config = func() config.ServerConfig { return def }
	}
	h := &Handler{d: d, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/recordings", h.recordings)
	h.mux.HandleFunc("/api/v1/recordings/", h.recording) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/calculate", h.calculate)
	h.mux.HandleFunc("/api/v1/calculations", h.calculations)
	h.mux.HandleFunc("/api/v1/calculations/", h.calculation) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/views", h.views)
	h.mux.HandleFunc("/api/v1/views/", h.view) // subtree, extracts {id}/{action}
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// BuildFeed returns the payload pushed to WebSocket stream clients: all
// calculation records, newest first, with store counts.
func BuildFeed(st *store.Store) func() any {
	return func() any {
		return Feed{
			Calculations: st.Calculations.List(),
			Stats:        st.Stats(),
			GeneratedAt:  rfc3339(time.Now()),
		}
	}
}

// health returns GET /api/v1/health: store counts and collaborator status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats := h.d.Store.Stats()
	resp := HealthResponse{
		Status:           "ok",
		Recordings:       stats.Recordings,
		Processed:        stats.Processed,
		Calculations:     stats.Calculations,
		Sessions:         stats.Sessions,
		ProcessorEnabled: h.processorEnabled(),
	}
	if h.d.Alerts != nil {
		resp.AlertCount = len(h.d.Alerts.Active())
	}
	jsonResp(w, http.StatusOK, resp)
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []*alerts.Alert{}
	if h.d.Alerts != nil {
		out = h.d.Alerts.Active()
	}
	jsonResp(w, http.StatusOK, out)
}

// --- helpers ----------------------------------------------------------------

// processorEnabled reports whether recordings can be sent for processing.
func (h *Handler) processorEnabled() bool {
	if h.d.Processor == nil {
		return false
	}
	if p, ok := h.d.Processor.(interface{ Enabled() bool }); ok {
		return p.Enabled()
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// subpath splits the part of r's path after prefix into an id and the
// remaining action, e.g. "abc/drag/begin" → ("abc", "drag/begin").
func subpath(r *http.Request, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, action, _ = strings.Cut(rest, "/")
	return id, action
}

// decodeJSON decodes a request body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
