package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names exported by the server.
const (
	CalculationsCreated = "signaldash_calculations_created_total"
	ValidationFailures  = "signaldash_validation_failures_total"
	UploadsAccepted     = "signaldash_uploads_total"
	UploadsRejected     = "signaldash_upload_rejections_total"
	ProcessingRuns      = "signaldash_processing_runs_total"
	ProcessingFailures  = "signaldash_processing_failures_total"
	AlertsFired         = "signaldash_alerts_fired_total"
	Recordings          = "signaldash_recordings"
	ViewSessions        = "signaldash_view_sessions"
	StreamClients       = "signaldash_stream_clients"
	ProcessorCertDays   = "signaldash_processor_cert_days_left"
)

var help = map[string]string{
	CalculationsCreated: "Calculation records saved.",
	ValidationFailures:  "Calculation inputs rejected, by error kind.",
	UploadsAccepted:     "Recording files accepted.",
	UploadsRejected:     "Recording uploads rejected, by reason.",
	ProcessingRuns:      "Recordings sent to the processing service.",
	ProcessingFailures:  "Processing requests that failed.",
	AlertsFired:         "Alert rules fired, by rule name.",
	Recordings:          "Recordings held in memory.",
	ViewSessions:        "Live chart sessions.",
	StreamClients:       "Connected WebSocket stream clients.",
	ProcessorCertDays:   "Days until the processing service certificate expires.",
}

type counter struct {
	label  string             // label name, empty for an unlabelled counter
	values map[string]float64 // label value → count
}

// Registry holds counters and gauge callbacks. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*counter
	gauges   map[string]func() float64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*counter),
		gauges:   make(map[string]func() float64),
	}
}

// Inc adds one to an unlabelled counter.
func (r *Registry) Inc(name string) {
	r.Add(name, "", "", 1)
}

// IncLabel adds one to the series of a labelled counter.
func (r *Registry) IncLabel(name, label, value string) {
	r.Add(name, label, value, 1)
}

// Add adds v to a counter series. A counter keeps the label name it was
// first used with.
func (r *Registry) Add(name, label, value string, v float64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &counter{label: label, values: make(map[string]float64)}
		r.counters[name] = c
	}
	c.values[value] += v
}

// Value returns the current value of a counter series.
func (r *Registry) Value(name, value string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c.values[value]
	}
	return 0
}

// Gauge registers fn to be read at every scrape. Registering a name again
// replaces the callback.
func (r *Registry) Gauge(name string, fn func() float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = fn
}

// Gather builds metric families for every counter and gauge, sorted by name.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	out := make([]*dto.MetricFamily, 0, len(r.counters)+len(r.gauges))
	for name, c := range r.counters {
		out = append(out, counterFamily(name, c))
	}
	gauges := make(map[string]func() float64, len(r.gauges))
	for name, fn := range r.gauges {
		gauges[name] = fn
	}
	r.mu.Unlock()

	// Callbacks may take other locks; call them outside ours.
	for name, fn := range gauges {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(helpFor(name)),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: proto.Float64(fn())},
			}},
		})
	}

	slices.SortFunc(out, func(a, b *dto.MetricFamily) int {
		return strings.Compare(a.GetName(), b.GetName())
	})
	return out
}

// WriteText encodes all families in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves GET /metrics.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := r.WriteText(w); err != nil {
			slog.Error("telemetry: write metrics", "err", err)
		}
	})
}

func counterFamily(name string, c *counter) *dto.MetricFamily {
	values := make([]string, 0, len(c.values))
	for v := range c.values {
		values = append(values, v)
	}
	slices.Sort(values)

	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(helpFor(name)),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, v := range values {
		m := &dto.Metric{Counter: &dto.Counter{Value: proto.Float64(c.values[v])}}
		if c.label != "" {
			m.Label = []*dto.LabelPair{{Name: proto.String(c.label), Value: proto.String(v)}}
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

func helpFor(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
