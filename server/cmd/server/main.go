package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/herolab/signaldash/server/internal/alerts"
	"github.com/herolab/signaldash/server/internal/api"
	"github.com/herolab/signaldash/server/internal/auth"
	"github.com/herolab/signaldash/server/internal/config"
	"github.com/herolab/signaldash/server/internal/processor"
	"github.com/herolab/signaldash/server/internal/render"
	"github.com/herolab/signaldash/server/internal/store"
	"github.com/herolab/signaldash/server/internal/telemetry"
	"github.com/herolab/signaldash/server/internal/ws"
)

const certCheckInterval = 6 * time.Hour

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard UI static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("signaldash-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"upload_limit", humanize.Bytes(uint64(cfg.Server.Upload.MaxBytes())),
		"processor", cfg.Server.Processor.URL,
		"session_ttl", cfg.Server.Viewer.SessionTTL,
	)

	var current atomic.Pointer[config.ServerConfig]
	current.Store(&cfg.Server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// In-memory store; idle chart sessions are evicted in the background.
	st := store.New(cfg.Server.Viewer.SessionTTL)
	go st.Sessions.Run(ctx)

	metrics := telemetry.NewRegistry()

	// Alerts engine: evaluates rules on every saved calculation.
	alertEngine := alerts.New(cfg.Server.Alerts)
	alertEngine.OnFire(func(a alerts.Alert) {
		metrics.IncLabel(telemetry.AlertsFired, "rule", a.RuleName)
	})

	proc, err := processor.New(cfg.Server.Processor)
	if err != nil {
		slog.Error("failed to configure processing client", "err", err)
		os.Exit(1)
	}
	if !proc.Enabled() {
		slog.Warn("no processor url configured; recordings can only receive data via PUT")
	}
	go watchCert(ctx, proc, metrics)

	renderer, err := render.NewRenderer(render.Config{})
	if err != nil {
		slog.Warn("plot rendering disabled", "err", err)
		renderer = nil
	}

	// WebSocket hub: pushes the calculation list to UI clients.
	hub := ws.New(ws.EventCalculations, api.BuildFeed(st), cfg.Server.Viewer.BroadcastInterval)
	go hub.Run(ctx)

	metrics.Gauge(telemetry.Recordings, func() float64 {
		total, _ := st.Recordings.Count()
		return float64(total)
	})
	metrics.Gauge(telemetry.ViewSessions, func() float64 { return float64(st.Sessions.Count()) })
	metrics.Gauge(telemetry.StreamClients, func() float64 { return float64(hub.Count()) })

	// Hot reload: viewer settings, session TTL, alert rules and log level
	// apply without a restart. Port, auth and processor changes need one.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			current.Store(&next.Server)
			level.Set(next.Server.Level())
			st.Sessions.SetTTL(next.Server.Viewer.SessionTTL)
			alertEngine.Configure(next.Server.Alerts)
			slog.Info("config reloaded",
				"rules", len(next.Server.Alerts.Rules),
				"target_points", next.Server.Viewer.TargetPoints,
			)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	handler := api.New(api.Deps{
		Store:     st,
		Processor: proc,
		Alerts:    alertEngine,
		Metrics:   metrics,
		Renderer:  renderer,
		Notify:    hub.Notify,
		Config:    func() config.ServerConfig { return *current.Load() },
	})

	requireKey := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", requireKey(handler))
	httpMux.Handle("/ws/stream", requireKey(hub))
	httpMux.Handle("/metrics", metrics.Handler())

	// Optional: serve the pre-built UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("signaldash-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// watchCert checks the processing service certificate now and then every
// certCheckInterval, exporting the days left as a gauge. It returns at once
// when the service is not reached over https.
func watchCert(ctx context.Context, proc *processor.Client, metrics *telemetry.Registry) {
	var daysLeft atomic.Int64
	check := func() bool {
		cs := proc.CheckCert(ctx)
		if cs == nil {
			return false
		}
		daysLeft.Store(int64(cs.DaysLeft))
		logCert(cs)
		return true
	}
	if !check() {
		return
	}
	metrics.Gauge(telemetry.ProcessorCertDays, func() float64 { return float64(daysLeft.Load()) })

	t := time.NewTicker(certCheckInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

func logCert(cs *processor.CertStatus) {
	switch cs.Status {
	case "valid":
		slog.Debug("processor certificate checked", "days_left", cs.DaysLeft, "issuer", cs.Issuer)
	case "unreachable":
		slog.Warn("processor unreachable for certificate check", "endpoint", cs.Endpoint)
	default:
		slog.Warn("processor certificate "+cs.Status,
			"endpoint", cs.Endpoint,
			"days_left", cs.DaysLeft,
			"not_after", cs.NotAfter,
		)
	}
}
