package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent; every field falls back to its default.
	p := writeConfig(t, `other:
  key: value
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Upload.MaxBytes() != 20_000_000 {
		t.Errorf("upload.max_size: got %d bytes, want 20000000", s.Upload.MaxBytes())
	}
	if len(s.Upload.Extensions) != 1 || s.Upload.Extensions[0] != ".txt" {
		t.Errorf("upload.extensions: got %v, want [.txt]", s.Upload.Extensions)
	}
	if s.Processor.Timeout != DefaultProcessorTimeout {
		t.Errorf("processor.timeout: got %v, want %v", s.Processor.Timeout, DefaultProcessorTimeout)
	}
	v := s.Viewer
	if v.TargetPoints != 2000 || v.TimeScale != 1000 || v.AmplitudeScale != 1000 {
		t.Errorf("viewer scaling: got %+v", v)
	}
	if v.GridSpacingX != 40 || v.GridSpacingY != 1 || v.MinSelection != 0.01 {
		t.Errorf("viewer grid: got %+v", v)
	}
	if v.SessionTTL != DefaultSessionTTL {
		t.Errorf("session_ttl: got %v, want %v", v.SessionTTL, DefaultSessionTTL)
	}
	if s.Level() != slog.LevelInfo {
		t.Errorf("Level: got %v, want info", s.Level())
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  log_level: debug
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-dash-key
  upload:
    max_size: 512 KiB
    extensions: [".txt", ".csv"]
  processor:
    url: http://proc:9000/process
    timeout: 10s
    auth:
      mode: bearer
      token_env: PROC_TOKEN
  viewer:
    target_points: 500
    grid_spacing_x: 200
    min_selection: 0.5
    session_ttl: 10m
  alerts:
    rules:
      - name: tachycardia
        condition: "hr > 120"
        severity: warning
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v, want debug", s.Level())
	}
	if s.Auth.EffectiveHeader() != "x-dash-key" {
		t.Errorf("header: got %q, want x-dash-key", s.Auth.EffectiveHeader())
	}
	if s.Upload.MaxBytes() != 512*1024 {
		t.Errorf("max bytes: got %d, want %d", s.Upload.MaxBytes(), 512*1024)
	}
	if !s.Upload.Allowed("rec.CSV") || s.Upload.Allowed("rec.bin") {
		t.Error("Allowed: extension list not applied")
	}
	if s.Processor.URL != "http://proc:9000/process" || s.Processor.Timeout != 10*time.Second {
		t.Errorf("processor: got %+v", s.Processor)
	}
	if s.Viewer.TargetPoints != 500 || s.Viewer.GridSpacingX != 200 || s.Viewer.MinSelection != 0.5 {
		t.Errorf("viewer: got %+v", s.Viewer)
	}
	// Unset viewer fields keep their defaults.
	if s.Viewer.GridSpacingY != DefaultGridSpacingY {
		t.Errorf("grid_spacing_y: got %v, want default", s.Viewer.GridSpacingY)
	}
	if len(s.Alerts.Rules) != 1 || s.Alerts.Rules[0].Condition != "hr > 120" {
		t.Errorf("alerts.rules: got %+v", s.Alerts.Rules)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	t.Setenv("TEST_PROC_TOKEN", "tok")
	t.Setenv("TEST_HOOK", "https://hooks.example/x")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
  processor:
    auth:
      mode: bearer
      token_env: TEST_PROC_TOKEN
  alerts:
    webhooks:
      - type: http
        url_env: TEST_HOOK
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if tok := cfg.Server.Processor.Auth.Token(); tok != "tok" {
		t.Errorf("Token(): got %q, want tok", tok)
	}
	if u := cfg.Server.Alerts.Webhooks[0].URL(); u != "https://hooks.example/x" {
		t.Errorf("URL(): got %q", u)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"bad max size", "server:\n  upload:\n    max_size: lots\n"},
		{"no extensions", "server:\n  upload:\n    extensions: []\n"},
		{"unknown processor auth", "server:\n  processor:\n    auth:\n      mode: kerberos\n"},
		{"apikey without header", "server:\n  processor:\n    auth:\n      mode: apikey\n"},
		{"zero target points", "server:\n  viewer:\n    target_points: 0\n"},
		{"negative grid", "server:\n  viewer:\n    grid_spacing_y: -1\n"},
		{"rule without condition", "server:\n  alerts:\n    rules:\n      - name: x\n"},
		{"unknown webhook", "server:\n  alerts:\n    webhooks:\n      - type: pager\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

func TestWatch_Reload(t *testing.T) {
	p := writeConfig(t, "server:\n  viewer:\n    target_points: 100\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  viewer:\n    target_points: 300\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// A truncating write can fire an event on the empty file first.
	deadline := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-got:
			reloaded = c.Server.Viewer.TargetPoints == 300
		case <-deadline:
			t.Fatal("no reload with target_points 300 within 3s")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Watch did not return after cancel")
	}
}

func TestWatch_RenameSaveAndInvalid(t *testing.T) {
	p := writeConfig(t, "server:\n  viewer:\n    target_points: 100\n")
	dir := filepath.Dir(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	// Invalid YAML keeps the previous config and never calls onChange.
	if err := os.WriteFile(p, []byte("server: [\n"), 0o600); err != nil {
		t.Fatalf("write invalid: %v", err)
	}
	select {
	case c := <-got:
		t.Fatalf("onChange called for invalid config: %+v", c.Server.Viewer)
	case <-time.After(500 * time.Millisecond):
	}

	// Editors that save atomically write a temp file and rename it over.
	tmp := filepath.Join(dir, ".config.yaml.swp")
	if err := os.WriteFile(tmp, []byte("server:\n  viewer:\n    target_points: 700\n"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		t.Fatalf("rename: %v", err)
	}
	select {
	case c := <-got:
		if c.Server.Viewer.TargetPoints != 700 {
			t.Errorf("target_points: got %d, want 700", c.Server.Viewer.TargetPoints)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after rename within 3s")
	}
}
