package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold on a saved calculation.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over hr, ptt and mbp:
	// "hr > 120", "mbp < 60", "ptt <= 0.05".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultLogLevel          = "info"
	DefaultMaxUploadSize     = "20MB"
	DefaultProcessorTimeout  = 60 * time.Second
	DefaultTargetPoints      = 2000
	DefaultTimeScale         = 1000.0
	DefaultAmplitudeScale    = 1000.0
	DefaultGridSpacingX      = 40.0
	DefaultGridSpacingY      = 1.0
	DefaultMinSelection      = 0.01
	DefaultSessionTTL        = 30 * time.Minute
	DefaultBroadcastInterval = 5 * time.Second
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Auth configures how the server authenticates incoming REST and WebSocket clients.
	Auth AuthConfig `yaml:"auth"`

	// Upload limits accepted recording files.
	Upload UploadConfig `yaml:"upload"`

	// Processor is the signal-processing service recordings are sent to.
	Processor ProcessorConfig `yaml:"processor"`

	// Viewer tunes the zoomable chart sessions.
	Viewer ViewerConfig `yaml:"viewer"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// UploadConfig limits recording uploads.
type UploadConfig struct {
	// MaxSize is a human size string such as "20MB" or "512 KiB".
	MaxSize string `yaml:"max_size"`

	// Extensions lists the accepted file extensions, lower case with the dot.
	Extensions []string `yaml:"extensions"`
}

// MaxBytes returns MaxSize in bytes. It returns 0 if MaxSize does not parse;
// validate rejects such configs.
func (u UploadConfig) MaxBytes() int64 {
	n, err := humanize.ParseBytes(u.MaxSize)
	if err != nil {
		return 0
	}
	return int64(n)
}

// Allowed reports whether name carries one of the accepted extensions.
func (u UploadConfig) Allowed(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range u.Extensions {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ProcessorConfig points at the service that turns a raw recording into
// processed channel arrays.
type ProcessorConfig struct {
	// URL receives the raw file as a POST body. Empty disables server-side
	// processing; the processor may still push results via PUT.
	URL string `yaml:"url"`

	// Timeout bounds one processing request (default 60s).
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how the server authenticates to the processor.
	Auth ClientAuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// ClientAuthConfig specifies how outgoing requests authenticate.
type ClientAuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header name to send the key in (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a ClientAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a ClientAuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a ClientAuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ViewerConfig tunes chart sessions: display scaling, decimation, grid and
// gesture thresholds.
type ViewerConfig struct {
	TargetPoints      int           `yaml:"target_points"`
	TimeScale         float64       `yaml:"time_scale"`
	AmplitudeScale    float64       `yaml:"amplitude_scale"`
	GridSpacingX      float64       `yaml:"grid_spacing_x"`
	GridSpacingY      float64       `yaml:"grid_spacing_y"`
	MinSelection      float64       `yaml:"min_selection"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// Level maps LogLevel to a slog level. Unknown values give info.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Upload: UploadConfig{
				MaxSize:    DefaultMaxUploadSize,
				Extensions: []string{".txt"},
			},
			Processor: ProcessorConfig{
				Timeout: DefaultProcessorTimeout,
			},
			Viewer: ViewerConfig{
				TargetPoints:      DefaultTargetPoints,
				TimeScale:         DefaultTimeScale,
				AmplitudeScale:    DefaultAmplitudeScale,
				GridSpacingX:      DefaultGridSpacingX,
				GridSpacingY:      DefaultGridSpacingY,
				MinSelection:      DefaultMinSelection,
				SessionTTL:        DefaultSessionTTL,
				BroadcastInterval: DefaultBroadcastInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if _, err := humanize.ParseBytes(s.Upload.MaxSize); err != nil {
		return fmt.Errorf("server.upload.max_size %q: %w", s.Upload.MaxSize, err)
	}
	if len(s.Upload.Extensions) == 0 {
		return fmt.Errorf("server.upload.extensions must not be empty")
	}
	switch s.Processor.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("server.processor.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", s.Processor.Auth.Mode)
	}
	if s.Processor.Auth.Mode == "apikey" && s.Processor.Auth.Header == "" {
		return fmt.Errorf("server.processor.auth.header is required for apikey mode")
	}
	if s.Processor.Timeout <= 0 {
		return fmt.Errorf("server.processor.timeout must be positive")
	}

	v := s.Viewer
	if v.TargetPoints <= 0 {
		return fmt.Errorf("server.viewer.target_points must be positive")
	}
	if v.TimeScale <= 0 || v.AmplitudeScale <= 0 {
		return fmt.Errorf("server.viewer time_scale and amplitude_scale must be positive")
	}
	if v.GridSpacingX <= 0 || v.GridSpacingY <= 0 {
		return fmt.Errorf("server.viewer grid spacing must be positive")
	}
	if v.MinSelection < 0 {
		return fmt.Errorf("server.viewer.min_selection must not be negative")
	}
	if v.SessionTTL < 0 {
		return fmt.Errorf("server.viewer.session_ttl must not be negative")
	}
	if v.BroadcastInterval <= 0 {
		return fmt.Errorf("server.viewer.broadcast_interval must be positive")
	}

	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
