package processor

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/config"
)

// FileNameHeader carries the original upload name to the processing service.
const FileNameHeader = "X-File-Name"

// maxResponseBytes bounds the decoded response body.
const maxResponseBytes = 256 << 20

// ErrDisabled is returned by Process when no processor URL is configured.
var ErrDisabled = errors.New("processor: no url configured")

// Client sends recordings to the processing service.
type Client struct {
	url      string
	authMode string
	insecure bool
	client   *http.Client
}

// New builds a Client for cfg. It fails only when TLS material cannot be
// loaded; an empty URL yields a client whose Process returns ErrDisabled.
func New(cfg config.ProcessorConfig) (*Client, error) {
	hc, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("processor: build http client: %w", err)
	}
	return &Client{
		url:      cfg.URL,
		authMode: cfg.Auth.Mode,
		insecure: cfg.TLS.InsecureSkipVerify,
		client:   hc,
	}, nil
}

// Enabled reports whether a processor URL is configured.
func (c *Client) Enabled() bool { return c != nil && c.url != "" }

// Process posts raw to the processing service and decodes the processed
// arrays. The arrays must be non-empty and of equal length.
func (c *Client) Process(ctx context.Context, fileName string, raw []byte) (types.ProcessedData, error) {
	if !c.Enabled() {
		return types.ProcessedData{}, ErrDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return types.ProcessedData{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(FileNameHeader, fileName)

	resp, err := c.client.Do(req)
	if err != nil {
		return types.ProcessedData{}, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.ProcessedData{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var data types.ProcessedData
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&data); err != nil {
		return types.ProcessedData{}, fmt.Errorf("decode response: %w", err)
	}
	if err := Check(data); err != nil {
		return types.ProcessedData{}, err
	}
	return data, nil
}

// Check verifies that processed data has a non-empty time axis and three
// channel arrays of the same length.
func Check(data types.ProcessedData) error {
	n := len(data.Time)
	if n == 0 {
		return errors.New("processed data: empty time axis")
	}
	for _, ch := range types.Channels {
		if got := len(ch.Values(data)); got != n {
			return fmt.Errorf("processed data: %s has %d values, time has %d", ch.Key(), got, n)
		}
	}
	return nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.ClientAuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the configured auth, TLS and
// timeout settings.
func buildHTTPClient(cfg config.ProcessorConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultProcessorTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: cfg.Auth,
		},
		Timeout: timeout,
	}, nil
}
