package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/config"
)

func processed() types.ProcessedData {
	return types.ProcessedData{
		Time:     []float64{0, 0.001, 0.002},
		Channel1: []float64{0.1, 0.2, 0.3},
		Channel2: []float64{1, 2, 3},
		Channel3: []float64{-1, 0, 1},
	}
}

func TestProcess_Success(t *testing.T) {
	var gotBody, gotName, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotName = r.Header.Get(FileNameHeader)
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(processed()) //nolint:errcheck
	}))
	defer srv.Close()

	t.Setenv("TEST_PROC_TOKEN", "tok123")
	c, err := New(config.ProcessorConfig{
		URL:     srv.URL,
		Timeout: 5 * time.Second,
		Auth:    config.ClientAuthConfig{Mode: "bearer", TokenEnv: "TEST_PROC_TOKEN"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := c.Process(context.Background(), "subject.txt", []byte("0.0\t1\t2\t3\n"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if data.Len() != 3 || data.Channel3[2] != 1 {
		t.Errorf("data: got %+v", data)
	}
	if gotBody != "0.0\t1\t2\t3\n" {
		t.Errorf("body: got %q", gotBody)
	}
	if gotName != "subject.txt" {
		t.Errorf("%s: got %q, want subject.txt", FileNameHeader, gotName)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization: got %q, want Bearer tok123", gotAuth)
	}
}

func TestProcess_AuthModes(t *testing.T) {
	t.Setenv("TEST_PROC_KEY", "k1")
	t.Setenv("TEST_PROC_PASS", "p1")

	tests := []struct {
		name  string
		auth  config.ClientAuthConfig
		check func(r *http.Request) bool
	}{
		{
			"apikey",
			config.ClientAuthConfig{Mode: "apikey", Header: "x-proc-key", KeyEnv: "TEST_PROC_KEY"},
			func(r *http.Request) bool { return r.Header.Get("x-proc-key") == "k1" },
		},
		{
			"basic",
			config.ClientAuthConfig{Mode: "basic", Username: "u", PasswordEnv: "TEST_PROC_PASS"},
			func(r *http.Request) bool { u, p, ok := r.BasicAuth(); return ok && u == "u" && p == "p1" },
		},
		{
			"none",
			config.ClientAuthConfig{Mode: "none"},
			func(r *http.Request) bool { return r.Header.Get("Authorization") == "" },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !tc.check(r) {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				json.NewEncoder(w).Encode(processed()) //nolint:errcheck
			}))
			defer srv.Close()

			c, err := New(config.ProcessorConfig{URL: srv.URL, Auth: tc.auth})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := c.Process(context.Background(), "a.txt", nil); err != nil {
				t.Errorf("Process: %v", err)
			}
		})
	}
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad file format", http.StatusUnprocessableEntity)
			},
			"unexpected status 422: bad file format",
		},
		{
			"invalid json",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{not json")) }, //nolint:errcheck
			"decode response",
		},
		{
			"ragged arrays",
			func(w http.ResponseWriter, r *http.Request) {
				d := processed()
				d.Channel2 = d.Channel2[:1]
				json.NewEncoder(w).Encode(d) //nolint:errcheck
			},
			"channel2 has 1 values",
		},
		{
			"empty",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{}")) }, //nolint:errcheck
			"empty time axis",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c, _ := New(config.ProcessorConfig{URL: srv.URL})
			_, err := c.Process(context.Background(), "a.txt", []byte("x"))
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("err: got %v, want containing %q", err, tc.wantMsg)
			}
		})
	}
}

func TestProcess_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, _ := New(config.ProcessorConfig{URL: srv.URL, Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Process(ctx, "a.txt", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err: got %v, want deadline exceeded", err)
	}
}

func TestProcess_Disabled(t *testing.T) {
	c, err := New(config.ProcessorConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled: got true for empty url")
	}
	if _, err := c.Process(context.Background(), "a.txt", nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("err: got %v, want ErrDisabled", err)
	}
}

func TestNew_MTLSMissingCert(t *testing.T) {
	_, err := New(config.ProcessorConfig{
		URL:  "https://proc.invalid",
		Auth: config.ClientAuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"},
	})
	if err == nil {
		t.Fatal("expected error for missing client cert")
	}
}
