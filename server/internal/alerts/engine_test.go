package alerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/herolab/signaldash/server/internal/config"
)

func TestEngine_FireAndResolve(t *testing.T) {
	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "tachycardia", Condition: "hr > 120", Severity: "critical"}},
	})
	base := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return base }

	var fired []Alert
	e.OnFire(func(a Alert) { fired = append(fired, a) })

	e.Evaluate(record(130, 0.1, 90))
	active := e.Active()
	if len(active) != 1 || active[0].State != "firing" || active[0].Value != 130 {
		t.Fatalf("Active after fire: got %+v", active)
	}
	if active[0].CalculationID != "calc-1" || active[0].Severity != "critical" {
		t.Errorf("alert fields: got %+v", active[0])
	}
	if len(fired) != 1 {
		t.Errorf("OnFire calls: got %d, want 1", len(fired))
	}

	e.Evaluate(record(70, 0.1, 90))
	active = e.Active()
	if len(active) != 1 || active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Fatalf("Active after resolve: got %+v", active)
	}
}

func TestEngine_Cooldown(t *testing.T) {
	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "hypotension", Condition: "mbp < 60", Cooldown: time.Minute}},
	})
	now := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return now }

	count := 0
	e.OnFire(func(Alert) { count++ })

	e.Evaluate(record(70, 0.1, 50))
	now = now.Add(30 * time.Second)
	e.Evaluate(record(70, 0.1, 50))
	if count != 1 {
		t.Errorf("fires within cooldown: got %d, want 1", count)
	}

	now = now.Add(time.Minute)
	e.Evaluate(record(70, 0.1, 50))
	if count != 2 {
		t.Errorf("fires after cooldown: got %d, want 2", count)
	}
}

func TestEngine_ConfigureSkipsBadRules(t *testing.T) {
	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{
			{Name: "bad", Condition: "pulse > 1"},
			{Name: "good", Condition: "hr > 100"},
		},
	})
	e.Evaluate(record(150, 0.1, 90))
	active := e.Active()
	if len(active) != 1 || active[0].RuleName != "good" {
		t.Fatalf("Active: got %+v, want only rule good", active)
	}

	e.Configure(config.AlertsConfig{})
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after removing rules: got %d, want 0", n)
	}
	e.Evaluate(record(150, 0.1, 90)) // no rules: no-op
}

func TestEngine_WebhookDelivery(t *testing.T) {
	var mu sync.Mutex
	var got map[string]Alert
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		done <- struct{}{}
	}))
	defer srv.Close()

	t.Setenv("TEST_ALERT_HOOK", srv.URL)
	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "tachycardia", Condition: "hr > 120"}},
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "TEST_ALERT_HOOK"}},
	})
	e.Evaluate(record(140, 0.1, 90))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("webhook not delivered within 3s")
	}
	mu.Lock()
	defer mu.Unlock()
	if a := got["alert"]; a.RuleName != "tachycardia" || a.State != "firing" {
		t.Errorf("webhook payload: got %+v", got)
	}
}
