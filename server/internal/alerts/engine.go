package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/herolab/signaldash/server/internal/config"
	"github.com/herolab/signaldash/server/internal/store"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID            string     `json:"id"`
	RuleName      string     `json:"rule_name"`
	CalculationID string     `json:"calculation_id"`
	Severity      string     `json:"severity"`
	Message       string     `json:"message"`
	Value         float64    `json:"value"`
	FiredAt       time.Time  `json:"fired_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	State         string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against saved calculations and delivers
// webhook notifications when rules fire or resolve. A rule fires when a new
// calculation satisfies it and resolves when a later one does not.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts
	onFire   func(Alert)

	client *http.Client
	now    func() time.Time
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.Configure(cfg)
	return e
}

// Configure replaces the rules and webhooks. Rules whose condition does not
// parse are logged and skipped. Active alerts of removed rules are dropped.
func (e *Engine) Configure(cfg config.AlertsConfig) {
	rules := make([]config.AlertRule, 0, len(cfg.Rules))
	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if _, err := ParseCondition(r.Condition); err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, r)
		names[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
	for name := range e.active {
		if !names[name] {
			delete(e.active, name)
		}
	}
}

// OnFire registers fn to be called, synchronously, for every fired alert.
func (e *Engine) OnFire(fn func(Alert)) {
	e.mu.Lock()
	e.onFire = fn
	e.mu.Unlock()
}

// Evaluate tests all configured rules against rec.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(rec store.Calculation) {
	e.mu.Lock()
	rules := e.rules
	onFire := e.onFire
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range rules {
		key := rule.Name
		fires, value := evalCondition(rule.Condition, rec)

		e.mu.Lock()

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[key]) > cooldown {
				sev := rule.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:            fmt.Sprintf("%s:%s:%d", rule.Name, rec.ID, now.UnixNano()),
					RuleName:      rule.Name,
					CalculationID: rec.ID,
					Severity:      sev,
					Value:         value,
					Message: fmt.Sprintf("%s fired on calculation %s: %s (value %.2f)",
						rule.Name, rec.ID, rule.Condition, value),
					FiredAt: now,
					State:   "firing",
				}
				e.active[key] = a
				e.lastFire[key] = now
				alertCopy := *a
				e.mu.Unlock()

				slog.Warn("alert fired",
					"rule", rule.Name,
					"calculation", rec.ID,
					"value", value,
					"severity", sev,
				)
				if onFire != nil {
					onFire(alertCopy)
				}
				go e.deliver(alertCopy)
			} else {
				e.mu.Unlock()
			}
		} else {
			if a, ok := e.active[key]; ok && a.State == "firing" {
				resolved := now
				a.State = "resolved"
				a.ResolvedAt = &resolved
				delete(e.active, key)

				e.history = append(e.history, a)
				if len(e.history) > maxHistoryLen {
					e.history = e.history[len(e.history)-maxHistoryLen:]
				}
				alertCopy := *a
				e.mu.Unlock()

				slog.Info("alert resolved",
					"rule", rule.Name,
					"calculation", rec.ID,
				)
				go e.deliver(alertCopy)
			} else {
				e.mu.Unlock()
			}
		}
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Alert) int { return b.FiredAt.Compare(a.FiredAt) })
	return out
}
