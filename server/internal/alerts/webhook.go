package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// teamsCard is the legacy Office 365 connector card accepted by Teams
// incoming webhooks.
type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Sections   []teamsSection `json:"sections"`
}

type teamsSection struct {
	Text  string      `json:"text"`
	Facts []teamsFact `json:"facts"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// deliver posts a to every configured webhook. Failures are logged per target.
func (e *Engine) deliver(a Alert) {
	e.mu.Lock()
	webhooks := e.webhooks
	e.mu.Unlock()

	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		body, err := payload(wh.Type, a)
		if err != nil {
			slog.Warn("alerts: skipping webhook", "type", wh.Type, "err", err)
			continue
		}
		if err := e.post(url, body); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"calculation", a.CalculationID,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

// payload renders a in the body format of the given webhook type.
func payload(kind string, a Alert) ([]byte, error) {
	switch kind {
	case "slack":
		return json.Marshal(map[string]string{"text": slackText(a)})
	case "teams":
		return json.Marshal(teamsCard{
			Type:       "MessageCard",
			Context:    "http://schema.org/extensions",
			ThemeColor: severityColor(a.Severity, a.State),
			Summary:    a.RuleName,
			Title:      fmt.Sprintf("signaldash: %s %s", a.RuleName, a.State),
			Sections: []teamsSection{{
				Text:  a.Message,
				Facts: facts(a),
			}},
		})
	case "http":
		return json.Marshal(map[string]any{"alert": a})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", kind)
	}
}

func slackText(a Alert) string {
	var b strings.Builder
	if a.State == "resolved" {
		b.WriteString("*[RESOLVED]* ")
	} else {
		fmt.Fprintf(&b, "*[%s]* ", strings.ToUpper(a.Severity))
	}
	b.WriteString(a.Message)
	for _, f := range facts(a)[1:] {
		fmt.Fprintf(&b, "\n• %s: %s", f.Name, f.Value)
	}
	return b.String()
}

func facts(a Alert) []teamsFact {
	out := []teamsFact{
		{Name: "Rule", Value: a.RuleName},
		{Name: "Calculation", Value: a.CalculationID},
		{Name: "Value", Value: fmt.Sprintf("%.2f", a.Value)},
		{Name: "Fired", Value: a.FiredAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	if a.ResolvedAt != nil {
		out = append(out, teamsFact{Name: "Resolved", Value: a.ResolvedAt.UTC().Format("2006-01-02 15:04:05 MST")})
	}
	return out
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// severityColor is the Teams card accent: green once resolved, otherwise by
// severity.
func severityColor(severity, state string) string {
	if state == "resolved" {
		return "2EB67D"
	}
	switch severity {
	case "critical":
		return "E01E5A"
	case "warning":
		return "ECB22E"
	default:
		return "36C5F0"
	}
}
