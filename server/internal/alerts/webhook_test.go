package alerts

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPayload(t *testing.T) {
	fired := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := Alert{
		RuleName:      "tachycardia",
		CalculationID: "calc-1",
		Severity:      "critical",
		Message:       "tachycardia fired",
		Value:         132.5,
		FiredAt:       fired,
		State:         "firing",
	}

	t.Run("slack", func(t *testing.T) {
		body, err := payload("slack", a)
		if err != nil {
			t.Fatalf("payload: %v", err)
		}
		var got map[string]string
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		text := got["text"]
		if !strings.HasPrefix(text, "*[CRITICAL]* tachycardia fired") {
			t.Errorf("text: got %q", text)
		}
		if !strings.Contains(text, "Value: 132.50") || strings.Contains(text, "Rule:") {
			t.Errorf("facts: got %q", text)
		}
	})

	t.Run("teams resolved", func(t *testing.T) {
		resolved := fired.Add(time.Minute)
		r := a
		r.State = "resolved"
		r.ResolvedAt = &resolved
		body, err := payload("teams", r)
		if err != nil {
			t.Fatalf("payload: %v", err)
		}
		var card teamsCard
		if err := json.Unmarshal(body, &card); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if card.ThemeColor != "2EB67D" || card.Title != "signaldash: tachycardia resolved" {
			t.Errorf("card: got %+v", card)
		}
		if len(card.Sections) != 1 || len(card.Sections[0].Facts) != 5 {
			t.Fatalf("sections: got %+v", card.Sections)
		}
		if f := card.Sections[0].Facts[4]; f.Name != "Resolved" || f.Value != "2025-03-01 12:01:00 UTC" {
			t.Errorf("resolved fact: got %+v", f)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := payload("pagerduty", a); err == nil {
			t.Error("unknown type: want error")
		}
	})
}
