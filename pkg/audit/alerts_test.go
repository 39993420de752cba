package audit

import (
	"errors"
	"strings"
	"testing"
)

func TestTriggerAssignsIDAndCounts(t *testing.T) {
	s := NewAlertSystem(nil)

	a1 := s.Trigger(Alert{Level: AlertHigh, Message: "first"})
	a2 := s.Trigger(Alert{Level: AlertHigh, Message: "second"})
	s.Trigger(Alert{Level: AlertCritical, Message: "third"})

	if a1.ID == "" || a2.ID == "" || a1.ID == a2.ID {
		t.Errorf("alert ids = %q, %q, want distinct non-empty ids", a1.ID, a2.ID)
	}
	if a1.Timestamp.IsZero() {
		t.Error("alert timestamp not assigned")
	}
	if got := s.Count(AlertHigh); got != 2 {
		t.Errorf("Count(HIGH) = %d, want 2", got)
	}
	if got := s.Count(AlertCritical); got != 1 {
		t.Errorf("Count(CRITICAL) = %d, want 1", got)
	}
	if got := len(s.Alerts()); got != 3 {
		t.Errorf("Alerts() has %d entries, want 3", got)
	}
}

func TestTriggerDefaultsLevelToInfo(t *testing.T) {
	s := NewAlertSystem(nil)
	a := s.Trigger(Alert{Message: "unlabeled"})
	if a.Level != AlertInfo {
		t.Errorf("level = %q, want INFO", a.Level)
	}
}

func TestCheckRulesEveryMatchTriggers(t *testing.T) {
	highSeverity := func(ctx map[string]any) bool {
		v, _ := ctx["risk"].(float64)
		return v >= 0.8
	}

	// Two rules sharing one condition must both fire on a single check.
	s := NewAlertSystem([]AlertRule{
		{Name: "risk_watch", Level: AlertWarning, Condition: highSeverity, Message: "risk {risk} on case {case_id}"},
		{Name: "risk_page", Level: AlertHigh, Condition: highSeverity, Message: "paging for case {case_id}"},
		{Name: "never", Level: AlertCritical, Condition: func(map[string]any) bool { return false }},
	})

	triggered := s.CheckRules(map[string]any{"risk": 0.9, "case_id": "CASE-7"})

	if len(triggered) != 2 {
		t.Fatalf("CheckRules() triggered %d alerts, want 2", len(triggered))
	}
	if triggered[0].RuleID != "risk_watch" || triggered[1].RuleID != "risk_page" {
		t.Errorf("trigger order = %q, %q, want registration order", triggered[0].RuleID, triggered[1].RuleID)
	}
	if got := triggered[0].Message; got != "risk 0.9 on case CASE-7" {
		t.Errorf("expanded message = %q", got)
	}
	if s.Count(AlertWarning) != 1 || s.Count(AlertHigh) != 1 {
		t.Errorf("counts = %v", s.Counts())
	}
}

func TestCheckRulesAlertsOwnTheirDetails(t *testing.T) {
	always := func(map[string]any) bool { return true }
	s := NewAlertSystem([]AlertRule{
		{Name: "first", Level: AlertWarning, Condition: always},
		{Name: "second", Level: AlertWarning, Condition: always},
	})
	// A callback that mutates one alert's details must not change the
	// sibling alert or the caller's context map.
	s.AddCallback(func(a Alert) error {
		if a.RuleID == "first" {
			a.Details["case_id"] = "TAMPERED"
		}
		return nil
	})

	ctx := map[string]any{"case_id": "CASE-7"}
	triggered := s.CheckRules(ctx)

	if len(triggered) != 2 {
		t.Fatalf("CheckRules() triggered %d alerts, want 2", len(triggered))
	}
	if ctx["case_id"] != "CASE-7" {
		t.Errorf("caller context mutated: case_id = %v", ctx["case_id"])
	}
	alerts := s.Alerts()
	if alerts[0].Details["case_id"] != "TAMPERED" {
		t.Errorf("first alert details = %v, want callback mutation visible", alerts[0].Details)
	}
	if alerts[1].Details["case_id"] != "CASE-7" {
		t.Errorf("second alert details = %v, want CASE-7", alerts[1].Details)
	}
}

func TestCheckRulesPanickingConditionNoMatch(t *testing.T) {
	s := NewAlertSystem([]AlertRule{
		{Name: "broken", Level: AlertHigh, Condition: func(map[string]any) bool { panic("bad cast") }},
		{Name: "fine", Level: AlertInfo, Condition: func(map[string]any) bool { return true }},
	})

	triggered := s.CheckRules(map[string]any{})

	if len(triggered) != 1 || triggered[0].RuleID != "fine" {
		t.Fatalf("CheckRules() = %+v, want only the healthy rule", triggered)
	}
	if len(s.Diagnostics()) != 1 {
		t.Errorf("Diagnostics() has %d entries, want 1", len(s.Diagnostics()))
	}
}

func TestCallbackFailuresRecorded(t *testing.T) {
	s := NewAlertSystem(nil)

	var delivered []string
	s.AddCallback(func(a Alert) error {
		delivered = append(delivered, a.Message)
		return nil
	})
	s.AddCallback(func(a Alert) error { return errors.New("webhook 500") })
	s.AddCallback(func(a Alert) error { panic("nil channel send") })

	s.Trigger(Alert{Level: AlertHigh, Message: "incident"})

	if len(delivered) != 1 || delivered[0] != "incident" {
		t.Errorf("healthy callback saw %v", delivered)
	}

	diags := s.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("Diagnostics() has %d entries, want 2", len(diags))
	}
	if !strings.Contains(diags[0].Message, "webhook 500") {
		t.Errorf("first diagnostic = %q", diags[0].Message)
	}
	if !strings.Contains(diags[1].Message, "panic") {
		t.Errorf("second diagnostic = %q", diags[1].Message)
	}
}

func TestAcknowledge(t *testing.T) {
	s := NewAlertSystem(nil)
	a := s.Trigger(Alert{Level: AlertInfo, Message: "x"})

	if !s.Acknowledge(a.ID) {
		t.Error("Acknowledge() = false for existing alert")
	}
	if s.Acknowledge("missing") {
		t.Error("Acknowledge() = true for unknown id")
	}
	if !s.Alerts()[0].Acknowledged {
		t.Error("alert not marked acknowledged")
	}
}

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ctx      map[string]any
		want     string
	}{
		{
			name:     "multiple placeholders",
			template: "case {case_id} at step {step}",
			ctx:      map[string]any{"case_id": "C-1", "step": 4},
			want:     "case C-1 at step 4",
		},
		{
			name:     "unknown placeholder left intact",
			template: "value {missing}",
			ctx:      map[string]any{"other": 1},
			want:     "value {missing}",
		},
		{
			name:     "no placeholders",
			template: "static text",
			ctx:      map[string]any{"k": "v"},
			want:     "static text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandTemplate(tt.template, tt.ctx); got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}
