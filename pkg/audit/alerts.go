package audit

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertSystem tracks raised alerts, per-level counters, and registered
// callbacks. Delivery is at-least-once and fire-and-forget: a failing
// callback is recorded as a diagnostic and never aborts the trigger.
type AlertSystem struct {
	mu          sync.Mutex
	alerts      []Alert
	counts      map[AlertLevel]int
	rules       []AlertRule
	callbacks   []AlertCallback
	diagnostics []Diagnostic
	logger      *slog.Logger

	clock func() time.Time
}

// NewAlertSystem creates a new alert system with the given declarative
// rules. Rules may be nil; more can be added with AddRule before episodes
// begin.
func NewAlertSystem(rules []AlertRule) *AlertSystem {
	return &AlertSystem{
		counts: make(map[AlertLevel]int),
		rules:  rules,
		logger: slog.Default().With("component", "audit.alerts"),
		clock:  time.Now,
	}
}

// AddRule registers a declarative alert rule. Rules must be registered
// before concurrent readers exist.
func (s *AlertSystem) AddRule(rule AlertRule) {
	s.rules = append(s.rules, rule)
}

// AddCallback registers a callback invoked for every triggered alert.
func (s *AlertSystem) AddCallback(cb AlertCallback) {
	s.callbacks = append(s.callbacks, cb)
}

// Trigger raises an alert: it assigns an id and timestamp, appends the
// alert to the list, increments the per-level counter, and invokes all
// registered callbacks. The completed alert is returned.
func (s *AlertSystem) Trigger(alert Alert) Alert {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.clock()
	}
	if alert.Level == "" {
		alert.Level = AlertInfo
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.counts[alert.Level]++
	callbacks := make([]AlertCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		s.deliver(cb, alert)
	}

	return alert
}

// CheckRules evaluates all declarative rules against the context and
// triggers an alert for every match. The newly triggered alerts are
// returned in rule registration order. A rule whose condition panics is
// treated as not matching and recorded as a diagnostic.
func (s *AlertSystem) CheckRules(ctx map[string]any) []Alert {
	var triggered []Alert
	for _, rule := range s.rules {
		if !s.evalCondition(rule, ctx) {
			continue
		}
		// Each alert gets its own copy of the context: callbacks may
		// mutate Details without affecting sibling alerts.
		details := make(map[string]any, len(ctx))
		for k, v := range ctx {
			details[k] = v
		}
		triggered = append(triggered, s.Trigger(Alert{
			Level:   rule.Level,
			RuleID:  rule.Name,
			Message: expandTemplate(rule.Message, ctx),
			Details: details,
		}))
	}
	return triggered
}

// Acknowledge marks the alert with the given id as acknowledged and
// reports whether it was found.
func (s *AlertSystem) Acknowledge(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Alerts returns all triggered alerts in insertion order.
func (s *AlertSystem) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Count returns the number of alerts triggered at the given level.
func (s *AlertSystem) Count(level AlertLevel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[level]
}

// Counts returns a copy of the per-level counters.
func (s *AlertSystem) Counts() map[AlertLevel]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[AlertLevel]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Diagnostics returns recovered callback and condition failures.
func (s *AlertSystem) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// deliver invokes one callback, converting errors and panics into
// diagnostics.
func (s *AlertSystem) deliver(cb AlertCallback, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			s.recordDiagnostic(NewCallbackError(alert.ID, fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := cb(alert); err != nil {
		s.recordDiagnostic(NewCallbackError(alert.ID, err))
	}
}

// evalCondition evaluates a rule condition with panic recovery.
func (s *AlertSystem) evalCondition(rule AlertRule, ctx map[string]any) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			s.recordDiagnostic(fmt.Errorf("alert rule %q condition panic: %v", rule.Name, r))
		}
	}()

	if rule.Condition == nil {
		return false
	}
	return rule.Condition(ctx)
}

func (s *AlertSystem) recordDiagnostic(err error) {
	s.logger.Error("alert side-channel failure", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Source:    "callback",
		Message:   err.Error(),
		Timestamp: s.clock(),
	})
}

// expandTemplate replaces {key} placeholders in the template with the
// corresponding context values.
func expandTemplate(template string, ctx map[string]any) string {
	out := template
	for key, value := range ctx {
		placeholder := "{" + key + "}"
		if strings.Contains(out, placeholder) {
			out = strings.ReplaceAll(out, placeholder, fmt.Sprintf("%v", value))
		}
	}
	return out
}
