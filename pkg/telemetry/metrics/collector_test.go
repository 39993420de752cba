package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(nil, nil)

	c.EpisodeStarted("wire_approval")
	c.EpisodeStarted("wire_approval")
	c.StepCompleted("wire_approval")
	c.CapabilityCalled("wire_approval", "approve_wire", "error")
	c.RuleTriggered("wire_approval", "approved_without_required_checks")
	c.AlertRaised("CRITICAL")

	if got := testutil.ToFloat64(c.episodesStarted.WithLabelValues("wire_approval")); got != 2 {
		t.Errorf("episodes_started_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.steps.WithLabelValues("wire_approval")); got != 1 {
		t.Errorf("steps_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.capabilityCalls.WithLabelValues("wire_approval", "approve_wire", "error")); got != 1 {
		t.Errorf("capability_calls_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ruleTriggers.WithLabelValues("wire_approval", "approved_without_required_checks")); got != 1 {
		t.Errorf("rule_triggers_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.alerts.WithLabelValues("CRITICAL")); got != 1 {
		t.Errorf("alerts_total = %v, want 1", got)
	}
}

func TestCollectorEpisodeEnded(t *testing.T) {
	c := NewCollector(nil, nil)

	c.EpisodeEnded("wire_approval", "terminated", 5, -9.5)

	if got := testutil.ToFloat64(c.episodesEnded.WithLabelValues("wire_approval", "terminated")); got != 1 {
		t.Errorf("episodes_ended_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.episodeReward); got != 1 {
		t.Errorf("episode_reward series = %d, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector(&Config{Namespace: "ganymede", Subsystem: "harness"}, nil)
	c.EpisodeStarted("wire_approval")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ganymede_harness_episodes_started_total") {
		t.Errorf("exposition missing episode counter:\n%s", body)
	}
}
