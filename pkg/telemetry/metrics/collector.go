// Package metrics provides Prometheus instrumentation for the harness.
//
// The Collector implements the harness Metrics seam and exposes counters
// for episodes, steps, capability calls, rule triggers, and alerts, plus
// histograms for per-episode reward and step counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains metrics configuration.
type Config struct {
	// Enabled turns instrumentation on.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace. Default: "ganymede".
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem. Default: "harness".
	Subsystem string `yaml:"subsystem"`

	// ListenAddress is where the CLI serves /metrics, if set.
	ListenAddress string `yaml:"listen_address"`

	// RewardBuckets are histogram buckets for episode total reward.
	RewardBuckets []float64 `yaml:"reward_buckets"`
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "ganymede",
		Subsystem: "harness",
	}
}

// Collector registers and records all harness metrics against one
// Prometheus registry.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	episodesStarted *prometheus.CounterVec
	episodesEnded   *prometheus.CounterVec
	steps           *prometheus.CounterVec
	capabilityCalls *prometheus.CounterVec
	ruleTriggers    *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	episodeReward   *prometheus.HistogramVec
	episodeSteps    *prometheus.HistogramVec
}

// NewCollector creates a collector bound to the given registry. If
// registry is nil a fresh one is created.
func NewCollector(config *Config, registry *prometheus.Registry) *Collector {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Namespace == "" {
		config.Namespace = "ganymede"
	}
	if config.Subsystem == "" {
		config.Subsystem = "harness"
	}
	if len(config.RewardBuckets) == 0 {
		config.RewardBuckets = []float64{-50, -20, -10, -5, 0, 5, 10, 20, 50, 100}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   config,
		registry: registry,
		episodesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "episodes_started_total",
			Help:      "Episodes started, by scenario.",
		}, []string{"scenario"}),
		episodesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "episodes_ended_total",
			Help:      "Episodes ended, by scenario and outcome (terminated/truncated).",
		}, []string{"scenario", "outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "steps_total",
			Help:      "Run-loop steps completed, by scenario.",
		}, []string{"scenario"}),
		capabilityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "capability_calls_total",
			Help:      "Capability invocations, by scenario, capability, and result status.",
		}, []string{"scenario", "capability", "status"}),
		ruleTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "rule_triggers_total",
			Help:      "First-time vulnerability rule triggers, by scenario and rule.",
		}, []string{"scenario", "rule"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "alerts_total",
			Help:      "Alerts raised, by level.",
		}, []string{"level"}),
		episodeReward: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "episode_reward",
			Help:      "Total reward per completed episode.",
			Buckets:   config.RewardBuckets,
		}, []string{"scenario"}),
		episodeSteps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "episode_steps",
			Help:      "Steps taken per completed episode.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100},
		}, []string{"scenario"}),
	}

	registry.MustRegister(
		c.episodesStarted,
		c.episodesEnded,
		c.steps,
		c.capabilityCalls,
		c.ruleTriggers,
		c.alerts,
		c.episodeReward,
		c.episodeSteps,
	)
	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// EpisodeStarted records an episode start.
func (c *Collector) EpisodeStarted(scenarioID string) {
	c.episodesStarted.WithLabelValues(scenarioID).Inc()
}

// EpisodeEnded records an episode end with its outcome and totals.
func (c *Collector) EpisodeEnded(scenarioID, outcome string, steps int, totalReward float64) {
	c.episodesEnded.WithLabelValues(scenarioID, outcome).Inc()
	c.episodeReward.WithLabelValues(scenarioID).Observe(totalReward)
	c.episodeSteps.WithLabelValues(scenarioID).Observe(float64(steps))
}

// StepCompleted records one run-loop step.
func (c *Collector) StepCompleted(scenarioID string) {
	c.steps.WithLabelValues(scenarioID).Inc()
}

// CapabilityCalled records one capability invocation.
func (c *Collector) CapabilityCalled(scenarioID, capabilityName, status string) {
	c.capabilityCalls.WithLabelValues(scenarioID, capabilityName, status).Inc()
}

// RuleTriggered records the first firing of a rule in an episode.
func (c *Collector) RuleTriggered(scenarioID, ruleID string) {
	c.ruleTriggers.WithLabelValues(scenarioID, ruleID).Inc()
}

// AlertRaised records one raised alert.
func (c *Collector) AlertRaised(level string) {
	c.alerts.WithLabelValues(level).Inc()
}
