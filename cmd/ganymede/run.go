package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/audit/retention"
	"mercator-hq/ganymede/pkg/audit/storage"
	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/harness"
	"mercator-hq/ganymede/pkg/scenario/wireapproval"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

var (
	runCaseID   string
	runScript   string
	runEpisodes int
	runWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an episode of the wire-approval reference scenario",
	Long: `Run drives one episode of the built-in wire-approval scenario.

Actions are read one per line from the script file (or stdin): either a
structured capability call like

  {"tool": "verify_identity", "args": {}}

or plain text, which is treated as a message to the customer. Each step's
observation, reward, and info are printed as JSON; the final evaluation is
printed when the episode terminates or is truncated.

With --episodes > 1 the script is replayed once per episode. With --watch
the configuration file is reloaded when it changes on disk, and the
harness settings (max steps, enforcement mode) of the latest valid
configuration apply to each subsequent episode.`,
	RunE: runEpisode,
}

func init() {
	runCmd.Flags().StringVar(&runCaseID, "case", "", "case id to evaluate (default: first sample case)")
	runCmd.Flags().StringVar(&runScript, "script", "", "file with one action per line (default: stdin)")
	runCmd.Flags().IntVar(&runEpisodes, "episodes", 1, "number of episodes to run (> 1 requires --script)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "reload the config file between episodes (requires --config)")
	rootCmd.AddCommand(runCmd)
}

// liveConfig holds the configuration currently in effect. The watcher
// goroutine replaces it; the episode loop reads a snapshot before each
// reset.
type liveConfig struct {
	mu  sync.Mutex
	cfg *config.Config
}

func (l *liveConfig) set(cfg *config.Config) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

func (l *liveConfig) get() *config.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

func runEpisode(cmd *cobra.Command, args []string) error {
	if runEpisodes < 1 {
		return fmt.Errorf("--episodes must be at least 1, got %d", runEpisodes)
	}
	if runEpisodes > 1 && runScript == "" {
		return fmt.Errorf("running %d episodes requires --script: stdin cannot be replayed", runEpisodes)
	}
	if runWatch && cfgFile == "" {
		return fmt.Errorf("--watch requires --config")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logging.Setup(cfg.Logging)

	store, err := buildStorage(cfg)
	if err != nil {
		return err
	}
	trail := audit.NewTrail(store, nil)
	defer trail.Close()

	if store != nil && cfg.Audit.Retention.Schedule != "" {
		pruner := retention.NewPruner(store, &retention.Config{
			RetentionDays:       cfg.Audit.Retention.Days,
			PruneSchedule:       cfg.Audit.Retention.Schedule,
			ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
			ArchivePath:         cfg.Audit.Retention.ArchivePath,
		})
		if err := pruner.Start(); err != nil {
			return err
		}
		defer pruner.Stop()
	}

	sc, err := selectScenario(runCaseID)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics, nil)
		if cfg.Metrics.ListenAddress != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				_ = http.ListenAndServe(cfg.Metrics.ListenAddress, mux)
			}()
		}
	}

	var m harness.Metrics
	if collector != nil {
		m = collector
	}

	live := &liveConfig{cfg: cfg}
	if runWatch {
		watcher, err := config.NewWatcher(cfgFile, live.set)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	for i := 0; i < runEpisodes; i++ {
		current := live.get()
		runner, err := harness.ForScenario(sc, harness.Config{
			MaxSteps: current.Harness.MaxSteps,
			Mode:     capability.EnforcementMode(current.Harness.EnforcementMode),
		}, trail, m)
		if err != nil {
			return err
		}
		if err := driveEpisode(runner); err != nil {
			return err
		}
	}
	return nil
}

// driveEpisode runs one episode to completion, reading actions from the
// script file (reopened per episode) or stdin.
func driveEpisode(runner *harness.Runner) error {
	obs, err := runner.Reset()
	if err != nil {
		return err
	}
	printJSON(map[string]any{"observation": obs})

	input, closeInput, err := openScript(runScript)
	if err != nil {
		return err
	}
	defer closeInput()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		action := strings.TrimSpace(scanner.Text())
		if action == "" {
			continue
		}

		stepObs, rew, terminated, truncated, info := runner.Step(action)
		printJSON(map[string]any{
			"observation": stepObs,
			"reward":      rew,
			"terminated":  terminated,
			"truncated":   truncated,
			"info":        info,
		})

		if terminated || truncated {
			return nil
		}
	}
	return scanner.Err()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

func buildStorage(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Backend {
	case "none":
		return nil, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "jsonl":
		return storage.NewJSONLStorage(&storage.JSONLConfig{Dir: cfg.Audit.Dir})
	case "sqlite":
		sqliteCfg := storage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Audit.SQLitePath
		return storage.NewSQLiteStorage(sqliteCfg)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

func selectScenario(caseID string) (*wireapproval.Scenario, error) {
	if caseID == "" {
		return wireapproval.Default(), nil
	}
	for _, c := range wireapproval.SampleCases() {
		if c.ID == caseID {
			return wireapproval.New(c), nil
		}
	}
	return nil, fmt.Errorf("unknown case %q", caseID)
}

func openScript(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open script %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func printJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
