// Package harness implements the episode runner: the generic run loop
// shared by every scenario.
//
// A driver calls Reset to begin an episode and Step repeatedly to advance
// it:
//
//	runner, _ := harness.ForScenario(sc, harness.Config{MaxSteps: 20}, trail, nil)
//	obs, _ := runner.Reset()
//	for {
//	    obs, reward, terminated, truncated, info := runner.Step(action)
//	    if terminated || truncated {
//	        break
//	    }
//	}
//
// Each step threads the action through the capability dispatcher, the
// state machine, the rule engine, the reward accumulator, and the audit
// trail, then checks termination (terminal state) and truncation
// (max-steps ceiling).
//
// Step never panics and always returns a well-typed five-tuple: action
// text that is not a structured {"tool": ..., "args": ...} call is treated
// as a plain message, every dispatch failure degrades to an error result,
// and a recovered internal panic is reported through the info diagnostics.
// No failure crosses the runner boundary as a Go panic.
package harness
