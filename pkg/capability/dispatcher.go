package capability

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"mercator-hq/ganymede/pkg/state"
)

// Dispatcher holds the capability catalogue and executes agent-selected
// calls against episode state. The catalogue is populated once at setup
// and treated as read-only thereafter.
type Dispatcher struct {
	caps  map[string]*Definition
	order []string

	preHooks  []PreHook
	postHooks []PostHook

	diagnostics []HookDiagnostic
	logger      *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		caps:   make(map[string]*Definition),
		logger: slog.Default().With("component", "capability.dispatcher"),
	}
}

// Register adds a capability to the catalogue, keyed by its unique name.
func (d *Dispatcher) Register(def *Definition) error {
	if def == nil {
		return NewRegistrationError("", fmt.Errorf("definition is nil"))
	}
	if def.Name == "" {
		return NewRegistrationError("", fmt.Errorf("capability name is empty"))
	}
	if def.Permission < 1 || def.Permission > 4 {
		return NewRegistrationError(def.Name, fmt.Errorf("permission level %d outside 1-4", def.Permission))
	}
	if def.Effect == nil {
		return NewRegistrationError(def.Name, fmt.Errorf("capability has no effect function"))
	}
	if _, exists := d.caps[def.Name]; exists {
		return NewRegistrationError(def.Name, fmt.Errorf("capability already registered"))
	}

	d.caps[def.Name] = def
	d.order = append(d.order, def.Name)
	return nil
}

// AddPreHook registers a pre-execution hook. Hooks run in registration
// order; the first abort short-circuits execution.
func (d *Dispatcher) AddPreHook(hook PreHook) {
	d.preHooks = append(d.preHooks, hook)
}

// AddPostHook registers a post-execution hook. Each hook may replace the
// result.
func (d *Dispatcher) AddPostHook(hook PostHook) {
	d.postHooks = append(d.postHooks, hook)
}

// Execute runs one capability call against the state machine.
//
// Order of operations:
//  1. Catalogue lookup; unknown names yield an error result.
//  2. Required-parameter validation; a failure returns an error result
//     with zero side effects and no hook invocations.
//  3. Pre-hooks; an aborting hook's result is returned verbatim and the
//     effect never runs.
//  4. The capability effect, with the enforcement mode threaded through.
//     Effect errors and panics are converted to error results here.
//  5. Post-hooks, each allowed to replace the result.
//  6. The final result of an executed effect is forwarded to the state
//     machine's capability-call hook.
//
// Execute never panics and never returns a Go error.
func (d *Dispatcher) Execute(call Call, m *state.Machine, mode EnforcementMode) Result {
	def, ok := d.caps[call.Name]
	if !ok {
		return Errorf("unknown capability %q", call.Name)
	}

	if missing := d.missingParams(def, call.Args); len(missing) > 0 {
		return Result{
			Status:  StatusError,
			Error:   fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", ")),
			Payload: map[string]any{"missing": missing},
		}
	}

	if aborted, result := d.runPreHooks(call, m); aborted {
		return result
	}

	if mode == ModeStrict {
		if unmet := d.unmetPrerequisites(def, m); len(unmet) > 0 {
			result := Result{
				Status:  StatusError,
				Error:   fmt.Sprintf("prerequisite checks not recorded: %s", strings.Join(unmet, ", ")),
				Payload: map[string]any{"unmet_prerequisites": unmet},
			}
			d.forward(call, m, result)
			return result
		}
	}

	result := d.runEffect(def, call, m, mode)
	result = d.runPostHooks(call, m, result)

	d.forward(call, m, result)
	return result
}

// Names returns the registered capability names in registration order.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Schemas returns the full wire-format schema for every registered
// capability, ordered by name.
func (d *Dispatcher) Schemas() []WireSchema {
	schemas := make([]WireSchema, 0, len(d.caps))
	for _, name := range d.order {
		schemas = append(schemas, d.caps[name].ToWireFormat())
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Definition returns the registered definition for a name, or nil.
func (d *Dispatcher) Definition(name string) *Definition {
	return d.caps[name]
}

// AtOrBelowPermission returns definitions whose permission level does not
// exceed the given level, in registration order.
func (d *Dispatcher) AtOrBelowPermission(level int) []*Definition {
	var out []*Definition
	for _, name := range d.order {
		if def := d.caps[name]; def.Permission <= level {
			out = append(out, def)
		}
	}
	return out
}

// Diagnostics returns recovered hook failures in occurrence order.
func (d *Dispatcher) Diagnostics() []HookDiagnostic {
	out := make([]HookDiagnostic, len(d.diagnostics))
	copy(out, d.diagnostics)
	return out
}

func (d *Dispatcher) missingParams(def *Definition, args map[string]any) []string {
	var missing []string
	for _, p := range def.Params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// unmetPrerequisites reports the prerequisite checks not recorded on the
// machine. A nil machine has no recorded checks, so every prerequisite is
// unmet.
func (d *Dispatcher) unmetPrerequisites(def *Definition, m *state.Machine) []string {
	var unmet []string
	for _, check := range def.Prerequisites {
		if m == nil || !m.HasCheck(check) {
			unmet = append(unmet, check)
		}
	}
	return unmet
}

// runPreHooks runs hooks in order. A panicking hook is recorded and
// treated as a non-abort.
func (d *Dispatcher) runPreHooks(call Call, m *state.Machine) (aborted bool, result Result) {
	for _, hook := range d.preHooks {
		abort, res := d.runPreHook(hook, call, m)
		if abort {
			return true, res
		}
	}
	return false, Result{}
}

func (d *Dispatcher) runPreHook(hook PreHook, call Call, m *state.Machine) (abort bool, result Result) {
	defer func() {
		if r := recover(); r != nil {
			abort = false
			d.recordHookFailure("pre", call.Name, r)
		}
	}()
	return hook(call, m)
}

// runPostHooks lets each hook replace the result. A panicking hook keeps
// the previous result.
func (d *Dispatcher) runPostHooks(call Call, m *state.Machine, result Result) Result {
	for _, hook := range d.postHooks {
		result = d.runPostHook(hook, call, m, result)
	}
	return result
}

func (d *Dispatcher) runPostHook(hook PostHook, call Call, m *state.Machine, prev Result) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = prev
			d.recordHookFailure("post", call.Name, r)
		}
	}()
	return hook(call, m, prev)
}

// runEffect executes the capability effect, converting errors and panics
// into error results at this boundary.
func (d *Dispatcher) runEffect(def *Definition, call Call, m *state.Machine, mode EnforcementMode) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("capability effect panic recovered",
				"capability", def.Name,
				"panic", r,
			)
			result = Errorf("capability %q failed: %v", def.Name, r)
		}
	}()

	result, err := def.Effect(call.Args, m, mode)
	if err != nil {
		return Errorf("capability %q failed: %v", def.Name, err)
	}
	if result.Status == "" {
		result.Status = StatusOK
	}
	return result
}

func (d *Dispatcher) forward(call Call, m *state.Machine, result Result) {
	if m == nil {
		return
	}
	m.OnCapabilityCall(state.CallOutcome{
		Name:    call.Name,
		Args:    call.Args,
		OK:      result.Status == StatusOK,
		Error:   result.Error,
		Payload: result.Payload,
	})
}

func (d *Dispatcher) recordHookFailure(phase, capability string, panicValue any) {
	d.logger.Error("hook panic recovered",
		"phase", phase,
		"capability", capability,
		"panic", panicValue,
	)
	d.diagnostics = append(d.diagnostics, HookDiagnostic{
		Phase:      phase,
		Capability: capability,
		Message:    fmt.Sprintf("panic: %v", panicValue),
	})
}
