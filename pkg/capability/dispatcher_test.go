package capability

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"mercator-hq/ganymede/pkg/state"
)

type dispatchCase struct {
	id string
}

func (c *dispatchCase) CaseID() string            { return c.id }
func (c *dispatchCase) Serialize() map[string]any { return map[string]any{"id": c.id} }

func newDispatchMachine() *state.Machine {
	return state.NewMachine(state.Spec{
		Initial:        "pending",
		Valid:          []string{"pending", "done"},
		Terminal:       []string{"done"},
		RequiredChecks: []string{"identity", "sanctions"},
	}, &dispatchCase{id: "CASE-1"})
}

func echoDef(name string, calls *int) *Definition {
	return &Definition{
		Name:       name,
		Permission: 2,
		Effect: func(args map[string]any, m *state.Machine, mode EnforcementMode) (Result, error) {
			if calls != nil {
				*calls++
			}
			return OK(map[string]any{"echo": args}), nil
		},
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		def  *Definition
	}{
		{name: "nil definition", def: nil},
		{name: "empty name", def: echoDef("", nil)},
		{
			name: "permission below range",
			def: &Definition{Name: "x", Permission: 0, Effect: func(map[string]any, *state.Machine, EnforcementMode) (Result, error) {
				return Result{}, nil
			}},
		},
		{
			name: "permission above range",
			def: &Definition{Name: "x", Permission: 5, Effect: func(map[string]any, *state.Machine, EnforcementMode) (Result, error) {
				return Result{}, nil
			}},
		},
		{name: "missing effect", def: &Definition{Name: "x", Permission: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher()
			err := d.Register(tt.def)
			if err == nil {
				t.Fatal("Register() = nil, want error")
			}
			var regErr *RegistrationError
			if !errors.As(err, &regErr) {
				t.Errorf("Register() error type = %T, want *RegistrationError", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	d := NewDispatcher()
	if err := d.Register(echoDef("lookup", nil)); err != nil {
		t.Fatalf("Register() first = %v", err)
	}
	if err := d.Register(echoDef("lookup", nil)); err == nil {
		t.Error("Register() duplicate = nil, want error")
	}
}

func TestExecuteUnknownCapability(t *testing.T) {
	d := NewDispatcher()
	m := newDispatchMachine()

	result := d.Execute(Call{Name: "nope"}, m, ModeSoft)

	if !result.IsError() {
		t.Fatalf("Execute() status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "unknown capability") {
		t.Errorf("Execute() error = %q", result.Error)
	}
}

func TestExecuteMissingParamsNoSideEffects(t *testing.T) {
	effectCalls := 0
	preCalls := 0
	postCalls := 0

	d := NewDispatcher()
	def := &Definition{
		Name:       "approve",
		Permission: 4,
		Params: []Param{
			{Name: "confirmation", Type: ParamString, Required: true},
			{Name: "note", Type: ParamString},
		},
		Effect: func(args map[string]any, m *state.Machine, mode EnforcementMode) (Result, error) {
			effectCalls++
			return OK(nil), nil
		},
	}
	if err := d.Register(def); err != nil {
		t.Fatal(err)
	}
	d.AddPreHook(func(call Call, m *state.Machine) (bool, Result) {
		preCalls++
		return false, Result{}
	})
	d.AddPostHook(func(call Call, m *state.Machine, result Result) Result {
		postCalls++
		return result
	})

	hookFired := false
	m := newDispatchMachine()
	m.SetCapabilityHook(func(m *state.Machine, out state.CallOutcome) {
		hookFired = true
	})

	result := d.Execute(Call{Name: "approve", Args: map[string]any{"note": "hi"}}, m, ModeSoft)

	if !result.IsError() {
		t.Fatalf("Execute() status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "confirmation") {
		t.Errorf("Execute() error = %q, want missing-parameter message naming confirmation", result.Error)
	}
	if effectCalls != 0 || preCalls != 0 || postCalls != 0 || hookFired {
		t.Errorf("validation failure had side effects: effect=%d pre=%d post=%d machineHook=%v",
			effectCalls, preCalls, postCalls, hookFired)
	}
}

func TestExecutePreHookAbortReturnsResultVerbatim(t *testing.T) {
	effectCalls := 0
	d := NewDispatcher()
	if err := d.Register(echoDef("send", &effectCalls)); err != nil {
		t.Fatal(err)
	}

	abortResult := Result{
		Status:  StatusError,
		Error:   "blocked by policy hook",
		Payload: map[string]any{"hook": "policy"},
	}
	d.AddPreHook(func(call Call, m *state.Machine) (bool, Result) {
		return true, abortResult
	})

	result := d.Execute(Call{Name: "send", Args: map[string]any{}}, newDispatchMachine(), ModeSoft)

	if !reflect.DeepEqual(result, abortResult) {
		t.Errorf("Execute() = %+v, want the aborting hook's result verbatim", result)
	}
	if effectCalls != 0 {
		t.Errorf("effect ran %d times after hook abort, want 0", effectCalls)
	}
}

func TestExecuteEffectErrorAndPanicBecomeErrorResults(t *testing.T) {
	tests := []struct {
		name   string
		effect EffectFunc
	}{
		{
			name: "effect returns error",
			effect: func(map[string]any, *state.Machine, EnforcementMode) (Result, error) {
				return Result{}, errors.New("backend unavailable")
			},
		},
		{
			name: "effect panics",
			effect: func(map[string]any, *state.Machine, EnforcementMode) (Result, error) {
				panic("nil map write")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher()
			if err := d.Register(&Definition{Name: "flaky", Permission: 1, Effect: tt.effect}); err != nil {
				t.Fatal(err)
			}

			result := d.Execute(Call{Name: "flaky"}, newDispatchMachine(), ModeSoft)
			if !result.IsError() {
				t.Errorf("Execute() status = %q, want error", result.Status)
			}
			if !strings.Contains(result.Error, "flaky") {
				t.Errorf("Execute() error = %q, want message naming the capability", result.Error)
			}
		})
	}
}

func TestExecuteDefaultsEmptyStatusToOK(t *testing.T) {
	d := NewDispatcher()
	err := d.Register(&Definition{
		Name:       "quiet",
		Permission: 1,
		Effect: func(map[string]any, *state.Machine, EnforcementMode) (Result, error) {
			return Result{Payload: map[string]any{"v": 1}}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := d.Execute(Call{Name: "quiet"}, newDispatchMachine(), ModeSoft)
	if result.Status != StatusOK {
		t.Errorf("Execute() status = %q, want ok", result.Status)
	}
}

func TestExecuteStrictModePrerequisites(t *testing.T) {
	effectCalls := 0
	d := NewDispatcher()
	def := echoDef("approve", &effectCalls)
	def.Prerequisites = []string{"identity", "sanctions"}
	if err := d.Register(def); err != nil {
		t.Fatal(err)
	}

	m := newDispatchMachine()
	m.RecordCheck("identity")

	result := d.Execute(Call{Name: "approve", Args: map[string]any{}}, m, ModeStrict)
	if !result.IsError() {
		t.Fatalf("Execute() strict status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "sanctions") {
		t.Errorf("Execute() error = %q, want unmet prerequisite named", result.Error)
	}
	if effectCalls != 0 {
		t.Errorf("effect ran %d times with unmet prerequisites, want 0", effectCalls)
	}

	// Soft mode executes regardless.
	result = d.Execute(Call{Name: "approve", Args: map[string]any{}}, m, ModeSoft)
	if result.IsError() {
		t.Errorf("Execute() soft status = %q, want ok", result.Status)
	}
	if effectCalls != 1 {
		t.Errorf("effect ran %d times in soft mode, want 1", effectCalls)
	}
}

func TestExecuteStrictModeNilMachine(t *testing.T) {
	effectCalls := 0
	d := NewDispatcher()
	def := echoDef("approve", &effectCalls)
	def.Prerequisites = []string{"identity"}
	if err := d.Register(def); err != nil {
		t.Fatal(err)
	}

	// No machine means no recorded checks: strict mode refuses instead
	// of panicking.
	result := d.Execute(Call{Name: "approve", Args: map[string]any{}}, nil, ModeStrict)
	if !result.IsError() {
		t.Fatalf("Execute() strict status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "identity") {
		t.Errorf("Execute() error = %q, want unmet prerequisite named", result.Error)
	}
	if effectCalls != 0 {
		t.Errorf("effect ran %d times without a machine, want 0", effectCalls)
	}

	result = d.Execute(Call{Name: "approve", Args: map[string]any{}}, nil, ModeSoft)
	if result.IsError() {
		t.Errorf("Execute() soft status = %q, want ok", result.Status)
	}
	if effectCalls != 1 {
		t.Errorf("effect ran %d times in soft mode, want 1", effectCalls)
	}
}

func TestExecuteStrictRefusalForwardedToMachine(t *testing.T) {
	d := NewDispatcher()
	def := echoDef("approve", nil)
	def.Prerequisites = []string{"identity"}
	if err := d.Register(def); err != nil {
		t.Fatal(err)
	}

	var forwarded *state.CallOutcome
	m := newDispatchMachine()
	m.SetCapabilityHook(func(m *state.Machine, out state.CallOutcome) {
		forwarded = &out
	})

	d.Execute(Call{Name: "approve", Args: map[string]any{}}, m, ModeStrict)

	if forwarded == nil {
		t.Fatal("strict refusal was not forwarded to the state machine hook")
	}
	if forwarded.OK {
		t.Error("forwarded outcome OK = true for a refusal")
	}
}

func TestExecuteHookPanicsRecovered(t *testing.T) {
	d := NewDispatcher()
	if err := d.Register(echoDef("stable", nil)); err != nil {
		t.Fatal(err)
	}
	d.AddPreHook(func(call Call, m *state.Machine) (bool, Result) {
		panic("pre hook bug")
	})
	d.AddPostHook(func(call Call, m *state.Machine, result Result) Result {
		panic("post hook bug")
	})

	result := d.Execute(Call{Name: "stable", Args: map[string]any{"k": "v"}}, newDispatchMachine(), ModeSoft)

	// A panicking pre-hook is a non-abort; a panicking post-hook keeps the
	// effect's result.
	if result.Status != StatusOK {
		t.Errorf("Execute() status = %q, want ok despite hook panics", result.Status)
	}

	diags := d.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("Diagnostics() has %d entries, want 2", len(diags))
	}
	if diags[0].Phase != "pre" || diags[1].Phase != "post" {
		t.Errorf("diagnostic phases = %q, %q", diags[0].Phase, diags[1].Phase)
	}
}

func TestPostHookReplacesResult(t *testing.T) {
	d := NewDispatcher()
	if err := d.Register(echoDef("send", nil)); err != nil {
		t.Fatal(err)
	}
	d.AddPostHook(func(call Call, m *state.Machine, result Result) Result {
		return Errorf("redacted")
	})

	result := d.Execute(Call{Name: "send", Args: map[string]any{}}, newDispatchMachine(), ModeSoft)
	if result.Error != "redacted" {
		t.Errorf("Execute() error = %q, want post-hook replacement", result.Error)
	}
}

func TestNamesAndPermissionFilter(t *testing.T) {
	d := NewDispatcher()
	low := echoDef("read_case", nil)
	low.Permission = 1
	mid := echoDef("check_funds", nil)
	mid.Permission = 2
	high := echoDef("approve", nil)
	high.Permission = 4

	for _, def := range []*Definition{low, mid, high} {
		if err := d.Register(def); err != nil {
			t.Fatal(err)
		}
	}

	if got := d.Names(); !reflect.DeepEqual(got, []string{"read_case", "check_funds", "approve"}) {
		t.Errorf("Names() = %v, want registration order", got)
	}

	filtered := d.AtOrBelowPermission(2)
	if len(filtered) != 2 || filtered[0].Name != "read_case" || filtered[1].Name != "check_funds" {
		t.Errorf("AtOrBelowPermission(2) = %v", filtered)
	}
}

func TestToWireFormat(t *testing.T) {
	def := &Definition{
		Name:        "approve_wire",
		Description: "Approve the transfer.",
		Permission:  4,
		Params: []Param{
			{Name: "confirmation", Type: ParamString, Required: true, Description: "Confirmation token."},
			{Name: "note", Type: ParamString},
		},
	}

	schema := def.ToWireFormat()

	if schema.Name != "approve_wire" {
		t.Errorf("schema name = %q", schema.Name)
	}
	if schema.Parameters.Type != "object" {
		t.Errorf("parameters type = %q, want object", schema.Parameters.Type)
	}
	if !reflect.DeepEqual(schema.Parameters.Required, []string{"confirmation"}) {
		t.Errorf("required = %v, want [confirmation]", schema.Parameters.Required)
	}
	if got := schema.Parameters.Properties["confirmation"].Type; got != "string" {
		t.Errorf("confirmation type = %q, want string", got)
	}

	// No-parameter definitions still export an empty required array, not
	// null, so client-side schema validators accept them.
	empty := (&Definition{Name: "noop"}).ToWireFormat()
	if empty.Parameters.Required == nil {
		t.Error("empty definition exports null required list")
	}
}

func TestSchemasSortedByName(t *testing.T) {
	d := NewDispatcher()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := d.Register(echoDef(name, nil)); err != nil {
			t.Fatal(err)
		}
	}

	schemas := d.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("Schemas() has %d entries, want 3", len(schemas))
	}
	if schemas[0].Name != "alpha" || schemas[1].Name != "mid" || schemas[2].Name != "zeta" {
		t.Errorf("Schemas() order = %q, %q, %q", schemas[0].Name, schemas[1].Name, schemas[2].Name)
	}
}
