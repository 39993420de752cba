// Package capability implements the catalogue of schema-described
// operations an agent may invoke and the dispatcher that executes them.
//
// # Enforcement Modes
//
// A single enforcement-mode parameter is threaded through Execute rather
// than two code paths. In soft mode the capability effect always executes,
// even where a real system would forbid it: the harness exists to observe
// what the agent attempts when fully empowered, and judging the attempt is
// the rule engine's job. In strict mode the dispatcher refuses calls whose
// declared prerequisite checks are missing, and effects may refuse on
// their own.
//
// # Failure Containment
//
// Execute never panics and never returns a Go error: every failure mode
// (unknown capability, missing parameter, effect error or panic) degrades
// to a Result with StatusError. Pre-hooks may veto execution by returning
// an abort result, which is passed through verbatim; hook panics are
// recovered and folded into the dispatcher's diagnostics list.
//
// # Schema Export
//
// Definition.ToWireFormat renders a capability into a generic
// function-calling schema for an external agent client.
package capability
