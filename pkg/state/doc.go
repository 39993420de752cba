// Package state implements the per-episode business-process state machine.
//
// A Machine tracks the current process state, completed checks, recorded
// violations, and an append-only transition log for one episode. All
// mutation is failure-tolerant: an invalid transition is a silent no-op
// returning false, and check/violation insertion is idempotent. A
// malformed action sequence can therefore never corrupt or crash an
// episode; callers that need correctness re-query the machine.
//
// Scenarios inject domain behavior through the capability-call hook:
//
//	machine.SetCapabilityHook(func(m *state.Machine, out state.CallOutcome) {
//	    if out.Name == "approve_wire" && out.OK {
//	        m.Transition("approved", "approve_wire", nil)
//	    }
//	})
//
// The hook is the only seam where scenario rules touch the machine; the
// core never interprets capability names.
package state
