// Package scenario defines the boundary between the generic run loop and
// the domain-specific scenario packages.
//
// A Scenario supplies everything the harness cannot know: the mock case
// data and state-machine shape, the capability catalogue and its effects,
// the vulnerability rules, the reward weighting, optional alert rules, and
// the objective predicate reported in the final evaluation. The harness
// invokes these through explicit references handed to its composition
// root; there is no global scenario registry.
//
// The wireapproval subpackage is the reference implementation used by the
// CLI and the integration tests.
package scenario
