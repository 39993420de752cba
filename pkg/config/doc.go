// Package config loads, validates, and watches the harness configuration.
//
// Configuration is YAML with defaults applied before validation.
// Environment variables prefixed GANYMEDE_ override file values, e.g.
// GANYMEDE_HARNESS_MAX_STEPS or GANYMEDE_AUDIT_BACKEND.
//
// The Watcher reloads the file on change and hands the new configuration
// to a callback. Reloads apply between episodes only: a runner in flight
// keeps the configuration it was built with, because registries are
// read-only once an episode has concurrent readers.
package config
