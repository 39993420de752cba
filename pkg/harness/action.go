package harness

import (
	"encoding/json"
	"time"

	"mercator-hq/ganymede/pkg/capability"
	"mercator-hq/ganymede/pkg/rules"
)

// wireCall is the structured capability call wire format:
// {"tool": <name>, "args": {...}}.
type wireCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// parseAction classifies raw action text. Text that fails to parse as a
// JSON object, or parses but lacks a "tool" key, is treated as a plain
// message action, never as an error.
func parseAction(raw string, now time.Time) rules.Action {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return messageAction(raw)
	}
	if _, ok := probe["tool"]; !ok {
		return messageAction(raw)
	}

	var wc wireCall
	if err := json.Unmarshal([]byte(raw), &wc); err != nil || wc.Tool == "" {
		return messageAction(raw)
	}
	if wc.Args == nil {
		wc.Args = map[string]any{}
	}

	return rules.Action{
		Raw: raw,
		Call: &capability.Call{
			Name:      wc.Tool,
			Args:      wc.Args,
			Timestamp: now,
		},
	}
}

func messageAction(raw string) rules.Action {
	return rules.Action{
		Raw:       raw,
		IsMessage: true,
		Message:   raw,
	}
}
