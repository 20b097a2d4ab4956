package action

import (
	"context"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// ActionResult holds the outcome of executing a single action.
type ActionResult struct {
	ActionID string `json:"actionId"`
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// Executor is the interface all action implementations must satisfy.
type Executor interface {
	// Type returns the string key this executor is registered under.
	Type() string
	// Execute runs the action for an event generated by a fired trigger.
	Execute(ctx context.Context, actionID string, params map[string]any, ev *event.Event) (*ActionResult, error)
	// Validate checks params at build time (called by trigger.Build through the Registry).
	Validate(params map[string]any) error
}
