// Package logger is the "log" action: it writes the generated event to the
// structured log.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/alerts/internal/action"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// Action logs events through slog.
//
// Params:
//   - level: debug | info | warn | error (default info)
type Action struct {
	log *slog.Logger
}

// New returns a log action. A nil logger uses slog.Default().
func New(l *slog.Logger) *Action {
	if l == nil {
		l = slog.Default()
	}
	return &Action{log: l}
}

func (a *Action) Type() string { return "log" }

func (a *Action) Validate(params map[string]any) error {
	_, err := level(params)
	return err
}

func (a *Action) Execute(ctx context.Context, actionID string, params map[string]any, ev *event.Event) (*action.ActionResult, error) {
	lvl, err := level(params)
	if err != nil {
		return nil, err
	}
	a.log.Log(ctx, lvl, "trigger fired",
		"action_id", actionID,
		"tenant", ev.TenantID,
		"event_id", ev.ID,
		"trigger_id", ev.TriggerID,
		"category", ev.Category,
		"text", ev.Text,
	)
	return &action.ActionResult{
		ActionID: actionID,
		Type:     a.Type(),
		Success:  true,
		Message:  fmt.Sprintf("logged event %s at %s", ev.ID, lvl),
	}, nil
}

func level(params map[string]any) (slog.Level, error) {
	v, ok := params["level"]
	if !ok {
		return slog.LevelInfo, nil
	}
	s, _ := v.(string)
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log: invalid level %v", v)
	}
	return lvl, nil
}
