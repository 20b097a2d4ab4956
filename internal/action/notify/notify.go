// Package notify is the "notify" action: it publishes the generated event.
package notify

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/alerts/internal/action"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/notify"
)

// Action publishes events to a notify.Publisher.
//
// Params:
//   - subject: optional, defaults to notify.DefaultSubject
type Action struct {
	pub notify.Publisher
}

func New(pub notify.Publisher) *Action { return &Action{pub: pub} }

func (a *Action) Type() string { return "notify" }

func (a *Action) Validate(params map[string]any) error {
	v, ok := params["subject"]
	if !ok {
		return nil
	}
	s, isString := v.(string)
	if !isString || s == "" {
		return fmt.Errorf("notify: subject must be a non empty string, got %v", v)
	}
	return nil
}

func (a *Action) Execute(ctx context.Context, actionID string, params map[string]any, ev *event.Event) (*action.ActionResult, error) {
	subject := notify.DefaultSubject
	if s, ok := params["subject"].(string); ok && s != "" {
		subject = s
	}
	if err := a.pub.Publish(ctx, subject, ev); err != nil {
		return &action.ActionResult{
			ActionID: actionID,
			Type:     a.Type(),
			Success:  false,
			Message:  err.Error(),
		}, err
	}
	return &action.ActionResult{
		ActionID: actionID,
		Type:     a.Type(),
		Success:  true,
		Message:  fmt.Sprintf("published event %s to %s", ev.ID, subject),
	}, nil
}
