package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
	"github.com/gyaneshwarpardhi/alerts/internal/store/memory"
)

type fakeEvaluator struct {
	got  []*event.Event
	full bool
}

func (f *fakeEvaluator) ProcessAsync(ev *event.Event) bool {
	if f.full {
		return false
	}
	f.got = append(f.got, ev)
	return true
}

func newService() (*EventsService, *fakeEvaluator) {
	eval := &fakeEvaluator{}
	s := New(memory.New(), eval)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s, eval
}

func ev(id string) *event.Event {
	return &event.Event{TenantID: "acme", ID: id, Category: "LOG", CTime: 1}
}

func TestAddEvents(t *testing.T) {
	s, eval := newService()
	ctx := context.Background()

	e := ev("e1")
	e.CTime = 0
	if err := s.AddEvents(ctx, []*event.Event{e}); err != nil {
		t.Fatalf("AddEvents: %v", err)
	}
	if e.CTime != 1700000000000 {
		t.Errorf("ctime not stamped: %d", e.CTime)
	}
	if len(eval.got) != 1 {
		t.Errorf("event not submitted for evaluation")
	}
	got, err := s.GetEvent(ctx, "acme", "e1", false)
	if err != nil || got == nil {
		t.Fatalf("GetEvent: %v %v", got, err)
	}

	err = s.AddEvents(ctx, []*event.Event{ev("e1")})
	if !IsInvalidArgument(err) {
		t.Fatalf("duplicate must be an invalid argument, got %v", err)
	}
}

func TestAddEvents_Validation(t *testing.T) {
	s, eval := newService()
	cases := map[string][]*event.Event{
		"empty":        nil,
		"nil element":  {nil},
		"blank id":     {{TenantID: "acme", Category: "LOG"}},
		"blank cat":    {{TenantID: "acme", ID: "x"}},
		"blank tenant": {{ID: "x", Category: "LOG"}},
	}
	for name, events := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.AddEvents(context.Background(), events)
			var inv *InvalidArgumentError
			if !errors.As(err, &inv) {
				t.Fatalf("expected InvalidArgumentError, got %v", err)
			}
		})
	}
	if len(eval.got) != 0 {
		t.Error("rejected events must not be submitted")
	}
}

func TestSendEvents(t *testing.T) {
	s, eval := newService()
	ctx := context.Background()

	if err := s.SendEvents(ctx, []*event.Event{ev("s1")}); err != nil {
		t.Fatalf("SendEvents: %v", err)
	}
	if len(eval.got) != 1 {
		t.Fatal("event not submitted")
	}
	if got, _ := s.GetEvent(ctx, "acme", "s1", false); got != nil {
		t.Error("sent events must not be persisted")
	}

	eval.full = true
	err := s.SendEvents(ctx, []*event.Event{ev("s2")})
	if err == nil || IsInvalidArgument(err) {
		t.Errorf("full queue must be an infrastructure error, got %v", err)
	}
}

func TestGetEvent_Thin(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()
	e := ev("g1")
	e.Dampening = &event.Dampening{TriggerID: "t", Type: "STRICT", EvalTrue: 1}
	e.EvalSets = [][]event.ConditionEval{{{ConditionID: "c"}}}
	if err := s.AddEvents(ctx, []*event.Event{e}); err != nil {
		t.Fatal(err)
	}

	full, _ := s.GetEvent(ctx, "acme", "g1", false)
	if full.Dampening == nil || full.EvalSets == nil {
		t.Error("full projection lost engine fields")
	}
	thin, _ := s.GetEvent(ctx, "acme", "g1", true)
	if thin.Dampening != nil || thin.EvalSets != nil {
		t.Error("thin projection kept engine fields")
	}

	page, err := s.GetEvents(ctx, "acme", &event.Criteria{Thin: true}, paging.Pager{PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalSize != 1 || page.Items[0].EvalSets != nil {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := s.GetEvent(ctx, "", "g1", false); !IsInvalidArgument(err) {
		t.Errorf("blank tenant must be invalid, got %v", err)
	}
}

func TestTags(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()
	if err := s.AddEvents(ctx, []*event.Event{ev("t1"), ev("t2")}); err != nil {
		t.Fatal(err)
	}

	if err := s.AddEventTags(ctx, "acme", []string{"t1", "t2"}, map[string]string{"env": "prod"}); err != nil {
		t.Fatalf("AddEventTags: %v", err)
	}
	page, _ := s.GetEvents(ctx, "acme", &event.Criteria{Tags: map[string]string{"env": "*"}}, paging.Pager{PerPage: 10})
	if page.TotalSize != 2 {
		t.Errorf("expected 2 tagged events, got %d", page.TotalSize)
	}

	if err := s.RemoveEventTags(ctx, "acme", []string{"t1"}, []string{"env"}); err != nil {
		t.Fatalf("RemoveEventTags: %v", err)
	}
	page, _ = s.GetEvents(ctx, "acme", &event.Criteria{Tags: map[string]string{"env": "prod"}}, paging.Pager{PerPage: 10})
	if page.TotalSize != 1 || page.Items[0].ID != "t2" {
		t.Errorf("expected only t2 tagged, got %+v", page.Items)
	}

	invalid := []error{
		s.AddEventTags(ctx, "acme", nil, map[string]string{"a": "b"}),
		s.AddEventTags(ctx, "acme", []string{"t1"}, nil),
		s.AddEventTags(ctx, "acme", []string{"t1"}, map[string]string{"a": " "}),
		s.RemoveEventTags(ctx, "acme", []string{"t1"}, nil),
		s.RemoveEventTags(ctx, "acme", []string{""}, []string{"a"}),
		s.RemoveEventTags(ctx, "", []string{"t1"}, []string{"a"}),
	}
	for i, err := range invalid {
		if !IsInvalidArgument(err) {
			t.Errorf("case %d: expected invalid argument, got %v", i, err)
		}
	}
}

func TestDeleteEvents(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()
	if err := s.AddEvents(ctx, []*event.Event{ev("d1"), ev("d2")}); err != nil {
		t.Fatal(err)
	}
	n, err := s.DeleteEvents(ctx, "acme", &event.Criteria{EventID: "d1"})
	if err != nil || n != 1 {
		t.Fatalf("DeleteEvents = %d, %v", n, err)
	}
	n, _ = s.DeleteEvents(ctx, "acme", &event.Criteria{EventID: "d1"})
	if n != 0 {
		t.Errorf("second delete removed %d", n)
	}
}

func TestInvalidArgumentError(t *testing.T) {
	err := invalidf("event %s: %s", "x", "bad")
	if err.Error() != "event x: bad" {
		t.Errorf("message = %q", err.Error())
	}
	wrapped := errors.Join(errors.New("ctx"), err)
	if !IsInvalidArgument(wrapped) {
		t.Error("wrapped invalid argument not detected")
	}
	if IsInvalidArgument(errors.New("boom")) || strings.Contains(ErrInvalidArgument.Error(), "boom") {
		t.Error("plain error detected as invalid argument")
	}
}
