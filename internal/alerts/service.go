// Package alerts is the tenant-scoped events service behind the HTTP endpoint.
// It validates arguments, persists through a store.Store and hands events to the
// evaluation engine.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/metrics"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
	"github.com/gyaneshwarpardhi/alerts/internal/store"
)

// Service is the backend consumed by the events endpoint. Implementations must be
// safe for concurrent use. Rejected arguments are reported as *InvalidArgumentError.
type Service interface {
	// AddEvents persists the events and submits them for evaluation.
	AddEvents(ctx context.Context, events []*event.Event) error
	// SendEvents submits the events for evaluation without persisting them.
	SendEvents(ctx context.Context, events []*event.Event) error
	// GetEvent returns nil, nil when the event does not exist.
	GetEvent(ctx context.Context, tenantID, id string, thin bool) (*event.Event, error)
	GetEvents(ctx context.Context, tenantID string, c *event.Criteria, pager paging.Pager) (*paging.Page[*event.Event], error)
	DeleteEvents(ctx context.Context, tenantID string, c *event.Criteria) (int, error)
	AddEventTags(ctx context.Context, tenantID string, ids []string, tags map[string]string) error
	RemoveEventTags(ctx context.Context, tenantID string, ids []string, names []string) error
}

// Evaluator accepts events for asynchronous evaluation. ProcessAsync returns false
// when the event could not be queued.
type Evaluator interface {
	ProcessAsync(ev *event.Event) bool
}

// EventsService implements Service.
type EventsService struct {
	store store.Store
	eval  Evaluator
	now   func() time.Time
}

var _ Service = (*EventsService)(nil)

// New creates an EventsService.
func New(st store.Store, eval Evaluator) *EventsService {
	return &EventsService{store: st, eval: eval, now: time.Now}
}

func (s *EventsService) AddEvents(ctx context.Context, events []*event.Event) error {
	if err := s.prepare(events); err != nil {
		return err
	}
	if err := s.store.AddEvents(ctx, events); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return invalidf("%s", err.Error())
		}
		return fmt.Errorf("persist events: %w", err)
	}
	metrics.EventsPersisted.Add(float64(len(events)))
	return s.submit(events)
}

func (s *EventsService) SendEvents(_ context.Context, events []*event.Event) error {
	if err := s.prepare(events); err != nil {
		return err
	}
	return s.submit(events)
}

func (s *EventsService) GetEvent(ctx context.Context, tenantID, id string, thin bool) (*event.Event, error) {
	if event.IsBlank(tenantID) {
		return nil, invalidf("tenantId must not be empty")
	}
	if event.IsBlank(id) {
		return nil, invalidf("eventId must not be empty")
	}
	ev, err := s.store.GetEvent(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	if thin {
		ev = ev.Thin()
	}
	return ev, nil
}

func (s *EventsService) GetEvents(ctx context.Context, tenantID string, c *event.Criteria, pager paging.Pager) (*paging.Page[*event.Event], error) {
	if event.IsBlank(tenantID) {
		return nil, invalidf("tenantId must not be empty")
	}
	events, total, err := s.store.ListEvents(ctx, tenantID, c, pager)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if c != nil && c.Thin {
		for i, ev := range events {
			events[i] = ev.Thin()
		}
	}
	return paging.NewPage(events, pager, total), nil
}

func (s *EventsService) DeleteEvents(ctx context.Context, tenantID string, c *event.Criteria) (int, error) {
	if event.IsBlank(tenantID) {
		return 0, invalidf("tenantId must not be empty")
	}
	n, err := s.store.DeleteEvents(ctx, tenantID, c)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return n, nil
}

func (s *EventsService) AddEventTags(ctx context.Context, tenantID string, ids []string, tags map[string]string) error {
	if err := checkTagMutation(tenantID, ids); err != nil {
		return err
	}
	if len(tags) == 0 {
		return invalidf("tags must not be empty")
	}
	for k, v := range tags {
		if event.IsBlank(k) || event.IsBlank(v) {
			return invalidf("tag %q=%q must have a non empty name and value", k, v)
		}
	}
	if err := s.store.AddTags(ctx, tenantID, ids, tags); err != nil {
		return fmt.Errorf("add tags: %w", err)
	}
	return nil
}

func (s *EventsService) RemoveEventTags(ctx context.Context, tenantID string, ids []string, names []string) error {
	if err := checkTagMutation(tenantID, ids); err != nil {
		return err
	}
	if len(names) == 0 {
		return invalidf("tag names must not be empty")
	}
	for _, n := range names {
		if event.IsBlank(n) {
			return invalidf("tag names must not contain empty names")
		}
	}
	if err := s.store.RemoveTags(ctx, tenantID, ids, names); err != nil {
		return fmt.Errorf("remove tags: %w", err)
	}
	return nil
}

// prepare validates a batch and stamps ctime on events that lack it.
func (s *EventsService) prepare(events []*event.Event) error {
	if len(events) == 0 {
		return invalidf("events must not be empty")
	}
	now := s.now().UnixMilli()
	for i, ev := range events {
		if ev == nil {
			return invalidf("events[%d] is null", i)
		}
		if event.IsBlank(ev.TenantID) {
			return invalidf("event %s: tenantId must not be empty", ev.ID)
		}
		if event.IsBlank(ev.ID) {
			return invalidf("events[%d]: id must not be empty", i)
		}
		if event.IsBlank(ev.Category) {
			return invalidf("event %s: category must not be empty", ev.ID)
		}
		if ev.CTime == 0 {
			ev.CTime = now
		}
	}
	return nil
}

func (s *EventsService) submit(events []*event.Event) error {
	for _, ev := range events {
		if !s.eval.ProcessAsync(ev) {
			return fmt.Errorf("event %s: evaluation queue full", ev.ID)
		}
	}
	return nil
}

func checkTagMutation(tenantID string, ids []string) error {
	if event.IsBlank(tenantID) {
		return invalidf("tenantId must not be empty")
	}
	if len(ids) == 0 {
		return invalidf("eventIds must not be empty")
	}
	for _, id := range ids {
		if event.IsBlank(id) {
			return invalidf("eventIds must not contain empty ids")
		}
	}
	return nil
}
