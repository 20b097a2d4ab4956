// Package memory implements store.Store in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
	"github.com/gyaneshwarpardhi/alerts/internal/store"
)

// Store keeps events per tenant. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]map[string]*event.Event // tenant → id → event
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{tenants: make(map[string]map[string]*event.Event)}
}

// AddEvents inserts all events or none: a duplicate id aborts the batch.
func (s *Store) AddEvents(_ context.Context, events []*event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		key := ev.TenantID + "\x00" + ev.ID
		if _, dup := seen[key]; dup {
			return fmt.Errorf("event %s: %w", ev.ID, store.ErrDuplicate)
		}
		seen[key] = struct{}{}
		if _, ok := s.tenants[ev.TenantID][ev.ID]; ok {
			return fmt.Errorf("event %s: %w", ev.ID, store.ErrDuplicate)
		}
	}
	for _, ev := range events {
		t, ok := s.tenants[ev.TenantID]
		if !ok {
			t = make(map[string]*event.Event)
			s.tenants[ev.TenantID] = t
		}
		t[ev.ID] = ev.Clone()
	}
	return nil
}

func (s *Store) GetEvent(_ context.Context, tenantID, id string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.tenants[tenantID][id]
	if !ok {
		return nil, nil
	}
	return ev.Clone(), nil
}

func (s *Store) ListEvents(_ context.Context, tenantID string, c *event.Criteria, pager paging.Pager) ([]*event.Event, int, error) {
	s.mu.RLock()
	var matched []*event.Event
	for _, ev := range s.tenants[tenantID] {
		if c.Match(ev) {
			matched = append(matched, ev.Clone())
		}
	}
	s.mu.RUnlock()

	sortEvents(matched, pager.Order)
	total := len(matched)
	if !pager.IsLimited() {
		return matched, total, nil
	}
	start := pager.Offset()
	if start >= total {
		return nil, total, nil
	}
	end := total
	if pager.PerPage < total-start {
		end = start + pager.PerPage
	}
	return matched[start:end], total, nil
}

func (s *Store) DeleteEvents(_ context.Context, tenantID string, c *event.Criteria) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, ev := range s.tenants[tenantID] {
		if c.Match(ev) {
			delete(s.tenants[tenantID], id)
			n++
		}
	}
	return n, nil
}

func (s *Store) AddTags(_ context.Context, tenantID string, ids []string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		ev, ok := s.tenants[tenantID][id]
		if !ok {
			continue
		}
		if ev.Tags == nil {
			ev.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			ev.Tags[k] = v
		}
	}
	return nil
}

func (s *Store) RemoveTags(_ context.Context, tenantID string, ids []string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		ev, ok := s.tenants[tenantID][id]
		if !ok {
			continue
		}
		for _, name := range names {
			delete(ev.Tags, name)
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// sortEvents orders by the requested keys, falling back to ctime descending then id.
func sortEvents(events []*event.Event, order []paging.Order) {
	if len(order) == 0 {
		order = []paging.Order{{Field: "ctime", Direction: paging.Desc}}
	}
	sort.SliceStable(events, func(i, j int) bool {
		for _, o := range order {
			c := compareField(events[i], events[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Direction == paging.Desc {
				return c > 0
			}
			return c < 0
		}
		return events[i].ID < events[j].ID
	})
}

func compareField(a, b *event.Event, field string) int {
	switch field {
	case "ctime":
		switch {
		case a.CTime < b.CTime:
			return -1
		case a.CTime > b.CTime:
			return 1
		}
		return 0
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "triggerId":
		return strings.Compare(a.TriggerID, b.TriggerID)
	case "dataId":
		return strings.Compare(a.DataID, b.DataID)
	case "dataSource":
		return strings.Compare(a.DataSource, b.DataSource)
	}
	return 0
}
