// Package store defines event persistence.
package store

import (
	"context"
	"errors"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
)

// ErrDuplicate is returned when an event id already exists for the tenant.
var ErrDuplicate = errors.New("event already exists")

// Store defines the persistence interface for events. All operations are tenant-scoped.
type Store interface {
	AddEvents(ctx context.Context, events []*event.Event) error
	// GetEvent returns nil, nil when the event does not exist.
	GetEvent(ctx context.Context, tenantID, id string) (*event.Event, error)
	ListEvents(ctx context.Context, tenantID string, c *event.Criteria, pager paging.Pager) ([]*event.Event, int, error) // events, total count, error
	DeleteEvents(ctx context.Context, tenantID string, c *event.Criteria) (int, error)

	// Tags
	AddTags(ctx context.Context, tenantID string, ids []string, tags map[string]string) error
	RemoveTags(ctx context.Context, tenantID string, ids []string, names []string) error

	Close() error
}

// SortFields lists the event fields accepted as sort keys, mapped to their column names.
var SortFields = map[string]string{
	"ctime":      "ctime",
	"id":         "id",
	"category":   "category",
	"triggerId":  "trigger_id",
	"dataId":     "data_id",
	"dataSource": "data_source",
}
