package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

type jsonColumns struct {
	context, tags, dampening, evalSets []byte
}

func (j *jsonColumns) decode(ev *event.Event) error {
	if len(j.context) > 0 {
		if err := json.Unmarshal(j.context, &ev.Context); err != nil {
			return fmt.Errorf("decode context: %w", err)
		}
	}
	if len(j.tags) > 0 {
		if err := json.Unmarshal(j.tags, &ev.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(j.dampening) > 0 {
		if err := json.Unmarshal(j.dampening, &ev.Dampening); err != nil {
			return fmt.Errorf("decode dampening: %w", err)
		}
	}
	if len(j.evalSets) > 0 {
		if err := json.Unmarshal(j.evalSets, &ev.EvalSets); err != nil {
			return fmt.Errorf("decode eval sets: %w", err)
		}
	}
	if len(ev.Context) == 0 {
		ev.Context = nil
	}
	if len(ev.Tags) == 0 {
		ev.Tags = nil
	}
	return nil
}

// scanEvent scans a single row in eventColumns order.
func scanEvent(row scannable) (*event.Event, error) {
	var ev event.Event
	var j jsonColumns
	err := row.Scan(
		&ev.TenantID,
		&ev.ID,
		&ev.CTime,
		&ev.DataSource,
		&ev.DataID,
		&ev.Category,
		&ev.Text,
		&j.context,
		&j.tags,
		&ev.TriggerID,
		&j.dampening,
		&j.evalSets,
	)
	if err != nil {
		return nil, err
	}
	if err := j.decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// scanEventWithTotal scans a row prefixed by a total_count window column.
func scanEventWithTotal(row scannable) (*event.Event, int, error) {
	var ev event.Event
	var j jsonColumns
	var total int
	err := row.Scan(
		&total,
		&ev.TenantID,
		&ev.ID,
		&ev.CTime,
		&ev.DataSource,
		&ev.DataID,
		&ev.Category,
		&ev.Text,
		&j.context,
		&j.tags,
		&ev.TriggerID,
		&j.dampening,
		&j.evalSets,
	)
	if err != nil {
		return nil, 0, err
	}
	if err := j.decode(&ev); err != nil {
		return nil, 0, err
	}
	return &ev, total, nil
}
