package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
	"github.com/gyaneshwarpardhi/alerts/internal/store"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `tenant_id, id, ctime, data_source, data_id, category, text,
	context, tags, trigger_id, dampening, eval_sets`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertEvent(ctx context.Context, db executor, ev *event.Event) error {
	ctxJSON, err := jsonMap(ev.Context)
	if err != nil {
		return err
	}
	tagsJSON, err := jsonMap(ev.Tags)
	if err != nil {
		return err
	}
	dampening, err := jsonNullable(ev.Dampening, ev.Dampening == nil)
	if err != nil {
		return err
	}
	evalSets, err := jsonNullable(ev.EvalSets, len(ev.EvalSets) == 0)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO events (
			tenant_id, id, ctime, data_source, data_id, category, text,
			context, tags, trigger_id, dampening, eval_sets
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12
		)`,
		ev.TenantID,
		ev.ID,
		ev.CTime,
		ev.DataSource,
		ev.DataID,
		ev.Category,
		ev.Text,
		ctxJSON,
		tagsJSON,
		ev.TriggerID,
		dampening,
		evalSets,
	)
	return err
}

func queryGetEvent(ctx context.Context, db executor, tenantID, id string) (*event.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanEvent(row)
}

// whereBuilder accumulates WHERE clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) nextArg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) sql() string {
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// buildWhere renders criteria as a WHERE clause. The tenant restriction is always first.
func buildWhere(tenantID string, c *event.Criteria) *whereBuilder {
	w := &whereBuilder{}
	w.clauses = append(w.clauses, "tenant_id = "+w.nextArg(tenantID))
	if c == nil {
		return w
	}
	if c.StartTime != nil {
		w.clauses = append(w.clauses, "ctime >= "+w.nextArg(*c.StartTime))
	}
	if c.EndTime != nil {
		w.clauses = append(w.clauses, "ctime <= "+w.nextArg(*c.EndTime))
	}
	if c.EventID != "" {
		w.clauses = append(w.clauses, "id = "+w.nextArg(c.EventID))
	}
	if len(c.EventIDs) > 0 {
		w.clauses = append(w.clauses, "id = ANY("+w.nextArg(pq.Array(c.EventIDs))+")")
	}
	if len(c.TriggerIDs) > 0 {
		w.clauses = append(w.clauses, "trigger_id = ANY("+w.nextArg(pq.Array(c.TriggerIDs))+")")
	}
	if len(c.Categories) > 0 {
		w.clauses = append(w.clauses, "category = ANY("+w.nextArg(pq.Array(c.Categories))+")")
	}

	// Sorted so the generated SQL is stable.
	names := make([]string, 0, len(c.Tags))
	for name := range c.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := c.Tags[name]
		if value == event.TagWildcard {
			w.clauses = append(w.clauses, "tags ? "+w.nextArg(name))
			continue
		}
		kp := w.nextArg(name)
		vp := w.nextArg(value)
		w.clauses = append(w.clauses, fmt.Sprintf("tags->>%s = %s", kp, vp))
	}
	return w
}

// parseSortClause converts pager orders to an ORDER BY clause using whitelisted columns.
func parseSortClause(order []paging.Order) string {
	var parts []string
	for _, o := range order {
		col, ok := store.SortFields[o.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Direction == paging.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		parts = append(parts, "ctime DESC")
	}
	return strings.Join(append(parts, "id ASC"), ", ")
}

func queryListEvents(ctx context.Context, db executor, tenantID string, c *event.Criteria, pager paging.Pager) ([]*event.Event, int, error) {
	w := buildWhere(tenantID, c)
	whereSQL := w.sql()
	countArgs := len(w.args)

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + eventColumns + " FROM events" + whereSQL +
		" ORDER BY " + parseSortClause(pager.Order)
	if pager.IsLimited() {
		dataQuery += " LIMIT " + w.nextArg(pager.PerPage)
		if off := pager.Offset(); off > 0 {
			dataQuery += " OFFSET " + w.nextArg(off)
		}
	}

	rows, err := db.QueryContext(ctx, dataQuery, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	var total int
	for rows.Next() {
		ev, t, err := scanEventWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan events: %w", err)
		}
		total = t
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan events: %w", err)
	}

	// A page past the end returns no rows and therefore no window count.
	if len(events) == 0 && pager.Offset() > 0 {
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+whereSQL, w.args[:countArgs]...).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("count events: %w", err)
		}
	}

	return events, total, nil
}

func queryDeleteEvents(ctx context.Context, db executor, tenantID string, c *event.Criteria) (int, error) {
	w := buildWhere(tenantID, c)
	res, err := db.ExecContext(ctx, "DELETE FROM events"+w.sql(), w.args...)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return int(n), nil
}

func queryAddTags(ctx context.Context, db executor, tenantID string, ids []string, tags map[string]string) error {
	tagsJSON, err := jsonMap(tags)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE events SET tags = tags || $3::jsonb WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, pq.Array(ids), string(tagsJSON))
	if err != nil {
		return fmt.Errorf("add tags: %w", err)
	}
	return nil
}

func queryRemoveTags(ctx context.Context, db executor, tenantID string, ids []string, names []string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE events SET tags = tags - $3::text[] WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, pq.Array(ids), pq.Array(names))
	if err != nil {
		return fmt.Errorf("remove tags: %w", err)
	}
	return nil
}

// jsonMap encodes a string map for a NOT NULL JSONB column.
func jsonMap(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}

// jsonNullable encodes v for a nullable JSONB column.
func jsonNullable(v any, isNull bool) ([]byte, error) {
	if isNull {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}
