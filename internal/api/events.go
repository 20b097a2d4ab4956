package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
)

// POST /events: persist one event and submit it for evaluation.
func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request, tenant string) {
	var ev *event.Event
	if err := decodeBody(r, &ev); err != nil {
		badRequest(w, err.Error())
		return
	}
	if ev == nil {
		badRequest(w, "Event is null")
		return
	}
	if event.IsBlank(ev.ID) {
		badRequest(w, "Event with id null.")
		return
	}
	if event.IsBlank(ev.Category) {
		badRequest(w, "Event with category null.")
		return
	}
	ev.TenantID = tenant

	existing, err := h.svc.GetEvent(r.Context(), tenant, ev.ID, true)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if existing != nil {
		badRequest(w, "Event with ID ["+ev.ID+"] exists.")
		return
	}
	if !ev.ValidTags() {
		badRequest(w, "Tags "+formatTags(ev.Tags)+" must be non empty.")
		return
	}
	if err := h.svc.AddEvents(r.Context(), []*event.Event{ev}); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Debug("event created", "tenant", tenant, "event_id", ev.ID)
	writeJSON(w, http.StatusOK, ev)
}

// POST /events/data: submit events for evaluation without persisting them.
func (h *Handler) sendEvents(w http.ResponseWriter, r *http.Request, tenant string) {
	var events []*event.Event
	if err := decodeBody(r, &events); err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(events) == 0 {
		badRequest(w, "Events are empty")
		return
	}
	for _, ev := range events {
		if ev != nil {
			ev.TenantID = tenant
		}
	}
	if err := h.svc.SendEvents(r.Context(), events); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Debug("events sent", "tenant", tenant, "count", len(events))
	writeOK(w)
}

// PUT /events/tags?eventIds=a,b&tags=name|value,...
func (h *Handler) addTags(w http.ResponseWriter, r *http.Request, tenant string) {
	q := r.URL.Query()
	eventIDs, tags := q.Get("eventIds"), q.Get("tags")
	// The guard accepts a blank eventIds when tags is blank too; the service
	// then rejects the empty id list.
	if !event.IsBlank(eventIDs) || event.IsBlank(tags) {
		c := event.BuildCriteria(event.CriteriaParams{EventIDs: eventIDs, Tags: tags})
		if err := h.svc.AddEventTags(r.Context(), tenant, c.EventIDs, c.Tags); err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Debug("events tagged", "tenant", tenant, "event_ids", c.EventIDs, "tags", c.Tags)
		writeOK(w)
		return
	}
	badRequest(w, "EventIds and Tags required for adding tags")
}

// DELETE /events/tags?eventIds=a,b&tagNames=x,y
func (h *Handler) removeTags(w http.ResponseWriter, r *http.Request, tenant string) {
	q := r.URL.Query()
	eventIDs, tagNames := q.Get("eventIds"), q.Get("tagNames")
	if !event.IsBlank(eventIDs) || event.IsBlank(tagNames) {
		ids, names := event.SplitCSV(eventIDs), event.SplitCSV(tagNames)
		if err := h.svc.RemoveEventTags(r.Context(), tenant, ids, names); err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Debug("events untagged", "tenant", tenant, "event_ids", ids, "tag_names", names)
		writeOK(w)
		return
	}
	badRequest(w, "EventIds and Tags required for removing tags")
}

// GET /events: query by criteria with paging.
func (h *Handler) findEvents(w http.ResponseWriter, r *http.Request, tenant string) {
	q := r.URL.Query()
	params, err := criteriaParams(q, true)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := h.svc.GetEvents(r.Context(), tenant, event.BuildCriteria(params), paging.Extract(q))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if page.IsEmpty() {
		writeJSON(w, http.StatusOK, []*event.Event{})
		return
	}
	paging.WriteLinks(w.Header(), page, requestURL(r))
	writeJSON(w, http.StatusOK, page.Items)
}

// DELETE /events/{eventId}
func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request, tenant string) {
	id := r.PathValue("eventId")
	n, err := h.svc.DeleteEvents(r.Context(), tenant, &event.Criteria{EventID: id})
	if err != nil {
		slog.Debug("delete event failed", "tenant", tenant, "event_id", id, "err", err)
		internalError(w)
		return
	}
	if n != 1 {
		notFound(w, "Event "+id+" doesn't exist for delete")
		return
	}
	slog.Debug("event deleted", "tenant", tenant, "event_id", id)
	writeOK(w)
}

// PUT /events/delete: delete by criteria, returns the count.
func (h *Handler) deleteEvents(w http.ResponseWriter, r *http.Request, tenant string) {
	params, err := criteriaParams(r.URL.Query(), false)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	n, err := h.svc.DeleteEvents(r.Context(), tenant, event.BuildCriteria(params))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Debug("events deleted", "tenant", tenant, "count", n)
	writeJSON(w, http.StatusOK, n)
}

// GET /events/event/{eventId}?thin=true
func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request, tenant string) {
	id := r.PathValue("eventId")
	thin, err := boolParam(r.URL.Query(), "thin")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), tenant, id, thin != nil && *thin)
	if err != nil {
		slog.Debug("get event failed", "tenant", tenant, "event_id", id, "err", err)
		internalError(w)
		return
	}
	if ev == nil {
		notFound(w, "eventId: "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// criteriaParams reads the criteria query parameters. thin is only read when
// withThin is set.
func criteriaParams(q url.Values, withThin bool) (event.CriteriaParams, error) {
	p := event.CriteriaParams{
		EventIDs:   q.Get("eventIds"),
		TriggerIDs: q.Get("triggerIds"),
		Categories: q.Get("categories"),
		Tags:       q.Get("tags"),
	}
	var err error
	if p.StartTime, err = int64Param(q, "startTime"); err != nil {
		return p, err
	}
	if p.EndTime, err = int64Param(q, "endTime"); err != nil {
		return p, err
	}
	if withThin {
		if p.Thin, err = boolParam(q, "thin"); err != nil {
			return p, err
		}
	}
	return p, nil
}

func int64Param(q url.Values, name string) (*int64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q is not an integer", name, v)
	}
	return &n, nil
}

func boolParam(q url.Values, name string) (*bool, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q is not a boolean", name, v)
	}
	return &b, nil
}

// decodeBody decodes JSON into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON: %s", err)
	}
	return nil
}

// requestURL is the URL links are derived from, made absolute from the Host header.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	return &u
}

// formatTags renders tags as {name=value, ...} sorted by name.
func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
