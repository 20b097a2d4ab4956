package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/alerts/internal/alerts"
	"github.com/gyaneshwarpardhi/alerts/internal/config"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/paging"
	"github.com/gyaneshwarpardhi/alerts/internal/store/memory"
	"github.com/gyaneshwarpardhi/alerts/internal/trigger"
)

type fakeEngine struct {
	util  float64
	graph *trigger.Graph
	sent  []*event.Event
}

func (f *fakeEngine) ProcessAsync(ev *event.Event) bool {
	f.sent = append(f.sent, ev)
	return true
}
func (f *fakeEngine) QueueUtilization() float64 { return f.util }
func (f *fakeEngine) Graph() *trigger.Graph     { return f.graph }

type fakeReloader struct {
	g   *trigger.Graph
	err error
}

func (f *fakeReloader) Reload() (*trigger.Graph, error) { return f.g, f.err }

func newTestServer(t *testing.T) (http.Handler, *fakeEngine) {
	t.Helper()
	eng := &fakeEngine{graph: trigger.NewGraph("empty")}
	svc := alerts.New(memory.New(), eng)
	return New(svc, eng, nil), eng
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(TenantHeader, "acme")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var er errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&er); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return er.Error
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []*event.Event {
	t.Helper()
	var out []*event.Event
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode events %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTenantHeaderRequired(t *testing.T) {
	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || errorMsg(t, rec) != "Tenant header missing" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateEvent(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		code    int
		wantMsg string
	}{
		{name: "null body", body: "null", code: 400, wantMsg: "Event is null"},
		{name: "empty body", body: "", code: 400, wantMsg: "Event is null"},
		{name: "bad json", body: "{", code: 400, wantMsg: "invalid JSON"},
		{name: "id null", body: `{"category":"LOG"}`, code: 400, wantMsg: "Event with id null."},
		{name: "blank id", body: `{"id":"  ","category":"LOG"}`, code: 400, wantMsg: "id null"},
		{name: "category null", body: `{"id":"e1"}`, code: 400, wantMsg: "Event with category null."},
		{name: "bad tags", body: `{"id":"e1","category":"LOG","tags":{"env":""}}`, code: 400, wantMsg: "Tags {env=} must be non empty."},
		{name: "ok", body: `{"id":"e1","category":"LOG","tenantId":"other","tags":{"env":"prod"}}`, code: 200},
	}
	h, eng := newTestServer(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/events", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tc.code, rec.Body.String())
			}
			if tc.wantMsg != "" {
				if msg := errorMsg(t, rec); !strings.Contains(msg, tc.wantMsg) {
					t.Errorf("message %q does not contain %q", msg, tc.wantMsg)
				}
				return
			}
			var got event.Event
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.ID != "e1" || got.Category != "LOG" || got.TenantID != "acme" {
				t.Errorf("unexpected response %+v", got)
			}
		})
	}
	if len(eng.sent) != 1 {
		t.Errorf("expected exactly one submitted event, got %d", len(eng.sent))
	}

	rec := do(t, h, http.MethodPost, "/events/", `{"id":"e1","category":"LOG"}`)
	if rec.Code != 400 || !strings.Contains(errorMsg(t, rec), "exists") {
		t.Errorf("duplicate: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSendEvents(t *testing.T) {
	h, eng := newTestServer(t)

	for _, body := range []string{"[]", "null", ""} {
		rec := do(t, h, http.MethodPost, "/events/data", body)
		if rec.Code != 400 || errorMsg(t, rec) != "Events are empty" {
			t.Errorf("body %q: got %d %s", body, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, h, http.MethodPost, "/events/data", `[{"id":"s1","category":"METRIC"}]`)
	if rec.Code != 200 || rec.Body.Len() != 0 {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if len(eng.sent) != 1 || eng.sent[0].TenantID != "acme" {
		t.Fatalf("event not forwarded with tenant: %+v", eng.sent)
	}
	rec = do(t, h, http.MethodGet, "/events/event/s1", "")
	if rec.Code != 404 || errorMsg(t, rec) != "eventId: s1 not found" {
		t.Errorf("sent event must not be retrievable, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/events/data", `[{"id":"s2"}]`)
	if rec.Code != 400 || !strings.HasPrefix(errorMsg(t, rec), "Bad arguments: ") {
		t.Errorf("invalid event: got %d %s", rec.Code, rec.Body.String())
	}
}

func seed(t *testing.T, h http.Handler, bodies ...string) {
	t.Helper()
	for _, b := range bodies {
		if rec := do(t, h, http.MethodPost, "/events", b); rec.Code != 200 {
			t.Fatalf("seed %s: %d %s", b, rec.Code, rec.Body.String())
		}
	}
}

func TestFindEvents(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/events", "")
	if rec.Code != 200 || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty find: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Link") != "" || rec.Header().Get("X-Total-Count") != "" {
		t.Error("empty page must not carry paging headers")
	}

	seed(t, h,
		`{"id":"a","category":"LOG","ctime":100,"tags":{"env":"prod"}}`,
		`{"id":"b","category":"LOG","ctime":200,"tags":{"env":"dev"}}`,
		`{"id":"c","category":"METRIC","ctime":300}`,
	)

	rec = do(t, h, http.MethodGet, "/events", "")
	if got := decodeEvents(t, rec); len(got) != 3 {
		t.Fatalf("find all: got %d events", len(got))
	}
	if rec.Header().Get("X-Total-Count") != "3" || !strings.Contains(rec.Header().Get("Link"), `rel="current"`) {
		t.Errorf("missing paging headers: %v", rec.Header())
	}

	rec = do(t, h, http.MethodGet, "/events?tags=env|*", "")
	if got := decodeEvents(t, rec); len(got) != 2 {
		t.Errorf("tags=env|*: got %d events", len(got))
	}

	rec = do(t, h, http.MethodGet, "/events?categories=LOG&startTime=150", "")
	if got := decodeEvents(t, rec); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("categories+startTime: got %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/events?per_page=1&page=1", "")
	got := decodeEvents(t, rec)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("page 1: got %+v", got)
	}
	link := rec.Header().Get("Link")
	for _, rel := range []string{"first", "prev", "next", "last"} {
		if !strings.Contains(link, `rel="`+rel+`"`) {
			t.Errorf("Link %q missing rel=%s", link, rel)
		}
	}

	rec = do(t, h, http.MethodGet, "/events?page=461168601842738791&per_page=20", "")
	if rec.Code != 200 || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("huge page: %d %q", rec.Code, rec.Body.String())
	}

	for _, q := range []string{"startTime=yesterday", "endTime=1.5", "thin=maybe"} {
		rec = do(t, h, http.MethodGet, "/events?"+q, "")
		if rec.Code != 400 {
			t.Errorf("%s: got %d", q, rec.Code)
		}
	}
}

func TestTags(t *testing.T) {
	h, _ := newTestServer(t)
	seed(t, h, `{"id":"a","category":"LOG"}`, `{"id":"b","category":"LOG"}`)

	rec := do(t, h, http.MethodPut, "/events/tags?eventIds=a,b&tags=env|prod,bad", "")
	if rec.Code != 200 {
		t.Fatalf("add tags: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/events?tags=env|prod", "")
	if got := decodeEvents(t, rec); len(got) != 2 {
		t.Errorf("expected 2 tagged events, got %d", len(got))
	}

	rec = do(t, h, http.MethodPut, "/events/tags?tags=env|prod", "")
	if rec.Code != 400 || errorMsg(t, rec) != "EventIds and Tags required for adding tags" {
		t.Errorf("blank eventIds: %d %s", rec.Code, rec.Body.String())
	}
	// Both blank passes the guard and is rejected by the service.
	rec = do(t, h, http.MethodPut, "/events/tags", "")
	if rec.Code != 400 || !strings.HasPrefix(errorMsg(t, rec), "Bad arguments: ") {
		t.Errorf("both blank: %d %s", rec.Code, rec.Body.String())
	}
	// eventIds without tags also passes the guard.
	rec = do(t, h, http.MethodPut, "/events/tags?eventIds=a", "")
	if rec.Code != 400 || !strings.HasPrefix(errorMsg(t, rec), "Bad arguments: ") {
		t.Errorf("eventIds only: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPut, "/events/tags?eventIds=a&tags=bad", "")
	if rec.Code != 400 || !strings.HasPrefix(errorMsg(t, rec), "Bad arguments: ") {
		t.Errorf("no valid tags: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodDelete, "/events/tags?eventIds=a&tagNames=env", "")
	if rec.Code != 200 {
		t.Fatalf("remove tags: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/events?tags=env|*", "")
	if got := decodeEvents(t, rec); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("expected only b tagged, got %+v", got)
	}
	rec = do(t, h, http.MethodDelete, "/events/tags?tagNames=env", "")
	if rec.Code != 400 || errorMsg(t, rec) != "EventIds and Tags required for removing tags" {
		t.Errorf("blank eventIds: %d %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteAndGetEvent(t *testing.T) {
	h, _ := newTestServer(t)
	seed(t, h, `{"id":"a","category":"LOG","evalSets":[[{"conditionId":"c1","match":true}]]}`)

	rec := do(t, h, http.MethodGet, "/events/event/a?thin=true", "")
	var got event.Event
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || got.ID != "a" || got.EvalSets != nil {
		t.Fatalf("thin get: %v %+v", err, got)
	}
	rec = do(t, h, http.MethodGet, "/events/event/a", "")
	got = event.Event{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || len(got.EvalSets) != 1 {
		t.Fatalf("full get: %v %+v", err, got)
	}

	rec = do(t, h, http.MethodDelete, "/events/missing", "")
	if rec.Code != 404 || errorMsg(t, rec) != "Event missing doesn't exist for delete" {
		t.Errorf("delete missing: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodDelete, "/events/a", "")
	if rec.Code != 200 {
		t.Errorf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/events/event/a", "")
	if rec.Code != 404 {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestDeleteByCriteria(t *testing.T) {
	h, _ := newTestServer(t)
	seed(t, h,
		`{"id":"a","category":"LOG"}`,
		`{"id":"b","category":"LOG"}`,
		`{"id":"c","category":"METRIC"}`,
	)
	rec := do(t, h, http.MethodPut, "/events/delete?categories=LOG", "")
	var n int
	if err := json.NewDecoder(rec.Body).Decode(&n); err != nil || rec.Code != 200 || n != 2 {
		t.Fatalf("delete by criteria: %d %v %d", rec.Code, err, n)
	}
	rec = do(t, h, http.MethodGet, "/events", "")
	if got := decodeEvents(t, rec); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("remaining: %+v", got)
	}
}

// failingService returns err from every call.
type failingService struct{ err error }

func (f failingService) AddEvents(context.Context, []*event.Event) error  { return f.err }
func (f failingService) SendEvents(context.Context, []*event.Event) error { return f.err }
func (f failingService) GetEvent(context.Context, string, string, bool) (*event.Event, error) {
	return nil, f.err
}
func (f failingService) GetEvents(context.Context, string, *event.Criteria, paging.Pager) (*paging.Page[*event.Event], error) {
	return nil, f.err
}
func (f failingService) DeleteEvents(context.Context, string, *event.Criteria) (int, error) {
	return 0, f.err
}
func (f failingService) AddEventTags(context.Context, string, []string, map[string]string) error {
	return f.err
}
func (f failingService) RemoveEventTags(context.Context, string, []string, []string) error {
	return f.err
}

func TestErrorMapping(t *testing.T) {
	requests := []struct{ method, target, body string }{
		{http.MethodPost, "/events/data", `[{"id":"a","category":"LOG"}]`},
		{http.MethodPut, "/events/tags?eventIds=a&tags=env|prod", ""},
		{http.MethodDelete, "/events/tags?eventIds=a&tagNames=env", ""},
		{http.MethodGet, "/events", ""},
		{http.MethodPut, "/events/delete", ""},
	}
	eng := &fakeEngine{}

	infra := New(failingService{err: errors.New("connection refused")}, eng, nil)
	invalid := New(failingService{err: &alerts.InvalidArgumentError{Msg: "nope"}}, eng, nil)
	for _, r := range requests {
		rec := do(t, infra, r.method, r.target, r.body)
		if rec.Code != 500 || errorMsg(t, rec) != "Internal server error" {
			t.Errorf("%s %s infra: %d %s", r.method, r.target, rec.Code, rec.Body.String())
		}
		rec = do(t, invalid, r.method, r.target, r.body)
		if rec.Code != 400 || errorMsg(t, rec) != "Bad arguments: nope" {
			t.Errorf("%s %s invalid: %d %s", r.method, r.target, rec.Code, rec.Body.String())
		}
	}

	// Delete one and get one map every failure to 500.
	for _, target := range []string{"/events/a", "/events/event/a"} {
		method := http.MethodDelete
		if strings.HasPrefix(target, "/events/event/") {
			method = http.MethodGet
		}
		rec := do(t, invalid, method, target, "")
		if rec.Code != 500 {
			t.Errorf("%s %s: got %d, want 500", method, target, rec.Code)
		}
	}

	// Create checks existence first, so the lookup error is mapped.
	rec := do(t, invalid, http.MethodPost, "/events", `{"id":"a","category":"LOG"}`)
	if rec.Code != 400 {
		t.Errorf("create invalid: %d", rec.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	cfg := &config.AlertsConfig{Version: "v7", Triggers: []config.TriggerDef{{
		ID:          "trg",
		Description: "d",
		Enabled:     true,
		Categories:  []string{"METRIC"},
		Children:    []config.NodeRef{{Condition: &config.ConditionDef{ID: "c", Expression: "context.value > 1"}}},
	}}}
	g, err := trigger.Build(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{graph: g, util: 0.9}
	h := New(alerts.New(memory.New(), eng), eng, &fakeReloader{g: g})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != 200 {
		t.Errorf("healthz: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz overloaded: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/triggers", "")
	var listed struct {
		Version  string           `json:"version"`
		Triggers []triggerSummary `json:"triggers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if listed.Version != "v7" || len(listed.Triggers) != 1 || listed.Triggers[0].EventCategory != "TRIGGER" {
		t.Errorf("triggers: %+v", listed)
	}
	rec = do(t, h, http.MethodPost, "/triggers/reload", "")
	if rec.Code != 200 {
		t.Errorf("reload: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "alerts_http_requests_total") {
		t.Errorf("metrics: %d", rec.Code)
	}

	failing := New(alerts.New(memory.New(), eng), eng, &fakeReloader{err: errors.New("parse error")})
	if rec := do(t, failing, http.MethodPost, "/triggers/reload", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("failed reload: %d", rec.Code)
	}
	if rec := do(t, New(alerts.New(memory.New(), eng), eng, nil), http.MethodPost, "/triggers/reload", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("reload without reloader: %d", rec.Code)
	}
}
