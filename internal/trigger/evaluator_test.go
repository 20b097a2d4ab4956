package trigger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/alerts/internal/config"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/trigger"
)

func makeEvent(category, source string, ctx map[string]string) *event.Event {
	return &event.Event{
		TenantID:   "acme",
		ID:         "test-evt",
		CTime:      1700000000000,
		Category:   category,
		DataSource: source,
		DataID:     "cpu.load",
		Context:    ctx,
		Tags:       map[string]string{"env": "prod"},
	}
}

func buildTestGraph(t *testing.T) *trigger.Graph {
	t.Helper()
	cfg := &config.AlertsConfig{
		Version: "v1",
		Triggers: []config.TriggerDef{
			{
				ID:          "trg_cpu",
				Description: "CPU high on prod",
				Enabled:     true,
				Categories:  []string{"metric"},
				DataSources: []string{"collector"},
				Children: []config.NodeRef{
					{Condition: &config.ConditionDef{
						ID:         "cond_prod",
						Expression: `tags.env == "prod"`,
						Children: []config.NodeRef{
							{Condition: &config.ConditionDef{
								ID:         "cond_value",
								Expression: "context.value > 90",
								Children: []config.NodeRef{
									{Action: &config.ActionDef{
										ID:     "act_page",
										Type:   "notify",
										Params: map[string]any{"subject": "alerts.cpu"},
									}},
								},
							}},
						},
					}},
				},
			},
			{
				ID:         "trg_log",
				Enabled:    true,
				Categories: []string{"LOG"},
				Children: []config.NodeRef{
					{Condition: &config.ConditionDef{
						ID:         "cond_error",
						Expression: `event.text contains "ERROR"`,
					}},
				},
			},
		},
	}
	g, err := trigger.Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return g
}

func TestEvaluate_TriggerFires(t *testing.T) {
	g := buildTestGraph(t)

	ev := makeEvent("METRIC", "collector", map[string]string{"value": "95"})
	matches, err := trigger.Evaluate(g, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Trigger.ID() != "trg_cpu" {
		t.Fatalf("expected [trg_cpu], got %v", matches)
	}
	m := matches[0]
	if !m.Fired {
		t.Fatal("expected trigger to fire")
	}
	if len(m.Actions) != 1 || m.Actions[0].ID() != "act_page" {
		t.Errorf("expected act_page, got %v", m.Actions)
	}
	if len(m.EvalSets) != 1 || len(m.EvalSets[0]) != 2 {
		t.Fatalf("expected one eval set of two conditions, got %v", m.EvalSets)
	}
	if m.EvalSets[0][0].ConditionID != "cond_prod" || m.EvalSets[0][1].ConditionID != "cond_value" {
		t.Errorf("unexpected eval set order: %+v", m.EvalSets[0])
	}
	if m.EvalSets[0][1].Expression != "context.value > 90" || !m.EvalSets[0][1].Match {
		t.Errorf("unexpected condition eval: %+v", m.EvalSets[0][1])
	}
}

func TestEvaluate_ConditionPrune(t *testing.T) {
	g := buildTestGraph(t)

	ev := makeEvent("METRIC", "collector", map[string]string{"value": "50"})
	matches, err := trigger.Evaluate(g, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected trg_cpu filters to pass, got %v", matches)
	}
	if matches[0].Fired || len(matches[0].Actions) != 0 || len(matches[0].EvalSets) != 0 {
		t.Errorf("expected no firing, got %+v", matches[0])
	}
}

func TestEvaluate_LeafCondition(t *testing.T) {
	g := buildTestGraph(t)

	ev := makeEvent("log", "", nil)
	ev.Text = "ERROR disk failure"
	matches, err := trigger.Evaluate(g, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Trigger.ID() != "trg_log" {
		t.Fatalf("expected [trg_log], got %v", matches)
	}
	if !matches[0].Fired || len(matches[0].Actions) != 0 {
		t.Errorf("expected action-less firing, got %+v", matches[0])
	}
}

func TestEvaluate_WrongSource(t *testing.T) {
	g := buildTestGraph(t)

	ev := makeEvent("METRIC", "mobile-app", map[string]string{"value": "99"})
	matches, _ := trigger.Evaluate(g, ev)
	if len(matches) != 0 {
		t.Errorf("trg_cpu should not match source mobile-app, got %v", matches)
	}
}

func TestEvaluate_DisabledTrigger(t *testing.T) {
	cfg := &config.AlertsConfig{
		Version: "v1",
		Triggers: []config.TriggerDef{{
			ID:      "trg_disabled",
			Enabled: false,
			Children: []config.NodeRef{
				{Action: &config.ActionDef{ID: "act_never", Type: "notify"}},
			},
		}},
	}
	g, err := trigger.Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	matches, _ := trigger.Evaluate(g, makeEvent("METRIC", "", nil))
	if len(matches) != 0 {
		t.Errorf("disabled trigger should not match, got %v", matches)
	}
}

func TestEvaluate_ConditionErrorIsSurfaced(t *testing.T) {
	cfg := &config.AlertsConfig{
		Version: "v1",
		Triggers: []config.TriggerDef{{
			ID:      "trg_bad",
			Enabled: true,
			Children: []config.NodeRef{
				{Condition: &config.ConditionDef{ID: "cond_bad", Expression: "event.category > 5"}},
			},
		}},
	}
	g, err := trigger.Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	matches, err := trigger.Evaluate(g, makeEvent("METRIC", "", nil))
	if err == nil || !strings.Contains(err.Error(), "cond_bad") {
		t.Fatalf("expected cond_bad error, got %v", err)
	}
	if len(matches) != 1 || matches[0].Fired {
		t.Errorf("failing branch must not fire, got %+v", matches)
	}
}

type rejectAll struct{}

func (rejectAll) Validate(actionType string, _ map[string]any) error {
	return errors.New("unknown " + actionType)
}

func TestBuild_Errors(t *testing.T) {
	cfg := &config.AlertsConfig{
		Version: "v1",
		Triggers: []config.TriggerDef{{
			ID:      "trg",
			Enabled: true,
			Children: []config.NodeRef{
				{Condition: &config.ConditionDef{ID: "cond", Expression: "value >"}},
			},
		}},
	}
	if _, err := trigger.Build(cfg, nil); err == nil {
		t.Error("expected parse error")
	}

	cfg.Triggers[0].Children = []config.NodeRef{{Action: &config.ActionDef{ID: "act", Type: "carrier_pigeon"}}}
	if _, err := trigger.Build(cfg, rejectAll{}); err == nil || !strings.Contains(err.Error(), "carrier_pigeon") {
		t.Errorf("expected action validation error, got %v", err)
	}
}

func TestTriggerNodeDefaults(t *testing.T) {
	n := trigger.NewTriggerNode(trigger.TriggerSpec{ID: "t", Categories: []string{"metric", "LOG"}})
	if n.EventCategory() != "TRIGGER" {
		t.Errorf("event category = %q, want TRIGGER", n.EventCategory())
	}
	if d := n.Dampening(); d.Type != "STRICT" || d.EvalTrue != 1 {
		t.Errorf("dampening = %+v", d)
	}
	if got := n.Categories(); len(got) != 2 || got[0] != "LOG" || got[1] != "METRIC" {
		t.Errorf("categories = %v", got)
	}
}

func TestEvalContextResolve(t *testing.T) {
	ctx := trigger.NewEvalContext(makeEvent("METRIC", "collector", map[string]string{"value": "1"}))
	cases := []struct {
		path []string
		want any
		ok   bool
	}{
		{[]string{"event", "category"}, "METRIC", true},
		{[]string{"event", "dataSource"}, "collector", true},
		{[]string{"event", "ctime"}, float64(1700000000000), true},
		{[]string{"event", "text"}, nil, false},
		{[]string{"tags", "env"}, "prod", true},
		{[]string{"tags", "zone"}, nil, false},
		{[]string{"context", "value"}, "1", true},
		{[]string{"payload", "x"}, nil, false},
		{[]string{"event"}, nil, false},
	}
	for _, tc := range cases {
		got, ok := ctx.Resolve(tc.path)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("Resolve(%v) = %v, %v; want %v, %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}
