package trigger

import (
	"fmt"

	"github.com/gyaneshwarpardhi/alerts/internal/condition"
	"github.com/gyaneshwarpardhi/alerts/internal/config"
)

// ActionValidator checks action params at build time.
type ActionValidator interface {
	Validate(actionType string, params map[string]any) error
}

// Build constructs a Graph from a validated AlertsConfig. Expressions are compiled
// here; nothing is parsed at evaluation time. A nil validator skips action checks.
func Build(cfg *config.AlertsConfig, av ActionValidator) (*Graph, error) {
	g := NewGraph(cfg.Version)
	for _, tr := range cfg.Triggers {
		if !tr.Enabled {
			continue
		}
		tn := NewTriggerNode(TriggerSpec{
			ID:            tr.ID,
			Description:   tr.Description,
			Categories:    tr.Categories,
			DataSources:   tr.DataSources,
			EventCategory: tr.EventCategory,
			Tags:          tr.Tags,
			Dampening:     Dampening{Type: tr.Dampening.Type, EvalTrue: tr.Dampening.EvalTrue},
		})
		g.AddNode(tn)
		if err := buildChildren(g, av, tr.ID, tr.Children); err != nil {
			return nil, fmt.Errorf("trigger %s: %w", tr.ID, err)
		}
	}
	return g, nil
}

func buildChildren(g *Graph, av ActionValidator, parentID string, refs []config.NodeRef) error {
	for _, ref := range refs {
		switch {
		case ref.Condition != nil:
			c := ref.Condition
			ast, err := condition.Parse(c.Expression)
			if err != nil {
				return fmt.Errorf("condition %s: parse %q: %w", c.ID, c.Expression, err)
			}
			cn := NewConditionNode(c.ID, c.Expression, ast)
			g.AddNode(cn)
			g.AddEdge(parentID, cn)
			if err := buildChildren(g, av, c.ID, c.Children); err != nil {
				return fmt.Errorf("condition %s: %w", c.ID, err)
			}
		case ref.Action != nil:
			a := ref.Action
			if av != nil {
				if err := av.Validate(a.Type, a.Params); err != nil {
					return fmt.Errorf("action %s: %w", a.ID, err)
				}
			}
			an := NewActionNode(a.ID, a.Type, a.Params)
			g.AddNode(an)
			g.AddEdge(parentID, an)
		}
	}
	return nil
}
