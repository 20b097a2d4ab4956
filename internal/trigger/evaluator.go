package trigger

import (
	"fmt"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// Match is the outcome of one trigger whose filters accepted the event.
type Match struct {
	Trigger *TriggerNode
	// Fired is true when at least one full path to a leaf passed.
	Fired    bool
	Actions  []*ActionNode
	EvalSets [][]event.ConditionEval
}

// Evaluate runs a DFS over the graph for ev. It returns one Match per trigger
// whose category and data source filters passed, fired or not.
func Evaluate(g *Graph, ev *event.Event) ([]Match, error) {
	ctx := NewEvalContext(ev)

	var matches []Match
	for _, root := range g.Triggers() {
		ok, err := root.Evaluate(ctx)
		if err != nil {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("trigger %s: %w", root.ID(), err))
			continue
		}
		if !ok {
			continue
		}
		m := Match{Trigger: root}
		dfs(g, ctx, root.ID(), nil, &m)
		matches = append(matches, m)
	}

	var evalErr error
	if len(ctx.Errors) > 0 {
		evalErr = ctx.Errors[0] // surface first error; all are in ctx
	}
	return matches, evalErr
}

// dfs walks the children of parentID with early branch pruning. trail holds the
// condition evaluations of the current path.
func dfs(g *Graph, ctx *EvalContext, parentID string, trail []event.ConditionEval, m *Match) {
	for _, child := range g.Children(parentID) {
		switch n := child.(type) {
		case *ActionNode:
			m.Fired = true
			m.Actions = append(m.Actions, n)
			if len(trail) > 0 {
				m.EvalSets = appendSet(m.EvalSets, trail)
			}
		case *ConditionNode:
			ok, err := n.Evaluate(ctx)
			if err != nil {
				ctx.Errors = append(ctx.Errors, fmt.Errorf("condition %s: %w", n.ID(), err))
				continue // fail-open: skip this branch
			}
			if !ok {
				continue
			}
			path := append(trail[:len(trail):len(trail)], event.ConditionEval{
				ConditionID: n.ID(),
				Expression:  n.Expression(),
				Match:       true,
				EvalTime:    ctx.now().UnixMilli(),
			})
			if len(g.Children(n.ID())) == 0 {
				m.Fired = true
				m.EvalSets = appendSet(m.EvalSets, path)
				continue
			}
			dfs(g, ctx, n.ID(), path, m)
		}
	}
}

// appendSet adds set unless an identical path was already recorded.
func appendSet(sets [][]event.ConditionEval, set []event.ConditionEval) [][]event.ConditionEval {
	for _, s := range sets {
		if sameConditions(s, set) {
			return sets
		}
	}
	out := make([]event.ConditionEval, len(set))
	copy(out, set)
	return append(sets, out)
}

func sameConditions(a, b []event.ConditionEval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ConditionID != b[i].ConditionID {
			return false
		}
	}
	return true
}
