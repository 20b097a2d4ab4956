package trigger

import (
	"sort"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/alerts/internal/condition"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// NodeType discriminates the three kinds of graph nodes.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeCondition NodeType = "condition"
	NodeTypeAction    NodeType = "action"
)

// Node is the common interface for all graph nodes.
type Node interface {
	ID() string
	Type() NodeType
	Evaluate(ctx *EvalContext) (bool, error)
}

// EvalContext carries per-event state through the traversal.
type EvalContext struct {
	Event  *event.Event
	Errors []error
	now    func() time.Time
}

// NewEvalContext wraps ev for evaluation.
func NewEvalContext(ev *event.Event) *EvalContext {
	return &EvalContext{Event: ev, now: time.Now}
}

// Resolve implements condition.Resolver over event.*, tags.* and context.*.
func (c *EvalContext) Resolve(path []string) (any, bool) {
	if len(path) != 2 {
		return nil, false
	}
	ev := c.Event
	switch path[0] {
	case "tags":
		v, ok := ev.Tags[path[1]]
		return v, ok
	case "context":
		v, ok := ev.Context[path[1]]
		return v, ok
	case "event":
		switch path[1] {
		case "id":
			return ev.ID, true
		case "tenantId":
			return ev.TenantID, true
		case "category":
			return ev.Category, true
		case "dataSource":
			return ev.DataSource, ev.DataSource != ""
		case "dataId":
			return ev.DataID, ev.DataID != ""
		case "text":
			return ev.Text, ev.Text != ""
		case "triggerId":
			return ev.TriggerID, ev.TriggerID != ""
		case "ctime":
			return float64(ev.CTime), true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------
// TriggerNode
// -----------------------------------------------------------------------

// Dampening is the strict dampening setting of a trigger: it fires after
// EvalTrue consecutive matching evaluations.
type Dampening struct {
	Type     string
	EvalTrue int
}

// TriggerNode is the root of a trigger. It passes when the event category
// and data source are accepted.
type TriggerNode struct {
	id            string
	description   string
	categories    map[string]struct{} // empty = all categories
	dataSources   map[string]struct{} // empty = all sources
	eventCategory string
	tags          map[string]string
	dampening     Dampening
}

// TriggerSpec holds the attributes of a TriggerNode.
type TriggerSpec struct {
	ID            string
	Description   string
	Categories    []string
	DataSources   []string
	EventCategory string
	Tags          map[string]string
	Dampening     Dampening
}

func NewTriggerNode(s TriggerSpec) *TriggerNode {
	if s.EventCategory == "" {
		s.EventCategory = "TRIGGER"
	}
	if s.Dampening.Type == "" {
		s.Dampening.Type = "STRICT"
	}
	if s.Dampening.EvalTrue < 1 {
		s.Dampening.EvalTrue = 1
	}
	return &TriggerNode{
		id:            s.ID,
		description:   s.Description,
		categories:    upperSet(s.Categories),
		dataSources:   lowerSet(s.DataSources),
		eventCategory: s.EventCategory,
		tags:          s.Tags,
		dampening:     s.Dampening,
	}
}

func (n *TriggerNode) ID() string              { return n.id }
func (n *TriggerNode) Type() NodeType          { return NodeTypeTrigger }
func (n *TriggerNode) Description() string     { return n.description }
func (n *TriggerNode) EventCategory() string   { return n.eventCategory }
func (n *TriggerNode) Tags() map[string]string { return n.tags }
func (n *TriggerNode) Dampening() Dampening    { return n.dampening }
func (n *TriggerNode) Categories() []string    { return setKeys(n.categories) }
func (n *TriggerNode) DataSources() []string   { return setKeys(n.dataSources) }

func (n *TriggerNode) Evaluate(ctx *EvalContext) (bool, error) {
	if len(n.categories) > 0 {
		if _, ok := n.categories[strings.ToUpper(ctx.Event.Category)]; !ok {
			return false, nil
		}
	}
	if len(n.dataSources) > 0 {
		if _, ok := n.dataSources[strings.ToLower(ctx.Event.DataSource)]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// -----------------------------------------------------------------------
// ConditionNode
// -----------------------------------------------------------------------

// ConditionNode holds a pre-compiled expression.
type ConditionNode struct {
	id         string
	expression string
	expr       condition.Expr
}

func NewConditionNode(id, expression string, expr condition.Expr) *ConditionNode {
	return &ConditionNode{id: id, expression: expression, expr: expr}
}

func (n *ConditionNode) ID() string         { return n.id }
func (n *ConditionNode) Type() NodeType     { return NodeTypeCondition }
func (n *ConditionNode) Expression() string { return n.expression }

func (n *ConditionNode) Evaluate(ctx *EvalContext) (bool, error) {
	return condition.Evaluate(n.expr, ctx)
}

// -----------------------------------------------------------------------
// ActionNode
// -----------------------------------------------------------------------

// ActionNode is a leaf holding an action type and its params.
// Evaluate always passes; the engine executes it.
type ActionNode struct {
	id         string
	actionType string
	params     map[string]any
}

func NewActionNode(id, actionType string, params map[string]any) *ActionNode {
	return &ActionNode{id: id, actionType: actionType, params: params}
}

func (n *ActionNode) ID() string             { return n.id }
func (n *ActionNode) Type() NodeType         { return NodeTypeAction }
func (n *ActionNode) ActionType() string     { return n.actionType }
func (n *ActionNode) Params() map[string]any { return n.params }

func (n *ActionNode) Evaluate(*EvalContext) (bool, error) { return true, nil }

func upperSet(vals []string) map[string]struct{} {
	s := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		s[strings.ToUpper(v)] = struct{}{}
	}
	return s
}

func lowerSet(vals []string) map[string]struct{} {
	s := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		s[strings.ToLower(v)] = struct{}{}
	}
	return s
}

func setKeys(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
