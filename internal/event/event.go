package event

import "strings"

// Event is the canonical model for events created by clients, sent for evaluation,
// or generated by the engine when a trigger fires.
type Event struct {
	TenantID   string            `json:"tenantId"`
	ID         string            `json:"id"`
	CTime      int64             `json:"ctime"` // epoch millis
	DataSource string            `json:"dataSource,omitempty"`
	DataID     string            `json:"dataId,omitempty"`
	Category   string            `json:"category"`
	Text       string            `json:"text,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	TriggerID  string            `json:"triggerId,omitempty"`

	// Engine-owned. Dropped by the thin projection.
	Dampening *Dampening        `json:"dampening,omitempty"`
	EvalSets  [][]ConditionEval `json:"evalSets,omitempty"`
}

// Dampening describes how many consecutive true evaluations a trigger needed before firing.
type Dampening struct {
	TriggerID string `json:"triggerId"`
	Type      string `json:"type"`
	EvalTrue  int    `json:"evalTrueSetting"`
}

// ConditionEval records a single condition evaluation that contributed to a firing.
type ConditionEval struct {
	ConditionID string `json:"conditionId"`
	Expression  string `json:"expression"`
	Match       bool   `json:"match"`
	EvalTime    int64  `json:"evalTimestamp"`
}

// Thin returns a shallow copy without evaluation sets and dampening.
func (e *Event) Thin() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Dampening = nil
	c.EvalSets = nil
	return &c
}

// Clone returns a copy whose maps can be mutated independently of e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Context = copyMap(e.Context)
	c.Tags = copyMap(e.Tags)
	return &c
}

// ValidTags reports whether every tag has a non-blank name and value.
// An event without tags is valid.
func (e *Event) ValidTags() bool {
	for k, v := range e.Tags {
		if IsBlank(k) || IsBlank(v) {
			return false
		}
	}
	return true
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
