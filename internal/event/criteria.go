package event

// TagWildcard as a criteria tag value matches any value for that tag name.
const TagWildcard = "*"

// Criteria filters events for queries and bulk deletes.
// Unset dimensions (nil pointers, nil slices, nil map, empty EventID) do not restrict.
type Criteria struct {
	StartTime  *int64            `json:"startTime,omitempty"`
	EndTime    *int64            `json:"endTime,omitempty"`
	EventID    string            `json:"eventId,omitempty"`
	EventIDs   []string          `json:"eventIds,omitempty"`
	TriggerIDs []string          `json:"triggerIds,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	Thin       bool              `json:"thin"`
}

// Match reports whether ev satisfies every set dimension. Time bounds are inclusive.
func (c *Criteria) Match(ev *Event) bool {
	if c == nil {
		return true
	}
	if c.StartTime != nil && ev.CTime < *c.StartTime {
		return false
	}
	if c.EndTime != nil && ev.CTime > *c.EndTime {
		return false
	}
	if c.EventID != "" && ev.ID != c.EventID {
		return false
	}
	if len(c.EventIDs) > 0 && !contains(c.EventIDs, ev.ID) {
		return false
	}
	if len(c.TriggerIDs) > 0 && !contains(c.TriggerIDs, ev.TriggerID) {
		return false
	}
	if len(c.Categories) > 0 && !contains(c.Categories, ev.Category) {
		return false
	}
	for name, want := range c.Tags {
		got, ok := ev.Tags[name]
		if !ok {
			return false
		}
		if want != TagWildcard && got != want {
			return false
		}
	}
	return true
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
