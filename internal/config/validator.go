package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - duplicate IDs across triggers, conditions and actions
//   - required fields
//   - supported dampening settings
func Validate(cfg *AlertsConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	ids := make(map[string]string) // id → location
	var errs []string

	for i, tr := range cfg.Triggers {
		if tr.ID == "" {
			errs = append(errs, fmt.Sprintf("triggers[%d]: id is required", i))
			continue
		}
		loc := fmt.Sprintf("trigger %s", tr.ID)
		if prev, ok := ids[tr.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (first seen at %s, again at %s)", tr.ID, prev, loc))
		} else {
			ids[tr.ID] = loc
		}
		if len(tr.Children) == 0 {
			errs = append(errs, fmt.Sprintf("trigger %s: children must not be empty", tr.ID))
		}
		if t := tr.Dampening.Type; t != "" && !strings.EqualFold(t, "STRICT") {
			errs = append(errs, fmt.Sprintf("trigger %s: unsupported dampening type %q", tr.ID, t))
		}
		if tr.Dampening.EvalTrue < 0 {
			errs = append(errs, fmt.Sprintf("trigger %s: dampening eval_true must not be negative", tr.ID))
		}
		for k, v := range tr.Tags {
			if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Sprintf("trigger %s: tag %q=%q must have a non empty name and value", tr.ID, k, v))
			}
		}
		validateNodeRefs(tr.Children, loc, ids, &errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateNodeRefs(refs []NodeRef, parent string, ids map[string]string, errs *[]string) {
	for j, ref := range refs {
		switch {
		case ref.Condition != nil && ref.Action != nil:
			*errs = append(*errs, fmt.Sprintf("%s.children[%d]: only one of condition/action may be set", parent, j))
		case ref.Condition == nil && ref.Action == nil:
			*errs = append(*errs, fmt.Sprintf("%s.children[%d]: one of condition/action must be set", parent, j))
		case ref.Condition != nil:
			c := ref.Condition
			if c.ID == "" {
				*errs = append(*errs, fmt.Sprintf("%s.children[%d].condition: id is required", parent, j))
				continue
			}
			loc := fmt.Sprintf("condition %s", c.ID)
			checkDuplicate(c.ID, loc, ids, errs)
			if c.Expression == "" {
				*errs = append(*errs, fmt.Sprintf("condition %s: expression is required", c.ID))
			}
			validateNodeRefs(c.Children, loc, ids, errs)
		case ref.Action != nil:
			a := ref.Action
			if a.ID == "" {
				*errs = append(*errs, fmt.Sprintf("%s.children[%d].action: id is required", parent, j))
				continue
			}
			checkDuplicate(a.ID, fmt.Sprintf("action %s", a.ID), ids, errs)
			if a.Type == "" {
				*errs = append(*errs, fmt.Sprintf("action %s: type is required", a.ID))
			}
		}
	}
}

func checkDuplicate(id, loc string, ids map[string]string, errs *[]string) {
	if prev, ok := ids[id]; ok {
		*errs = append(*errs, fmt.Sprintf("duplicate id %q (first seen at %s, again at %s)", id, prev, loc))
		return
	}
	ids[id] = loc
}
