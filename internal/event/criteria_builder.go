package event

import (
	"log/slog"
	"strings"
)

// CriteriaParams holds raw request parameters. Pointer fields are nil when the
// parameter was not supplied; CSV fields are empty when absent.
type CriteriaParams struct {
	StartTime  *int64
	EndTime    *int64
	EventIDs   string // "a,b,c"
	TriggerIDs string
	Categories string
	Tags       string // "name|value,name2|*"
	Thin       *bool
}

// BuildCriteria translates raw request parameters into a Criteria.
// Blank CSV inputs leave the matching field unset. Malformed tag tokens are dropped.
func BuildCriteria(p CriteriaParams) *Criteria {
	c := &Criteria{
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		EventIDs:   SplitCSV(p.EventIDs),
		TriggerIDs: SplitCSV(p.TriggerIDs),
		Categories: SplitCSV(p.Categories),
		Tags:       ParseTags(p.Tags),
	}
	if p.Thin != nil {
		c.Thin = *p.Thin
	}
	return c
}

// SplitCSV splits s on commas, skipping empty tokens. Returns nil for blank input.
func SplitCSV(s string) []string {
	if IsBlank(s) {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ParseTags decodes "name|value" pairs separated by commas. Trailing empty fields
// of a token are ignored, so "a|b|" reads as a|b while "a|" has one field. A token
// that does not yield exactly two fields is dropped; a leading empty name ("|b") is
// kept. Later names overwrite earlier ones. Returns nil when nothing survives.
func ParseTags(s string) map[string]string {
	if IsBlank(s) {
		return nil
	}
	tokens := strings.Split(s, ",")
	tags := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		fields := trimTrailingEmpty(strings.Split(tok, "|"))
		if len(fields) != 2 {
			slog.Debug("invalid tag criteria dropped", "token", tok)
			continue
		}
		tags[fields[0]] = fields[1]
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func trimTrailingEmpty(fields []string) []string {
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}
