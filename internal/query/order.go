package query

import "strings"

// OrderBy is one sort key
type OrderBy struct {
	Field string
	Desc  bool
}

var sortable = map[string]bool{
	FieldID:          true,
	FieldStatus:      true,
	FieldPriority:    true,
	FieldScope:       true,
	FieldSummary:     true,
	FieldSubsystem:   true,
	FieldStrVersion:  true,
	FieldFixVersion:  true,
	FieldManagerUser: true,
	FieldCreateUser:  true,
	FieldCreateDate:  true,
	FieldModifyDate:  true,
}

// ParseOrder reads "[+|-]field" names in priority order. Unknown or repeated
// fields are dropped and id ascending is appended as the final tiebreaker.
func ParseOrder(fields []string) []OrderBy {
	var (
		out  []OrderBy
		seen = map[string]bool{}
	)
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		desc := false
		switch {
		case strings.HasPrefix(f, "-"):
			desc = true
			f = f[1:]
		case strings.HasPrefix(f, "+"):
			f = f[1:]
		}
		if !sortable[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, OrderBy{Field: f, Desc: desc})
	}
	if !seen[FieldID] {
		out = append(out, OrderBy{Field: FieldID})
	}
	return out
}
