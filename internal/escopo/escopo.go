package escopo

import (
	"sort"
	"strings"

	"ComissoesCorpApp/internal/sheet"
)

// Scope maps a context field (linha, grupo, subgrupo, tipo_mercadoria, cargo)
// to the set of values a row may carry for that field. A missing or empty set
// means the field is unconstrained.
type Scope map[string][]string

// Constrained reports whether any field actually narrows the pool.
func (s Scope) Constrained() bool {
	for _, vals := range s {
		if len(vals) > 0 {
			return true
		}
	}
	return false
}

// Without returns a copy of the scope with the given field unconstrained.
// Used for cross-field option narrowing, where a field's own selection must
// not hide its sibling values.
func (s Scope) Without(field string) Scope {
	out := make(Scope, len(s))
	for k, vals := range s {
		if k == field {
			continue
		}
		out[k] = vals
	}
	return out
}

// With returns a copy of the scope with the field pinned to a single value.
func (s Scope) With(field, value string) Scope {
	out := make(Scope, len(s)+1)
	for k, vals := range s {
		out[k] = vals
	}
	out[field] = []string{value}
	return out
}

// Matches reports whether a row satisfies every constrained field of the
// scope. Comparison is exact on the string form of the value; there is no
// partial matching.
func Matches(row sheet.Record, scope Scope) bool {
	for field, allowed := range scope {
		if len(allowed) == 0 {
			continue
		}
		got := sheet.Str(row[field])
		ok := false
		for _, want := range allowed {
			if got == want {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// FilterPool returns the subset of rows matching the scope, preserving input
// order.
func FilterPool(rows []sheet.Record, scope Scope) []sheet.Record {
	out := make([]sheet.Record, 0, len(rows))
	for _, row := range rows {
		if Matches(row, scope) {
			out = append(out, row)
		}
	}
	return out
}

// UniqueValues returns the sorted distinct non-empty values of field across
// the rows matching scope, with any constraint on field itself ignored. This
// is what keeps option lists honest: once linha is chosen, only grupos that
// co-occur with that linha are offered.
func UniqueValues(rows []sheet.Record, field string, scope Scope) []string {
	narrowed := scope.Without(field)
	seen := make(map[string]struct{})
	for _, row := range rows {
		if !Matches(row, narrowed) {
			continue
		}
		val := strings.TrimSpace(sheet.Str(row[field]))
		if val == "" {
			continue
		}
		seen[val] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
