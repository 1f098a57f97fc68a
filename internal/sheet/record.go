package sheet

import (
	"strconv"
	"strings"
)

// Record is one flat row as returned by a sheet backend. Field sets vary by
// sheet; values are strings, numbers or nil. Records are treated as immutable
// once fetched - aggregation copies, it never writes back.
type Record map[string]interface{}

// Normalize assigns a positional synthetic "key" to every row so table layers
// have a stable render identity. Business fields are never dropped or renamed;
// the input slice is not mutated.
func Normalize(rows []map[string]interface{}) []Record {
	out := make([]Record, 0, len(rows))
	for idx, raw := range rows {
		rec := make(Record, len(raw)+1)
		for k, v := range raw {
			rec[k] = v
		}
		rec["key"] = idx
		out = append(out, rec)
	}
	return out
}

// NormKey canonicalizes a value for use inside an aggregation key: trimmed and
// upper-cased so whitespace or case differences cannot split a bucket.
func NormKey(v interface{}) string {
	return strings.ToUpper(strings.TrimSpace(Str(v)))
}

// Str coerces any scalar to its string form; nil becomes "".
func Str(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Num coerces a field value to float64, yielding 0 for anything that is not a
// number. Rollup arithmetic relies on this never failing.
func Num(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Field returns the first non-empty value among the given aliases. Result
// sheets are inconsistent about casing (PROCESSO vs processo), so readers go
// through this instead of indexing directly.
func Field(rec Record, names ...string) interface{} {
	for _, n := range names {
		if v, ok := rec[n]; ok && v != nil && Str(v) != "" {
			return v
		}
	}
	return nil
}

// Has reports whether the record carries a non-nil value under any alias.
func Has(rec Record, names ...string) bool {
	for _, n := range names {
		if v, ok := rec[n]; ok && v != nil {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy of the record.
func Clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
