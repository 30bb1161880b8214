// Package normalize maps vendor-variable Xtream payloads onto the canonical
// snapshot model. Every lookup goes through the ordered key lists in Keys.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one raw JSON object, decoded with json.Number for numbers.
type Record map[string]any

// Get resolves a key, or a dotted path such as "info.duration". JSON null
// counts as absent.
func (r Record) Get(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether any of keys is present and non-null.
func (r Record) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.Get(k); ok {
			return true
		}
	}
	return false
}

// Str returns the first non-empty scalar among keys, as a string.
func (r Record) Str(keys ...string) string {
	for _, k := range keys {
		v, ok := r.Get(k)
		if !ok {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the first of keys holding an integer (or integral string).
func (r Record) Int(keys ...string) (int, bool) {
	f, ok := r.number(keys...)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Float returns the first of keys holding a number, or nil.
func (r Record) Float(keys ...string) *float64 {
	f, ok := r.number(keys...)
	if !ok {
		return nil
	}
	return &f
}

func (r Record) number(keys ...string) (float64, bool) {
	for _, k := range keys {
		s := r.Str(k)
		if s == "" {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
			return f, true
		}
	}
	return 0, false
}

// finite rejects NaN and the infinities, which ParseFloat accepts but JSON
// cannot encode.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Epoch converts the first present epoch-seconds value among keys to an RFC
// 3339 UTC timestamp. Missing, non-numeric and non-positive values yield nil.
func (r Record) Epoch(keys ...string) *string {
	for _, k := range keys {
		s := r.Str(k)
		if s == "" {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || !finite(f) || f > math.MaxInt64/2 {
				return nil
			}
			n = int64(f)
		}
		if n <= 0 {
			return nil
		}
		ts := time.Unix(n, 0).UTC().Format(time.RFC3339)
		return &ts
	}
	return nil
}

// List returns the records under the first present key. Arrays are returned in
// order; objects keyed by id are returned sorted by key. Non-object elements
// are dropped. ok is false when no key is present.
func (r Record) List(keys ...string) (recs []Record, ok bool) {
	for _, k := range keys {
		v, present := r.Get(k)
		if !present {
			continue
		}
		return ToRecords(v), true
	}
	return nil, false
}

// Strings returns the string elements of an array value.
func (r Record) Strings(key string) []string {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s := scalarString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the element count of an array or object value.
func (r Record) Len(key string) (int, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	}
	return 0, false
}

// ToRecords converts a decoded JSON array (or id-keyed object) into records.
func ToRecords(v any) []Record {
	var out []Record
	switch t := v.(type) {
	case []any:
		out = make([]Record, 0, len(t))
		for _, e := range t {
			if m, ok := asMap(e); ok {
				out = append(out, Record(m))
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
		out = make([]Record, 0, len(t))
		for _, k := range keys {
			if m, ok := asMap(t[k]); ok {
				out = append(out, Record(m))
			}
		}
	}
	return out
}

// lessKey orders numeric keys numerically, everything else lexically after.
func lessKey(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Record:
		return t, true
	}
	return nil, false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	}
	return ""
}
