// Package answers holds a single module's in-progress responses.
//
// A Set is namespaced under its module's state key by the persistence
// layer; it is mutated only by the module engine and never shared by
// reference across modules. Values survive a JSON round trip, so typed
// accessors accept both native Go values and the decoded forms
// ([]any, float64) that encoding/json produces.
package answers

import (
	"strconv"
)

// Set maps a field key to the chosen value: a string for single-select
// and free-text fields, a []string for multi-select, a float64 for
// numeric and a bool for boolean fields.
type Set map[string]any

// New returns an empty answer set.
func New() Set {
	return make(Set)
}

// Clone returns a structurally independent copy of the set.
// Mutating the clone is never observable through the original.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, e := range val {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return val
	}
}

// Has reports whether the field has been answered.
// An empty list counts as unanswered.
func (s Set) Has(key string) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// String returns the scalar answer for key.
// Numeric and boolean answers are formatted; lists report false.
func (s Set) String(key string) (string, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, val != ""
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}

// List returns the answer for key as a list of values.
// A scalar answer is promoted to a one-element list so membership
// checks behave uniformly across field types.
func (s Set) List(key string) ([]string, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return nil, false
	}
	switch val := v.(type) {
	case []string:
		return val, len(val) > 0
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out, len(out) > 0
	case string:
		if val == "" {
			return nil, false
		}
		return []string{val}, true
	default:
		return nil, false
	}
}

// Number returns the numeric answer for key.
func (s Set) Number(key string) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the boolean answer for key.
func (s Set) Bool(key string) (bool, bool) {
	v, ok := s[key]
	if !ok {
		return false, false
	}
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// Len returns the cardinality of the answer for key: the length of a
// list answer, 1 for an answered scalar, 0 when unanswered.
func (s Set) Len(key string) int {
	if !s.Has(key) {
		return 0
	}
	if list, ok := s.List(key); ok {
		return len(list)
	}
	return 1
}

// Delete removes the answer for key.
func (s Set) Delete(key string) {
	delete(s, key)
}
