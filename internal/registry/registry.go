// Package registry is the static catalog of canonical flag identifiers
// and structured condition codes. It is pure lookup and validation:
// no state beyond the catalog itself and the strict/lenient toggle.
package registry

import (
	"fmt"
	"sort"
)

// Priority orders flag messages in outcome rationale.
type Priority int

const (
	// PriorityNormal flags contribute to scoring but their messages
	// appear only in product detail views.
	PriorityNormal Priority = iota
	// PriorityHigh flags surface their message at the top of an
	// outcome's rationale, before category summaries.
	PriorityHigh
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// FlagDef describes one canonical flag.
type FlagDef struct {
	ID            string
	Message       string   // user-facing rationale line
	Priority      Priority // rationale ordering
	ExclusiveWith []string // flags that should never co-trigger (lint only)
}

// ConditionDef describes one structured condition code.
type ConditionDef struct {
	Code  string
	Label string
}

// UnknownFlagError reports flag ids absent from the catalog.
// Raised on validation in strict mode; in lenient mode the ids are
// dropped with a warning instead.
type UnknownFlagError struct {
	IDs []string
}

// Error implements the error interface.
func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("unknown flag id(s): %v", e.IDs)
}

// UnknownConditionError reports a condition code absent from the catalog.
type UnknownConditionError struct {
	Code string
}

// Error implements the error interface.
func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("unknown condition code: %s", e.Code)
}

// Registry validates flag ids and condition codes against the catalog.
// Strict mode (the default) rejects unknown ids with a typed error;
// lenient mode filters them out so production stays resilient to
// config drift. The mode is fixed at construction.
type Registry struct {
	flags      map[string]FlagDef
	conditions map[string]ConditionDef
	lenient    bool
}

// New returns a registry seeded with the built-in catalog.
func New(lenient bool) *Registry {
	r := &Registry{
		flags:      make(map[string]FlagDef, len(catalogFlags)),
		conditions: make(map[string]ConditionDef, len(catalogConditions)),
		lenient:    lenient,
	}
	for _, f := range catalogFlags {
		r.flags[f.ID] = f
	}
	for _, c := range catalogConditions {
		r.conditions[c.Code] = c
	}
	return r
}

// LookupFlag returns the definition for a flag id.
func (r *Registry) LookupFlag(id string) (FlagDef, bool) {
	f, ok := r.flags[id]
	return f, ok
}

// LookupCondition returns the definition for a condition code.
func (r *Registry) LookupCondition(code string) (ConditionDef, bool) {
	c, ok := r.conditions[code]
	return c, ok
}

// ValidateFlags checks ids against the catalog.
//
// Strict mode: returns a *UnknownFlagError naming every unknown id;
// no flags are returned. Lenient mode: returns the known ids plus the
// dropped unknown ids so the caller can log a warning. A flag is never
// silently stored under an unknown id.
func (r *Registry) ValidateFlags(ids []string) (valid, dropped []string, err error) {
	var unknown []string
	for _, id := range ids {
		if _, ok := r.flags[id]; ok {
			valid = append(valid, id)
		} else {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return valid, nil, nil
	}
	sort.Strings(unknown)
	if r.lenient {
		return valid, unknown, nil
	}
	return nil, nil, &UnknownFlagError{IDs: unknown}
}

// ValidateCondition checks one condition code against the catalog.
func (r *Registry) ValidateCondition(code string) error {
	if _, ok := r.conditions[code]; ok {
		return nil
	}
	if r.lenient {
		return nil
	}
	return &UnknownConditionError{Code: code}
}

// ExclusiveConflicts returns pairs of flags in ids that the catalog
// marks mutually exclusive. Used by config lint tooling; the extractor
// itself never resolves these at runtime.
func (r *Registry) ExclusiveConflicts(ids []string) [][2]string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	var conflicts [][2]string
	seen := make(map[string]bool)
	for _, id := range ids {
		def, ok := r.flags[id]
		if !ok {
			continue
		}
		for _, other := range def.ExclusiveWith {
			if !present[other] {
				continue
			}
			a, b := id, other
			if a > b {
				a, b = b, a
			}
			key := a + "|" + b
			if seen[key] {
				continue
			}
			seen[key] = true
			conflicts = append(conflicts, [2]string{a, b})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i][0] < conflicts[j][0] })
	return conflicts
}
