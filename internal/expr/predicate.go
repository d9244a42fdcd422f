// Package expr implements the boolean mini-language used to gate step
// and field visibility against the current answer set.
//
// A predicate is a small tree of eq / any / all / contains / length_gte
// nodes referencing field keys. Evaluation is pure and deterministic:
// it never mutates the answer set and a missing or unanswered field
// fails any positive clause referencing it rather than raising.
package expr

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meredith/compass/internal/answers"
)

// Predicate is one node of a visibility expression. Exactly one clause
// should be set per node; when several are present they are conjoined.
//
// YAML shape:
//
//	visible_when:
//	  any:
//	    - eq: [age, "85+"]
//	    - length_gte: [conditions, 3]
type Predicate struct {
	Eq        []string     `yaml:"eq,omitempty"`
	Contains  []string     `yaml:"contains,omitempty"`
	LengthGTE *LengthArg   `yaml:"length_gte,omitempty"`
	Any       []*Predicate `yaml:"any,omitempty"`
	All       []*Predicate `yaml:"all,omitempty"`
}

// LengthArg is the [field, min] pair of a length_gte clause.
type LengthArg struct {
	Field string
	Min   int
}

// UnmarshalYAML decodes the two-element [field, min] sequence form.
func (l *LengthArg) UnmarshalYAML(value *yaml.Node) error {
	var raw []yaml.Node
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("length_gte expects a [field, min] pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("length_gte expects exactly 2 elements, got %d", len(raw))
	}
	if err := raw[0].Decode(&l.Field); err != nil {
		return fmt.Errorf("length_gte field must be a string: %w", err)
	}
	if err := raw[1].Decode(&l.Min); err != nil {
		return fmt.Errorf("length_gte minimum must be an integer: %w", err)
	}
	return nil
}

// Evaluate returns whether the predicate holds for the given answers.
// A nil predicate always holds (the step or field is unconditionally
// visible). Clauses referencing unanswered fields evaluate to false.
// any and all short-circuit.
func Evaluate(p *Predicate, set answers.Set) bool {
	if p == nil {
		return true
	}

	if len(p.Eq) == 2 {
		if got, ok := set.String(p.Eq[0]); !ok || got != p.Eq[1] {
			return false
		}
	}

	if len(p.Contains) == 2 {
		list, ok := set.List(p.Contains[0])
		if !ok {
			return false
		}
		found := false
		for _, v := range list {
			if v == p.Contains[1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if p.LengthGTE != nil {
		if set.Len(p.LengthGTE.Field) < p.LengthGTE.Min {
			return false
		}
	}

	if len(p.Any) > 0 {
		matched := false
		for _, child := range p.Any {
			if Evaluate(child, set) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(p.All) > 0 {
		for _, child := range p.All {
			if !Evaluate(child, set) {
				return false
			}
		}
	}

	return true
}

// RefError reports a predicate clause referencing a field key that is
// not defined in the module. Broken references are fatal to the module
// at load time rather than silently false at runtime.
type RefError struct {
	Fields []string // unknown field keys, in first-seen order
}

// Error implements the error interface.
func (e *RefError) Error() string {
	return fmt.Sprintf("predicate references undefined field(s): %s", strings.Join(e.Fields, ", "))
}

// Validate walks the predicate tree and checks that every referenced
// field key exists in known and that every node carries at least one
// clause. Returns a *RefError listing all unknown keys.
func Validate(p *Predicate, known map[string]bool) error {
	if p == nil {
		return nil
	}

	var unknown []string
	seen := make(map[string]bool)
	record := func(field string) {
		if !known[field] && !seen[field] {
			seen[field] = true
			unknown = append(unknown, field)
		}
	}

	var walk func(node *Predicate) error
	walk = func(node *Predicate) error {
		if node == nil {
			return nil
		}
		empty := true
		if len(node.Eq) > 0 {
			empty = false
			if len(node.Eq) != 2 {
				return fmt.Errorf("eq expects a [field, value] pair, got %d elements", len(node.Eq))
			}
			record(node.Eq[0])
		}
		if len(node.Contains) > 0 {
			empty = false
			if len(node.Contains) != 2 {
				return fmt.Errorf("contains expects a [field, value] pair, got %d elements", len(node.Contains))
			}
			record(node.Contains[0])
		}
		if node.LengthGTE != nil {
			empty = false
			record(node.LengthGTE.Field)
		}
		if len(node.Any) > 0 {
			empty = false
			for _, child := range node.Any {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		if len(node.All) > 0 {
			empty = false
			for _, child := range node.All {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		if empty {
			return fmt.Errorf("predicate node has no clauses")
		}
		return nil
	}

	if err := walk(p); err != nil {
		return err
	}
	if len(unknown) > 0 {
		return &RefError{Fields: unknown}
	}
	return nil
}
