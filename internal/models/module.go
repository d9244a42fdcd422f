// Package models defines the shared data model: module definitions,
// computed outcomes, published contracts and the per-user persisted
// record. Definitions are immutable at runtime; anything that crosses
// a trust boundary (hub, store) moves by deep copy.
package models

import (
	"github.com/meredith/compass/internal/expr"
)

// FieldType enumerates the supported field kinds.
type FieldType string

const (
	// FieldSingleSelect accepts exactly one option value.
	FieldSingleSelect FieldType = "single_select"
	// FieldMultiSelect accepts any subset of option values.
	FieldMultiSelect FieldType = "multi_select"
	// FieldText accepts free text.
	FieldText FieldType = "text"
	// FieldNumber accepts a numeric value.
	FieldNumber FieldType = "number"
	// FieldBool accepts a yes/no value.
	FieldBool FieldType = "boolean"
)

// Valid reports whether the field type is one of the supported kinds.
func (ft FieldType) Valid() bool {
	switch ft {
	case FieldSingleSelect, FieldMultiSelect, FieldText, FieldNumber, FieldBool:
		return true
	default:
		return false
	}
}

// Option is one selectable choice, carrying its score contribution and
// the flags it triggers when chosen.
type Option struct {
	Label    string   `yaml:"label"`
	Value    string   `yaml:"value"`
	Score    int      `yaml:"score,omitempty"`
	Category string   `yaml:"category,omitempty"` // overrides the field's category
	Flags    []string `yaml:"flags,omitempty"`
}

// FieldDef defines one question within a step. Vocabulary binds a
// select field's option values to a shared registry code set
// ("conditions"); validation then rejects option values outside it.
type FieldDef struct {
	Key         string          `yaml:"key"`
	Label       string          `yaml:"label"`
	Type        FieldType       `yaml:"type"`
	Required    bool            `yaml:"required,omitempty"`
	Category    string          `yaml:"category,omitempty"`
	Vocabulary  string          `yaml:"vocabulary,omitempty"`
	Options     []Option        `yaml:"options,omitempty"`
	VisibleWhen *expr.Predicate `yaml:"visible_when,omitempty"`
}

// OptionByValue returns the option matching value.
func (f *FieldDef) OptionByValue(value string) (Option, bool) {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// StepDef defines one page of the stepped form.
type StepDef struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Subtitle    string          `yaml:"subtitle,omitempty"`
	Fields      []FieldDef      `yaml:"fields,omitempty"`
	VisibleWhen *expr.Predicate `yaml:"visible_when,omitempty"`
}

// TierDef defines one outcome tier bucket. Priority breaks score ties:
// the higher value wins. The tier with the lowest priority is the
// lowest-need default when nothing is answered.
type TierDef struct {
	ID         string   `yaml:"id"`
	Label      string   `yaml:"label"`
	Priority   int      `yaml:"priority"`
	Categories []string `yaml:"categories"`
}

// Aggregation methods for combining category scores into a tier bucket.
const (
	AggregateSum = "sum"
	AggregateMax = "max"
)

// ScoringDef declares how a module's answers roll up into an outcome.
type ScoringDef struct {
	// Aggregation combines a tier's category scores: "sum" (default)
	// or "max".
	Aggregation string    `yaml:"aggregation,omitempty"`
	Tiers       []TierDef `yaml:"tiers"`
}

// Method returns the effective aggregation method.
func (s *ScoringDef) Method() string {
	if s.Aggregation == "" {
		return AggregateSum
	}
	return s.Aggregation
}

// DefaultTier returns the lowest-priority tier, the lowest-need bucket
// an empty answer set falls into.
func (s *ScoringDef) DefaultTier() (TierDef, bool) {
	if len(s.Tiers) == 0 {
		return TierDef{}, false
	}
	lowest := s.Tiers[0]
	for _, t := range s.Tiers[1:] {
		if t.Priority < lowest.Priority {
			lowest = t
		}
	}
	return lowest, true
}

// ModuleConfig is the immutable definition of one product's
// questionnaire. Loaded once per module and treated as read-only.
type ModuleConfig struct {
	ProductID   string     `yaml:"product"`
	StateKey    string     `yaml:"state_key"`
	Version     string     `yaml:"version"`
	Title       string     `yaml:"title"`
	Steps       []StepDef  `yaml:"steps"`
	ResultsStep string     `yaml:"results_step"`
	Scoring     ScoringDef `yaml:"scoring"`
}

// FieldKeys returns the set of every field key defined in the module.
func (m *ModuleConfig) FieldKeys() map[string]bool {
	keys := make(map[string]bool)
	for _, step := range m.Steps {
		for _, f := range step.Fields {
			keys[f.Key] = true
		}
	}
	return keys
}

// Field looks up a field definition by key across all steps.
func (m *ModuleConfig) Field(key string) (*FieldDef, bool) {
	for si := range m.Steps {
		for fi := range m.Steps[si].Fields {
			if m.Steps[si].Fields[fi].Key == key {
				return &m.Steps[si].Fields[fi], true
			}
		}
	}
	return nil, false
}

// Step looks up a step definition by id.
func (m *ModuleConfig) Step(id string) (*StepDef, bool) {
	for i := range m.Steps {
		if m.Steps[i].ID == id {
			return &m.Steps[i], true
		}
	}
	return nil, false
}

// ProductDef is one entry of the product catalog: its identity, the
// module file backing it, and the products that must be complete
// before it unlocks.
type ProductDef struct {
	ID       string
	Title    string
	Module   string   // module definition file name, empty for contract-only products
	Requires []string // product ids that must be complete first
}
