package parser

import (
	"fmt"

	"github.com/meredith/compass/internal/expr"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/registry"
)

// Severity classifies a validation finding.
type Severity int

const (
	// SeverityWarning findings describe config-authoring smells the
	// runtime tolerates.
	SeverityWarning Severity = iota
	// SeverityError findings make the module unrunnable.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is one validation finding with an actionable message.
type Issue struct {
	Severity Severity
	Message  string
}

// ValidateModule checks a module definition against the structural
// rules the engine needs and the flag/condition catalog. Errors make
// the module unrunnable; warnings flag config-authoring problems such
// as options that can jointly trigger mutually exclusive flags.
func ValidateModule(cfg *models.ModuleConfig, reg *registry.Registry) []Issue {
	var issues []Issue
	errorf := func(format string, args ...any) {
		issues = append(issues, Issue{SeverityError, fmt.Sprintf(format, args...)})
	}
	warnf := func(format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, fmt.Sprintf(format, args...)})
	}

	if cfg.ProductID == "" {
		errorf("module has no product id")
	}
	if cfg.StateKey == "" {
		errorf("module %s has no state key", cfg.ProductID)
	}
	if cfg.Version == "" {
		warnf("module %s has no version", cfg.ProductID)
	}
	if len(cfg.Steps) == 0 {
		errorf("module %s defines no steps", cfg.ProductID)
		return issues
	}
	if _, ok := cfg.Step(cfg.ResultsStep); !ok {
		errorf("results step %q is not defined", cfg.ResultsStep)
	}

	known := cfg.FieldKeys()
	seenSteps := make(map[string]bool)
	seenFields := make(map[string]bool)
	var allFlags []string

	for _, step := range cfg.Steps {
		if step.ID == "" {
			errorf("step %q has no id", step.Title)
			continue
		}
		if seenSteps[step.ID] {
			errorf("duplicate step id %s", step.ID)
		}
		seenSteps[step.ID] = true

		if err := expr.Validate(step.VisibleWhen, known); err != nil {
			errorf("step %s visibility: %v", step.ID, err)
		}

		for _, f := range step.Fields {
			if f.Key == "" {
				errorf("step %s has a field without a key", step.ID)
				continue
			}
			if seenFields[f.Key] {
				errorf("duplicate field key %s", f.Key)
			}
			seenFields[f.Key] = true

			if !f.Type.Valid() {
				errorf("field %s has invalid type %q", f.Key, f.Type)
			}
			if err := expr.Validate(f.VisibleWhen, known); err != nil {
				errorf("field %s visibility: %v", f.Key, err)
			}

			selectKind := f.Type == models.FieldSingleSelect || f.Type == models.FieldMultiSelect
			if selectKind && len(f.Options) == 0 {
				errorf("select field %s has no options", f.Key)
			}
			if !selectKind && len(f.Options) > 0 {
				warnf("field %s is %s but declares options", f.Key, f.Type)
			}

			switch f.Vocabulary {
			case "", "conditions":
			default:
				errorf("field %s has unknown vocabulary %q", f.Key, f.Vocabulary)
			}

			seenValues := make(map[string]bool)
			for _, opt := range f.Options {
				if opt.Value == "" {
					errorf("field %s has an option without a value", f.Key)
					continue
				}
				if seenValues[opt.Value] {
					errorf("field %s has duplicate option value %q", f.Key, opt.Value)
				}
				seenValues[opt.Value] = true

				if f.Vocabulary == "conditions" {
					if err := reg.ValidateCondition(opt.Value); err != nil {
						errorf("field %s option %s: %v", f.Key, opt.Value, err)
					}
				}
				if _, _, err := reg.ValidateFlags(opt.Flags); err != nil {
					errorf("field %s option %s: %v", f.Key, opt.Value, err)
				}
				allFlags = append(allFlags, opt.Flags...)
			}
		}
	}

	validateScoring(cfg, errorf, warnf)

	// Mutually exclusive flags co-declared across a module's options
	// are a config-authoring problem: the extractor never resolves
	// them at runtime, so surface them here.
	for _, pair := range reg.ExclusiveConflicts(allFlags) {
		warnf("module %s can trigger mutually exclusive flags %s and %s", cfg.ProductID, pair[0], pair[1])
	}

	return issues
}

func validateScoring(cfg *models.ModuleConfig, errorf, warnf func(string, ...any)) {
	if len(cfg.Scoring.Tiers) == 0 {
		errorf("module %s declares no scoring tiers", cfg.ProductID)
		return
	}
	if m := cfg.Scoring.Method(); m != models.AggregateSum && m != models.AggregateMax {
		errorf("unknown aggregation method %q", m)
	}

	declaredCats := make(map[string]bool)
	for _, step := range cfg.Steps {
		for _, f := range step.Fields {
			if f.Category != "" {
				declaredCats[f.Category] = true
			}
			for _, opt := range f.Options {
				if opt.Category != "" {
					declaredCats[opt.Category] = true
				}
			}
		}
	}

	seenTiers := make(map[string]bool)
	seenPriorities := make(map[int]string)
	for _, tier := range cfg.Scoring.Tiers {
		if tier.ID == "" {
			errorf("scoring tier has no id")
			continue
		}
		if seenTiers[tier.ID] {
			errorf("duplicate scoring tier %s", tier.ID)
		}
		seenTiers[tier.ID] = true

		if other, dup := seenPriorities[tier.Priority]; dup {
			errorf("tiers %s and %s share priority %d; ties would be ambiguous", other, tier.ID, tier.Priority)
		}
		seenPriorities[tier.Priority] = tier.ID

		for _, cat := range tier.Categories {
			if !declaredCats[cat] {
				warnf("tier %s references category %q that no field declares", tier.ID, cat)
			}
		}
	}
}

// HasErrors reports whether any finding is an error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
