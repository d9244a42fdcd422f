package parser

import (
	"strings"
	"testing"

	"github.com/meredith/compass/internal/registry"
)

func validateYAML(t *testing.T, src string, lenient bool) []Issue {
	t.Helper()
	cfg, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ValidateModule(cfg, registry.New(lenient))
}

func findIssue(issues []Issue, substr string) *Issue {
	for i := range issues {
		if strings.Contains(issues[i].Message, substr) {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateCleanModule(t *testing.T) {
	issues := validateYAML(t, gcpYAML, false)
	if HasErrors(issues) {
		t.Errorf("clean module reported errors: %v", issues)
	}
}

func TestValidateMissingResultsStep(t *testing.T) {
	src := strings.Replace(gcpYAML, "results_step: results", "results_step: summary", 1)
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "results step")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("missing results step not reported as error: %v", issues)
	}
}

func TestValidateUnknownFlagStrictVsLenient(t *testing.T) {
	src := strings.Replace(gcpYAML, "flags: [cognitive_decline]", "flags: [totally_bogus]", 1)

	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "unknown flag")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("unknown flag not an error in strict mode: %v", issues)
	}

	issues = validateYAML(t, src, true)
	if findIssue(issues, "unknown flag") != nil {
		t.Errorf("lenient mode still errors on unknown flag: %v", issues)
	}
}

func TestValidateExclusiveFlagConflictWarns(t *testing.T) {
	src := strings.Replace(gcpYAML,
		"- {label: Never, value: never, score: 0}",
		"- {label: Never, value: never, score: 0, flags: [independent_capable]}", 1)

	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "mutually exclusive")
	if issue == nil {
		t.Fatalf("exclusive flag pair not reported: %v", issues)
	}
	if issue.Severity != SeverityWarning {
		t.Error("exclusive flag conflict must be a warning, not an error")
	}
}

func TestValidateDuplicateFieldKey(t *testing.T) {
	src := strings.Replace(gcpYAML, "key: wandering", "key: age", 1)
	issues := validateYAML(t, src, false)
	if findIssue(issues, "duplicate field key") == nil {
		t.Errorf("duplicate field key not reported: %v", issues)
	}
}

func TestValidateBrokenPredicateReference(t *testing.T) {
	src := strings.Replace(gcpYAML, "eq: [age,", "eq: [missing_field,", 1)
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "visibility")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("broken predicate reference not an error: %v", issues)
	}
}

func TestValidateSelectWithoutOptions(t *testing.T) {
	src := `
product: p
state_key: s
results_step: results
steps:
  - id: only
    fields:
      - {key: choice, label: Choice, type: single_select}
  - id: results
scoring:
  tiers:
    - {id: a, priority: 0}
`
	issues := validateYAML(t, src, false)
	if findIssue(issues, "no options") == nil {
		t.Errorf("optionless select not reported: %v", issues)
	}
}

func TestValidateDuplicateTierPriority(t *testing.T) {
	src := strings.Replace(gcpYAML, "priority: 2, categories: [medical, safety]",
		"priority: 1, categories: [medical, safety]", 1)
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "share priority")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("ambiguous tier priorities not an error: %v", issues)
	}
}

func TestValidateUndeclaredTierCategory(t *testing.T) {
	src := strings.Replace(gcpYAML, "categories: [medical, safety]", "categories: [medical, housing]", 1)
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "housing")
	if issue == nil || issue.Severity != SeverityWarning {
		t.Errorf("undeclared tier category not warned: %v", issues)
	}
}

func TestValidateConditionVocabulary(t *testing.T) {
	src := `
product: gcp
state_key: care_plan
version: "1.0"
title: Conditions
results_step: results
steps:
  - id: health
    title: Health
    fields:
      - key: conditions
        label: Diagnosed conditions
        type: multi_select
        category: medical
        vocabulary: conditions
        options:
          - {label: CHF, value: chf, score: 2}
          - {label: Made up, value: lumbago_plus, score: 1}
  - id: results
    title: Results
scoring:
  tiers:
    - {id: low, priority: 0, categories: [medical]}
`
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "lumbago_plus")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("unknown condition code not reported as error: %v", issues)
	}
	if findIssue(issues, "chf") != nil {
		t.Errorf("catalog condition code flagged: %v", issues)
	}
}

func TestValidateUnknownVocabulary(t *testing.T) {
	src := `
product: gcp
state_key: care_plan
version: "1.0"
title: Vocab
results_step: results
steps:
  - id: health
    title: Health
    fields:
      - key: conditions
        label: Diagnosed conditions
        type: multi_select
        category: medical
        vocabulary: diagnoses
        options:
          - {label: CHF, value: chf, score: 2}
  - id: results
    title: Results
scoring:
  tiers:
    - {id: low, priority: 0, categories: [medical]}
`
	issues := validateYAML(t, src, false)
	issue := findIssue(issues, "unknown vocabulary")
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("unknown vocabulary not reported as error: %v", issues)
	}
}
