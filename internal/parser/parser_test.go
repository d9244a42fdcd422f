package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meredith/compass/internal/models"
)

const gcpYAML = `
product: gcp
state_key: care_plan
version: "1.2"
title: Guided Care Plan
results_step: results
steps:
  - id: intake
    title: About you
    fields:
      - key: age
        label: Age range
        type: single_select
        required: true
        category: profile
        options:
          - {label: Under 65, value: under_65, score: 0}
          - {label: 65 to 84, value: 65-84, score: 1}
          - {label: 85 or older, value: "85+", score: 2}
      - key: conditions
        label: Diagnosed conditions
        type: multi_select
        category: medical
        options:
          - {label: CHF, value: chf, score: 2, flags: [chronic_conditions]}
          - {label: COPD, value: copd, score: 2, flags: [chronic_conditions]}
          - {label: Dementia, value: dementia, score: 3, flags: [cognitive_decline]}
  - id: memory
    title: Memory and safety
    visible_when:
      any:
        - eq: [age, "85+"]
        - length_gte: [conditions, 3]
    fields:
      - key: wandering
        label: Episodes of wandering
        type: single_select
        required: true
        category: safety
        options:
          - {label: Never, value: never, score: 0}
          - {label: Sometimes, value: sometimes, score: 2, flags: [memory_care_needed]}
  - id: results
    title: Your recommendation
scoring:
  aggregation: sum
  tiers:
    - {id: independent, label: Independent living, priority: 0, categories: [profile]}
    - {id: assisted, label: Assisted living, priority: 1, categories: [profile, medical]}
    - {id: memory_care, label: Memory care, priority: 2, categories: [medical, safety]}
`

func TestParseFullModule(t *testing.T) {
	cfg, err := Parse(strings.NewReader(gcpYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.ProductID != "gcp" || cfg.StateKey != "care_plan" || cfg.Version != "1.2" {
		t.Errorf("header = %s/%s/%s", cfg.ProductID, cfg.StateKey, cfg.Version)
	}
	if len(cfg.Steps) != 3 || cfg.ResultsStep != "results" {
		t.Fatalf("steps = %d, results = %q", len(cfg.Steps), cfg.ResultsStep)
	}

	age, ok := cfg.Field("age")
	if !ok {
		t.Fatal("field age missing")
	}
	if age.Type != models.FieldSingleSelect || !age.Required {
		t.Errorf("age = %+v", age)
	}
	if opt, ok := age.OptionByValue("85+"); !ok || opt.Score != 2 {
		t.Errorf("option 85+ = %+v, %v", opt, ok)
	}

	dem, _ := cfg.Field("conditions")
	if opt, _ := dem.OptionByValue("dementia"); len(opt.Flags) != 1 || opt.Flags[0] != "cognitive_decline" {
		t.Errorf("dementia flags = %v", opt.Flags)
	}

	memory, ok := cfg.Step("memory")
	if !ok || memory.VisibleWhen == nil {
		t.Fatal("memory step or its predicate missing")
	}
	if len(memory.VisibleWhen.Any) != 2 {
		t.Errorf("memory predicate = %+v", memory.VisibleWhen)
	}
	lg := memory.VisibleWhen.Any[1].LengthGTE
	if lg == nil || lg.Field != "conditions" || lg.Min != 3 {
		t.Errorf("length_gte = %+v", lg)
	}

	if len(cfg.Scoring.Tiers) != 3 || cfg.Scoring.Method() != models.AggregateSum {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
}

func TestParseFileRejectsNonYAML(t *testing.T) {
	if _, err := ParseFile("module.json"); err == nil {
		t.Error("non-YAML extension accepted")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gcp.yaml", gcpYAML)
	writeFile(t, dir, "notes.txt", "not a module")
	writeFile(t, dir, ".hidden.yaml", gcpYAML)
	writeFile(t, dir, "cost.yaml", strings.Replace(gcpYAML, "product: gcp", "product: cost_planner", 1))

	modules, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("modules = %d, want 2", len(modules))
	}
	if modules["gcp"] == nil || modules["cost_planner"] == nil {
		t.Errorf("loaded keys: %v", modules)
	}
}

func TestLoadDirRejectsDuplicateProduct(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", gcpYAML)
	writeFile(t, dir, "b.yaml", gcpYAML)

	if _, err := LoadDir(dir); err == nil {
		t.Error("duplicate product id accepted")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
