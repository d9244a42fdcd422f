package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/expr"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/registry"
	"github.com/meredith/compass/internal/scoring"
)

// recordingSaver captures every autosave for inspection.
type recordingSaver struct {
	saves    []answers.Set
	failNext bool
}

func (s *recordingSaver) SaveAnswers(stateKey string, set answers.Set) error {
	if s.failNext {
		s.failNext = false
		return fmt.Errorf("disk full")
	}
	s.saves = append(s.saves, set)
	return nil
}

// testModule has an always-visible intake step, a falls step shown
// only for walker/wheelchair users, and a results step.
func testModule() *models.ModuleConfig {
	return &models.ModuleConfig{
		ProductID: "gcp",
		StateKey:  "care_plan",
		Steps: []models.StepDef{
			{
				ID: "intake", Title: "About you",
				Fields: []models.FieldDef{
					{
						Key: "mobility", Label: "Mobility", Type: models.FieldSingleSelect,
						Required: true, Category: "mobility",
						Options: []models.Option{
							{Label: "Independent", Value: "independent", Score: 0},
							{Label: "Walker", Value: "walker", Score: 2},
							{Label: "Wheelchair", Value: "wheelchair", Score: 5, Flags: []string{"mobility_limited"}},
						},
					},
					{Key: "notes", Label: "Anything else?", Type: models.FieldText, Category: "mobility"},
				},
			},
			{
				ID: "falls", Title: "Fall history",
				VisibleWhen: &expr.Predicate{Any: []*expr.Predicate{
					{Eq: []string{"mobility", "walker"}},
					{Eq: []string{"mobility", "wheelchair"}},
				}},
				Fields: []models.FieldDef{
					{
						Key: "falls", Label: "Falls in the last year", Type: models.FieldSingleSelect,
						Required: true, Category: "safety",
						Options: []models.Option{
							{Label: "None", Value: "none", Score: 0},
							{Label: "Multiple", Value: "multiple", Score: 3, Flags: []string{"falls_multiple", "high_safety"}},
						},
					},
				},
			},
			{ID: "results", Title: "Your recommendation"},
		},
		ResultsStep: "results",
		Scoring: models.ScoringDef{
			Tiers: []models.TierDef{
				{ID: "independent", Priority: 0},
				{ID: "assisted", Priority: 1},
			},
		},
	}
}

func newRunner(t *testing.T, saver Saver, existing answers.Set) *Runner {
	t.Helper()
	ext := scoring.New(registry.New(false), nil)
	r, err := New(testModule(), ext, saver, existing)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNextBlocksOnMissingRequired(t *testing.T) {
	r := newRunner(t, nil, nil)

	err := r.Next()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("want *ValidationError, got %v", err)
	}
	if vErr.StepID != "intake" || len(vErr.Missing) != 1 || vErr.Missing[0] != "mobility" {
		t.Errorf("validation error = %+v", vErr)
	}
	if r.CurrentStep().ID != "intake" {
		t.Error("failed validation must not advance")
	}
}

func TestConditionalStepSkipped(t *testing.T) {
	r := newRunner(t, nil, nil)

	if err := r.SetAnswer("mobility", "independent"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !r.AtResults() {
		t.Errorf("expected falls step skipped, at %s", r.CurrentStep().ID)
	}
}

func TestConditionalStepShown(t *testing.T) {
	r := newRunner(t, nil, nil)

	if err := r.SetAnswer("mobility", "wheelchair"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r.CurrentStep().ID != "falls" {
		t.Fatalf("at %s, want falls", r.CurrentStep().ID)
	}

	if err := r.SetAnswer("falls", "multiple"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !r.AtResults() {
		t.Fatalf("at %s, want results", r.CurrentStep().ID)
	}

	out := r.Outcome()
	if out == nil {
		t.Fatal("no outcome at results")
	}
	if out.TierScore != 8 {
		t.Errorf("tier score = %d, want 8", out.TierScore)
	}
}

func TestOutcomeRecomputedAfterEdit(t *testing.T) {
	r := newRunner(t, nil, nil)

	mustAnswer(t, r, "mobility", "wheelchair")
	mustNext(t, r)
	mustAnswer(t, r, "falls", "multiple")
	mustNext(t, r)

	first := r.Outcome()
	if first.TierScore != 8 {
		t.Fatalf("first score = %d, want 8", first.TierScore)
	}

	// Walk back twice and downgrade mobility, then return to results.
	if err := r.Previous(); err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if err := r.Previous(); err != nil {
		t.Fatalf("Previous: %v", err)
	}
	mustAnswer(t, r, "mobility", "walker")
	mustNext(t, r)
	mustAnswer(t, r, "falls", "none")
	mustNext(t, r)

	second := r.Outcome()
	if second == first {
		t.Fatal("outcome reused instead of recomputed")
	}
	if second.TierScore != 2 {
		t.Errorf("recomputed score = %d, want 2", second.TierScore)
	}
	if second.HasFlag("falls_multiple") {
		t.Error("stale flag survived the recompute")
	}
}

func TestProgressRecomputedWithDenominator(t *testing.T) {
	r := newRunner(t, nil, nil)

	// Visible: intake + results. Visited: intake.
	if got := r.Progress(); got != 0.5 {
		t.Errorf("initial progress = %v, want 0.5", got)
	}

	// Answering walker reveals the falls step: denominator grows.
	mustAnswer(t, r, "mobility", "walker")
	if got, want := r.Progress(), 1.0/3.0; got != want {
		t.Errorf("progress after reveal = %v, want %v", got, want)
	}

	mustNext(t, r)
	if got, want := r.Progress(), 2.0/3.0; got != want {
		t.Errorf("progress at falls = %v, want %v", got, want)
	}

	mustAnswer(t, r, "falls", "none")
	mustNext(t, r)
	if got := r.Progress(); got != 1.0 {
		t.Errorf("progress at results = %v, want 1.0", got)
	}
}

func TestAutosaveAfterEveryAcceptedTransition(t *testing.T) {
	saver := &recordingSaver{}
	r := newRunner(t, saver, nil)

	mustAnswer(t, r, "mobility", "wheelchair")
	mustNext(t, r)
	if err := r.Previous(); err != nil {
		t.Fatalf("Previous: %v", err)
	}
	mustNext(t, r)
	mustAnswer(t, r, "falls", "none")
	mustNext(t, r)

	if len(saver.saves) != 4 {
		t.Fatalf("autosaves = %d, want 4", len(saver.saves))
	}

	// The saver receives a snapshot, not the live set.
	saver.saves[3]["mobility"] = "tampered"
	if v, _ := r.Answers().String("mobility"); v != "wheelchair" {
		t.Error("saver aliases the live answer set")
	}
}

func TestFailedAutosaveRevertsTransition(t *testing.T) {
	saver := &recordingSaver{failNext: true}
	r := newRunner(t, saver, nil)

	mustAnswer(t, r, "mobility", "independent")
	err := r.Next()
	var mErr *ModuleError
	if !errors.As(err, &mErr) {
		t.Fatalf("want *ModuleError, got %v", err)
	}
	if r.CurrentStep().ID != "intake" {
		t.Error("position advanced despite failed autosave")
	}
	if got := r.Progress(); got != 0.5 {
		t.Errorf("progress = %v, want 0.5 after revert", got)
	}

	// Retry succeeds once the saver recovers.
	if err := r.Next(); err != nil {
		t.Fatalf("retry Next: %v", err)
	}
	if !r.AtResults() {
		t.Errorf("at %s, want results", r.CurrentStep().ID)
	}
}

func TestJumpToResultsRequiresAllVisibleAnswered(t *testing.T) {
	r := newRunner(t, nil, nil)

	mustAnswer(t, r, "mobility", "walker")
	err := r.JumpToResults()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("want *ValidationError for unanswered falls, got %v", err)
	}

	mustAnswer(t, r, "falls", "none")
	if err := r.JumpToResults(); err != nil {
		t.Fatalf("JumpToResults: %v", err)
	}
	if !r.AtResults() || r.Outcome() == nil {
		t.Error("jump did not land at results with an outcome")
	}
}

func TestSetAnswerRejectsUnknownFieldAndValue(t *testing.T) {
	r := newRunner(t, nil, nil)

	if err := r.SetAnswer("bogus_field", "x"); err == nil {
		t.Error("unknown field accepted")
	}
	if err := r.SetAnswer("mobility", "hoverboard"); err == nil {
		t.Error("value outside option list accepted")
	}
	if err := r.SetAnswer("mobility", 42); err == nil {
		t.Error("wrong value type accepted")
	}
}

func TestRestoredAnswersAreCopied(t *testing.T) {
	existing := answers.Set{"mobility": "walker"}
	r := newRunner(t, nil, existing)

	existing["mobility"] = "wheelchair"
	if v, _ := r.Answers().String("mobility"); v != "walker" {
		t.Error("runner aliases the caller's answer set")
	}
}

func TestNewRejectsBrokenDefinitions(t *testing.T) {
	ext := scoring.New(registry.New(false), nil)

	broken := testModule()
	broken.ResultsStep = "nonexistent"
	if _, err := New(broken, ext, nil, nil); err == nil {
		t.Error("missing results step accepted")
	}

	broken = testModule()
	broken.Steps[1].VisibleWhen = &expr.Predicate{Eq: []string{"not_a_field", "x"}}
	_, err := New(broken, ext, nil, nil)
	var mErr *ModuleError
	if !errors.As(err, &mErr) {
		t.Fatalf("want *ModuleError for broken predicate, got %v", err)
	}
	var refErr *expr.RefError
	if !errors.As(err, &refErr) {
		t.Errorf("module error should wrap *expr.RefError, got %v", err)
	}

	broken = testModule()
	broken.Steps[1].Fields[0].Key = "mobility"
	if _, err := New(broken, ext, nil, nil); err == nil {
		t.Error("duplicate field key accepted")
	}
}

func TestOutcomeHookRuns(t *testing.T) {
	r := newRunner(t, nil, nil)
	var hooked *models.Outcome
	r.WithOutcomeHook(func(out *models.Outcome, set answers.Set) error {
		hooked = out
		return nil
	})

	mustAnswer(t, r, "mobility", "independent")
	mustNext(t, r)

	if hooked == nil || hooked != r.Outcome() {
		t.Error("outcome hook did not receive the computed outcome")
	}
}

func mustAnswer(t *testing.T, r *Runner, key string, value any) {
	t.Helper()
	if err := r.SetAnswer(key, value); err != nil {
		t.Fatalf("SetAnswer(%s): %v", key, err)
	}
}

func mustNext(t *testing.T, r *Runner) {
	t.Helper()
	if err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
}

func TestAllStepsHiddenStartsAtResultsWithOutcome(t *testing.T) {
	// Every content step is conditional and the restored answers make
	// none of them visible, so the runner begins at results. That is
	// an arrival like any other and must produce an outcome.
	cfg := &models.ModuleConfig{
		ProductID: "gcp",
		StateKey:  "care_plan",
		Steps: []models.StepDef{
			{
				ID: "falls", Title: "Fall history",
				VisibleWhen: &expr.Predicate{Eq: []string{"mobility", "walker"}},
				Fields: []models.FieldDef{
					{
						Key: "mobility", Label: "Mobility", Type: models.FieldSingleSelect,
						Category: "mobility",
						Options: []models.Option{
							{Label: "Walker", Value: "walker", Score: 2},
						},
					},
				},
			},
			{ID: "results", Title: "Your recommendation"},
		},
		ResultsStep: "results",
		Scoring: models.ScoringDef{
			Tiers: []models.TierDef{
				{ID: "independent", Priority: 0},
				{ID: "assisted", Priority: 1},
			},
		},
	}

	ext := scoring.New(registry.New(false), nil)
	r, err := New(cfg, ext, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !r.AtResults() {
		t.Fatalf("runner positioned at %s, want results", r.CurrentStep().ID)
	}
	out := r.Outcome()
	if out == nil {
		t.Fatal("no outcome computed on initial arrival at results")
	}
	if out.Tier != "independent" || out.Confidence != 0 || len(out.Flags) != 0 {
		t.Errorf("outcome = %+v, want lowest-need default", out)
	}
}
