// Package engine runs one module's stepped form: navigation across
// visible steps, per-step validation, progress, autosave after every
// accepted transition, and outcome computation on arrival at the
// results step.
//
// A Runner owns its answer set for the duration of the run. All
// engine failures are scoped to the single module instance.
package engine

import (
	"strconv"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/expr"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/scoring"
)

// Saver persists the full answer set after each accepted transition.
// Implementations must be atomic: a crash mid-write may lose the
// update but can never leave a half-written record.
type Saver interface {
	SaveAnswers(stateKey string, set answers.Set) error
}

// OutcomeHook lets a product adapter post-process the freshly computed
// outcome (for example to attach product-specific payload inputs)
// before the runner exposes it.
type OutcomeHook func(*models.Outcome, answers.Set) error

// Runner is the state machine for one module run. States are the
// module's step indices plus the terminal results step; transitions
// are Next, Previous and JumpToResults.
type Runner struct {
	cfg       *models.ModuleConfig
	extractor *scoring.Extractor
	saver     Saver
	hook      OutcomeHook

	set     answers.Set
	pos     int
	visited map[string]bool
	outcome *models.Outcome
}

// New validates the module definition and returns a runner positioned
// at the first visible step. existing restores a previously saved
// answer set (the runner takes an independent copy; nil starts empty).
func New(cfg *models.ModuleConfig, ext *scoring.Extractor, saver Saver, existing answers.Set) (*Runner, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:       cfg,
		extractor: ext,
		saver:     saver,
		set:       existing.Clone(),
		visited:   make(map[string]bool),
	}
	if r.set == nil {
		r.set = answers.New()
	}

	r.pos = r.firstVisible()
	if r.pos < 0 {
		return nil, &ModuleError{ModuleID: cfg.ProductID, Message: "no visible steps"}
	}
	r.visited[cfg.Steps[r.pos].ID] = true

	// Every content step can be hidden against the restored answers,
	// leaving the runner at results immediately. That counts as an
	// arrival, so the outcome is computed here too.
	if r.AtResults() {
		if err := r.computeOutcome(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithOutcomeHook attaches a product adapter's post-processing hook.
func (r *Runner) WithOutcomeHook(hook OutcomeHook) *Runner {
	r.hook = hook
	return r
}

// validateConfig rejects definitions the engine cannot run: a missing
// results step, duplicate or malformed fields, or predicates that
// reference undefined field keys.
func validateConfig(cfg *models.ModuleConfig) error {
	if _, ok := cfg.Step(cfg.ResultsStep); !ok {
		return &ModuleError{ModuleID: cfg.ProductID, Message: "results step " + strconv.Quote(cfg.ResultsStep) + " is not defined"}
	}

	known := cfg.FieldKeys()
	seen := make(map[string]bool)
	for _, step := range cfg.Steps {
		if err := expr.Validate(step.VisibleWhen, known); err != nil {
			return &ModuleError{ModuleID: cfg.ProductID, Message: "step " + step.ID + " visibility", Err: err}
		}
		for _, f := range step.Fields {
			if f.Key == "" {
				return &ModuleError{ModuleID: cfg.ProductID, Message: "step " + step.ID + " has a field without a key"}
			}
			if seen[f.Key] {
				return &ModuleError{ModuleID: cfg.ProductID, Message: "duplicate field key " + f.Key}
			}
			seen[f.Key] = true
			if !f.Type.Valid() {
				return &ModuleError{ModuleID: cfg.ProductID, Message: "field " + f.Key + " has invalid type " + string(f.Type)}
			}
			if err := expr.Validate(f.VisibleWhen, known); err != nil {
				return &ModuleError{ModuleID: cfg.ProductID, Message: "field " + f.Key + " visibility", Err: err}
			}
		}
	}
	return nil
}

// CurrentStep returns the step the runner is positioned at.
func (r *Runner) CurrentStep() *models.StepDef {
	return &r.cfg.Steps[r.pos]
}

// AtResults reports whether the runner has reached the terminal state.
func (r *Runner) AtResults() bool {
	return r.cfg.Steps[r.pos].ID == r.cfg.ResultsStep
}

// Outcome returns the outcome computed on the most recent arrival at
// the results step, or nil before the first arrival.
func (r *Runner) Outcome() *models.Outcome {
	return r.outcome
}

// Answers returns an independent copy of the current answer set.
func (r *Runner) Answers() answers.Set {
	return r.set.Clone()
}

// SetAnswer records the user's value for a field on the current step.
// Select fields reject values outside their option list.
func (r *Runner) SetAnswer(key string, value any) error {
	f, ok := r.cfg.Field(key)
	if !ok {
		return &ValidationError{StepID: r.CurrentStep().ID, Invalid: []string{key}}
	}
	if !r.valueValid(f, value) {
		return &ValidationError{StepID: r.CurrentStep().ID, Invalid: []string{key}}
	}
	r.set[key] = value
	return nil
}

// ClearAnswer removes the answer for a field.
func (r *Runner) ClearAnswer(key string) {
	r.set.Delete(key)
}

func (r *Runner) valueValid(f *models.FieldDef, value any) bool {
	switch f.Type {
	case models.FieldSingleSelect:
		s, ok := value.(string)
		if !ok {
			return false
		}
		_, ok = f.OptionByValue(s)
		return ok
	case models.FieldMultiSelect:
		list, ok := value.([]string)
		if !ok {
			return false
		}
		for _, v := range list {
			if _, ok := f.OptionByValue(v); !ok {
				return false
			}
		}
		return true
	case models.FieldNumber:
		switch value.(type) {
		case float64, int:
			return true
		}
		return false
	case models.FieldBool:
		_, ok := value.(bool)
		return ok
	default: // free text
		_, ok := value.(string)
		return ok
	}
}

// Next validates the current step and advances to the next visible
// step, skipping steps whose predicates fail. Landing on the results
// step computes a fresh outcome. The transition is all-or-nothing:
// validation failure or a failed autosave leaves the position
// unchanged.
func (r *Runner) Next() error {
	if r.AtResults() {
		return nil
	}
	if err := r.validateStep(r.CurrentStep()); err != nil {
		return err
	}

	next := r.nextVisible(r.pos)
	if next < 0 {
		// Nothing visible between here and the end; finish at results.
		next = r.resultsIndex()
	}
	return r.transitionTo(next)
}

// Previous returns to the closest prior visible step without
// validation. At the first visible step it is a no-op.
func (r *Runner) Previous() error {
	prev := -1
	for i := r.pos - 1; i >= 0; i-- {
		if r.stepVisible(&r.cfg.Steps[i]) {
			prev = i
			break
		}
	}
	if prev < 0 {
		return nil
	}
	return r.transitionTo(prev)
}

// JumpToResults moves straight to the results step, permitted only
// when every required field on every currently visible step is
// answered.
func (r *Runner) JumpToResults() error {
	for i := range r.cfg.Steps {
		step := &r.cfg.Steps[i]
		if step.ID == r.cfg.ResultsStep || !r.stepVisible(step) {
			continue
		}
		if err := r.validateStep(step); err != nil {
			return err
		}
	}
	return r.transitionTo(r.resultsIndex())
}

// transitionTo commits a transition: reposition, mark visited,
// autosave, and recompute the outcome when landing at results. On
// autosave failure the previous position is restored.
func (r *Runner) transitionTo(pos int) error {
	oldPos := r.pos
	r.pos = pos
	stepID := r.cfg.Steps[pos].ID
	alreadyVisited := r.visited[stepID]
	r.visited[stepID] = true

	if r.saver != nil {
		if err := r.saver.SaveAnswers(r.cfg.StateKey, r.set.Clone()); err != nil {
			r.pos = oldPos
			if !alreadyVisited {
				delete(r.visited, stepID)
			}
			return &ModuleError{ModuleID: r.cfg.ProductID, Message: "autosave failed", Err: err}
		}
	}

	if r.AtResults() {
		return r.computeOutcome()
	}
	return nil
}

// computeOutcome runs the extractor against a snapshot of the current
// answers. Called on every arrival at results, so editing an earlier
// answer and returning always yields a fresh outcome, never a reused
// one.
func (r *Runner) computeOutcome() error {
	out, err := r.extractor.Score(r.cfg, r.set.Clone())
	if err != nil {
		r.outcome = nil
		return &ModuleError{ModuleID: r.cfg.ProductID, Message: "outcome computation failed", Err: err}
	}
	if r.hook != nil {
		if err := r.hook(out, r.set.Clone()); err != nil {
			r.outcome = nil
			return &ModuleError{ModuleID: r.cfg.ProductID, Message: "outcome hook failed", Err: err}
		}
	}
	r.outcome = out
	return nil
}

// validateStep checks the step's required visible fields.
func (r *Runner) validateStep(step *models.StepDef) error {
	var missing []string
	for i := range step.Fields {
		f := &step.Fields[i]
		if !f.Required || !r.fieldVisible(f) {
			continue
		}
		if !r.set.Has(f.Key) {
			missing = append(missing, f.Key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{StepID: step.ID, Missing: missing}
	}
	return nil
}

// Progress is the fraction of currently visible steps already visited.
// Recomputed on every call because conditional steps change the
// denominator as answers change.
func (r *Runner) Progress() float64 {
	total, visited := 0, 0
	for i := range r.cfg.Steps {
		step := &r.cfg.Steps[i]
		if !r.stepVisible(step) {
			continue
		}
		total++
		if r.visited[step.ID] {
			visited++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(visited) / float64(total)
}

// VisibleSteps returns the steps currently shown given the answers,
// in definition order.
func (r *Runner) VisibleSteps() []*models.StepDef {
	var out []*models.StepDef
	for i := range r.cfg.Steps {
		if r.stepVisible(&r.cfg.Steps[i]) {
			out = append(out, &r.cfg.Steps[i])
		}
	}
	return out
}

// VisibleFields returns the currently visible fields of a step.
func (r *Runner) VisibleFields(step *models.StepDef) []*models.FieldDef {
	var out []*models.FieldDef
	for i := range step.Fields {
		if r.fieldVisible(&step.Fields[i]) {
			out = append(out, &step.Fields[i])
		}
	}
	return out
}

func (r *Runner) stepVisible(step *models.StepDef) bool {
	if step.ID == r.cfg.ResultsStep {
		return true
	}
	return expr.Evaluate(step.VisibleWhen, r.set)
}

func (r *Runner) fieldVisible(f *models.FieldDef) bool {
	return expr.Evaluate(f.VisibleWhen, r.set)
}

func (r *Runner) firstVisible() int {
	for i := range r.cfg.Steps {
		if r.stepVisible(&r.cfg.Steps[i]) {
			return i
		}
	}
	return -1
}

func (r *Runner) nextVisible(from int) int {
	for i := from + 1; i < len(r.cfg.Steps); i++ {
		if r.stepVisible(&r.cfg.Steps[i]) {
			return i
		}
	}
	return -1
}

func (r *Runner) resultsIndex() int {
	for i := range r.cfg.Steps {
		if r.cfg.Steps[i].ID == r.cfg.ResultsStep {
			return i
		}
	}
	return len(r.cfg.Steps) - 1
}
