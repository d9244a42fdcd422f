// Package scoring computes a module's Outcome from its definition and
// the user's answers: category score totals, tier selection with
// deterministic tie-breaking, confidence, triggered flags with
// provenance, and ordered rationale text.
package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/expr"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/registry"
)

// fallbackCategory buckets scores from fields that declare no category.
const fallbackCategory = "general"

// WarnLogger receives lenient-mode warnings for dropped unknown flags.
type WarnLogger interface {
	Warnf(format string, args ...any)
}

// Extractor scores answer sets against module definitions. Safe to
// reuse across modules; it holds no per-run state.
type Extractor struct {
	reg *registry.Registry
	log WarnLogger
}

// New creates an extractor validating flags against reg. log may be
// nil when no lenient-mode warnings are wanted.
func New(reg *registry.Registry, log WarnLogger) *Extractor {
	return &Extractor{reg: reg, log: log}
}

// Score computes the Outcome for the given module and answers.
//
// The computation is deterministic: identical inputs produce an
// identical tier, score, flag set and rationale on every call. Flags
// not present in the registry raise a *registry.UnknownFlagError in
// strict mode and are dropped with a warning in lenient mode.
func (e *Extractor) Score(cfg *models.ModuleConfig, set answers.Set) (*models.Outcome, error) {
	if len(cfg.Scoring.Tiers) == 0 {
		return nil, fmt.Errorf("module %s declares no scoring tiers", cfg.ProductID)
	}

	visible := visibleFields(cfg, set)

	answered := 0
	for _, f := range visible {
		if set.Has(f.Key) {
			answered++
		}
	}
	if answered == 0 {
		return e.emptyOutcome(cfg), nil
	}

	categories := make(map[string]int)
	flagIDs := make(map[string]bool)
	for _, f := range visible {
		if !set.Has(f.Key) || len(f.Options) == 0 {
			continue
		}
		values, ok := set.List(f.Key)
		if !ok {
			continue
		}
		for _, v := range values {
			opt, ok := f.OptionByValue(v)
			if !ok {
				continue
			}
			cat := opt.Category
			if cat == "" {
				cat = f.Category
			}
			if cat == "" {
				cat = fallbackCategory
			}
			categories[cat] += opt.Score
			for _, id := range opt.Flags {
				flagIDs[id] = true
			}
		}
	}

	flags, err := e.resolveFlags(cfg.ProductID, flagIDs)
	if err != nil {
		return nil, err
	}

	rankings := rankTiers(&cfg.Scoring, categories)
	winner := rankings[0]

	return &models.Outcome{
		ModuleID:     cfg.ProductID,
		Tier:         winner.Tier,
		TierScore:    winner.Score,
		TierRankings: rankings,
		Confidence:   confidence(visible, set),
		Flags:        flags,
		Rationale:    e.rationale(flags, categories),
		ComputedAt:   time.Now(),
	}, nil
}

// emptyOutcome is the zero-answers edge case: lowest-need tier,
// confidence 0, no flags.
func (e *Extractor) emptyOutcome(cfg *models.ModuleConfig) *models.Outcome {
	def, _ := cfg.Scoring.DefaultTier()
	rankings := rankTiers(&cfg.Scoring, nil)
	return &models.Outcome{
		ModuleID:     cfg.ProductID,
		Tier:         def.ID,
		TierScore:    0,
		TierRankings: rankings,
		Confidence:   0,
		Flags:        []models.Flag{},
		Rationale:    []string{},
		ComputedAt:   time.Now(),
	}
}

// visibleFields returns the fields currently shown to the user, in
// definition order: a field counts only when its step and the field
// itself both pass their visibility predicates.
func visibleFields(cfg *models.ModuleConfig, set answers.Set) []*models.FieldDef {
	var out []*models.FieldDef
	for si := range cfg.Steps {
		step := &cfg.Steps[si]
		if !stepVisible(step, set) {
			continue
		}
		for fi := range step.Fields {
			f := &step.Fields[fi]
			if fieldVisible(f, set) {
				out = append(out, f)
			}
		}
	}
	return out
}

// confidence is the answered fraction of currently visible optional
// questions. Conditional questions change the denominator: revealing
// two new optional fields lowers confidence until they are answered.
func confidence(visible []*models.FieldDef, set answers.Set) float64 {
	total, got := 0, 0
	for _, f := range visible {
		if f.Required {
			continue
		}
		total++
		if set.Has(f.Key) {
			got++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(got) / float64(total)
}

// resolveFlags validates the triggered flag ids and attaches
// provenance. A single timestamp covers the whole extraction so
// repeated flags within one outcome cannot disagree.
func (e *Extractor) resolveFlags(moduleID string, ids map[string]bool) ([]models.Flag, error) {
	if len(ids) == 0 {
		return []models.Flag{}, nil
	}
	raw := make([]string, 0, len(ids))
	for id := range ids {
		raw = append(raw, id)
	}
	sort.Strings(raw)

	valid, dropped, err := e.reg.ValidateFlags(raw)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 && e.log != nil {
		e.log.Warnf("module %s: dropping unknown flag(s) %v", moduleID, dropped)
	}

	now := time.Now()
	flags := make([]models.Flag, len(valid))
	for i, id := range valid {
		flags[i] = models.Flag{ID: id, Source: moduleID, TriggeredAt: now}
	}
	return flags, nil
}

// rankTiers aggregates category totals into each declared tier bucket
// and orders the result by descending score, breaking ties by the
// tier's declared priority (higher wins). Never by answer order.
func rankTiers(def *models.ScoringDef, categories map[string]int) []models.TierScore {
	type ranked struct {
		models.TierScore
		priority int
	}

	all := make([]ranked, 0, len(def.Tiers))
	for _, tier := range def.Tiers {
		score := aggregate(def.Method(), tier, categories)
		all = append(all, ranked{models.TierScore{Tier: tier.ID, Score: score}, tier.Priority})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].priority > all[j].priority
	})

	out := make([]models.TierScore, len(all))
	for i, r := range all {
		out[i] = r.TierScore
	}
	return out
}

func aggregate(method string, tier models.TierDef, categories map[string]int) int {
	cats := tier.Categories
	if len(cats) == 0 {
		// No explicit bucket: the tier draws from every category.
		cats = make([]string, 0, len(categories))
		for cat := range categories {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
	}

	switch method {
	case models.AggregateMax:
		max := 0
		for _, cat := range cats {
			if s := categories[cat]; s > max {
				max = s
			}
		}
		return max
	default:
		sum := 0
		for _, cat := range cats {
			sum += categories[cat]
		}
		return sum
	}
}

// rationale builds the ordered justification list: high-priority flag
// messages first (alphabetical by flag id), then one summary line per
// category by descending score. The two groups never interleave.
func (e *Extractor) rationale(flags []models.Flag, categories map[string]int) []string {
	out := []string{}
	for _, f := range flags {
		def, ok := e.reg.LookupFlag(f.ID)
		if ok && def.Priority == registry.PriorityHigh {
			out = append(out, def.Message)
		}
	}

	type catScore struct {
		name  string
		score int
	}
	sums := make([]catScore, 0, len(categories))
	for name, score := range categories {
		sums = append(sums, catScore{name, score})
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].score != sums[j].score {
			return sums[i].score > sums[j].score
		}
		return sums[i].name < sums[j].name
	})
	for _, cs := range sums {
		out = append(out, fmt.Sprintf("%s score: %d", cs.name, cs.score))
	}
	return out
}

func stepVisible(step *models.StepDef, set answers.Set) bool {
	return expr.Evaluate(step.VisibleWhen, set)
}

func fieldVisible(f *models.FieldDef, set answers.Set) bool {
	return expr.Evaluate(f.VisibleWhen, set)
}
