package products

import (
	"fmt"
	"math"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/hub"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/registry"
)

// FinancialProfileVersion is stamped on every published cost contract.
const FinancialProfileVersion = "1.0"

// FlagMultiplier adjusts the base monthly cost for one care flag.
type FlagMultiplier struct {
	Flag   string
	Factor float64
}

// costMultipliers is the pinned application order. Multipliers
// compose multiplicatively in exactly this sequence, never summed:
// $5,000 with mobility_limited and chronic_conditions is
// 5000 x 1.15 x 1.10 = $6,325.00, not 5000 x 1.25.
var costMultipliers = []FlagMultiplier{
	{registry.FlagMobilityLimited, 1.15},
	{registry.FlagChronicConditions, 1.10},
	{registry.FlagCognitiveDecline, 1.20},
	{registry.FlagHighSafety, 1.05},
	{registry.FlagMedicationComplex, 1.08},
}

// baseMonthlyByTier is the national-median starting point per
// recommended tier, in dollars per month.
var baseMonthlyByTier = map[string]float64{
	"independent": 3500,
	"home_care":   4200,
	"assisted":    5000,
	"memory_care": 7500,
}

// defaultBaseMonthly covers tiers without a published median.
const defaultBaseMonthly = 5000

// EstimateMonthlyCost composes the base cost with the multiplier for
// every present flag, applied in the pinned table order regardless of
// the order flags were triggered in. The result is rounded to cents.
func EstimateMonthlyCost(base float64, flagIDs []string) float64 {
	present := make(map[string]bool, len(flagIDs))
	for _, id := range flagIDs {
		present[id] = true
	}

	cost := base
	for _, m := range costMultipliers {
		if present[m.Flag] {
			cost *= m.Factor
		}
	}
	return math.Round(cost*100) / 100
}

// BaseMonthlyForTier returns the starting monthly cost for a tier.
func BaseMonthlyForTier(tier string) float64 {
	if base, ok := baseMonthlyByTier[tier]; ok {
		return base
	}
	return defaultBaseMonthly
}

// PublishFinancialProfile reads the care recommendation through the
// hub, estimates costs against the user's budget answers, and
// publishes the cost_planner contract. It fails when the care plan is
// not complete; unlock gating relies on the hub, never on another
// module's transient state.
func PublishFinancialProfile(h *hub.Hub, out *models.Outcome, ans answers.Set) error {
	if !h.IsComplete(GCP) {
		return fmt.Errorf("cost_planner: care plan is not complete")
	}
	careContract, ok := h.Get(GCP)
	if !ok {
		return fmt.Errorf("cost_planner: care recommendation missing")
	}
	rec, err := ReadCareRecommendation(careContract)
	if err != nil {
		return fmt.Errorf("cost_planner: %w", err)
	}

	estimate := EstimateMonthlyCost(BaseMonthlyForTier(rec.Tier), rec.Flags)

	budget, _ := ans.Number("monthly_budget")
	veteran, _ := ans.Bool("veteran")
	gap := math.Round((estimate-budget)*100) / 100
	if gap < 0 {
		gap = 0
	}

	payload := map[string]any{
		"recommended_tier": rec.Tier,
		"monthly_estimate": estimate,
		"monthly_budget":   budget,
		"funding_gap":      gap,
		"veteran":          veteran,
	}

	status := models.StatusComplete
	if out != nil && out.HasFlag(registry.FlagBudgetConstrained) {
		payload["budget_constrained"] = true
	}

	return h.Publish(CostPlanner, &models.Contract{
		ProductID: CostPlanner,
		Status:    status,
		Version:   FinancialProfileVersion,
		Payload:   payload,
	})
}
