package products

import (
	"fmt"

	"github.com/meredith/compass/internal/hub"
	"github.com/meredith/compass/internal/models"
)

// CareRecommendationVersion is stamped on every published care
// recommendation contract.
const CareRecommendationVersion = "1.2"

// CareRecommendation is the Guided Care Plan's contract payload as
// downstream consumers see it.
type CareRecommendation struct {
	Tier       string
	TierScore  int
	Confidence float64
	Flags      []string
	Rationale  []string
}

// PublishCareRecommendation converts a completed care-plan outcome
// into the gcp contract and publishes it.
func PublishCareRecommendation(h *hub.Hub, out *models.Outcome) error {
	if out == nil {
		return fmt.Errorf("gcp: no outcome to publish")
	}

	flags := make([]any, len(out.Flags))
	for i, f := range out.Flags {
		flags[i] = f.ID
	}
	rationale := make([]any, len(out.Rationale))
	for i, r := range out.Rationale {
		rationale[i] = r
	}

	contract := &models.Contract{
		ProductID: GCP,
		Status:    models.StatusComplete,
		Version:   CareRecommendationVersion,
		Payload: map[string]any{
			"tier":       out.Tier,
			"tier_score": out.TierScore,
			"confidence": out.Confidence,
			"flags":      flags,
			"rationale":  rationale,
		},
	}
	return h.Publish(GCP, contract)
}

// ReadCareRecommendation decodes the gcp contract payload. It accepts
// both freshly built payloads and payloads that round-tripped through
// JSON persistence.
func ReadCareRecommendation(c *models.Contract) (CareRecommendation, error) {
	var rec CareRecommendation
	if c == nil {
		return rec, fmt.Errorf("gcp contract is nil")
	}
	if c.ProductID != GCP {
		return rec, fmt.Errorf("contract is for product %q, not gcp", c.ProductID)
	}

	tier, ok := c.Payload["tier"].(string)
	if !ok || tier == "" {
		return rec, fmt.Errorf("gcp contract has no tier")
	}
	rec.Tier = tier
	rec.TierScore = asInt(c.Payload["tier_score"])
	rec.Confidence = asFloat(c.Payload["confidence"])
	rec.Flags = asStrings(c.Payload["flags"])
	rec.Rationale = asStrings(c.Payload["rationale"])
	return rec, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
