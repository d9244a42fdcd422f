package models

import "time"

// Flag is a triggered catalog flag with provenance: which module last
// activated it and when.
type Flag struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// TierScore is one (tier, score) entry of an outcome's rankings.
type TierScore struct {
	Tier  string `json:"tier"`
	Score int    `json:"score"`
}

// Outcome is the computed result of a completed module. It is created
// once per arrival at the results step and never patched: editing an
// earlier answer and re-reaching results produces a fresh Outcome.
type Outcome struct {
	ModuleID     string      `json:"module_id"`
	Tier         string      `json:"tier"`
	TierScore    int         `json:"tier_score"`
	TierRankings []TierScore `json:"tier_rankings"` // descending score, priority tie-break
	Confidence   float64     `json:"confidence"`    // answered / visible optional questions
	Flags        []Flag      `json:"flags"`
	Rationale    []string    `json:"rationale"`
	ComputedAt   time.Time   `json:"computed_at"`
}

// FlagIDs returns the triggered flag ids in outcome order.
func (o *Outcome) FlagIDs() []string {
	ids := make([]string, len(o.Flags))
	for i, f := range o.Flags {
		ids[i] = f.ID
	}
	return ids
}

// HasFlag reports whether the outcome triggered the given flag.
func (o *Outcome) HasFlag(id string) bool {
	for _, f := range o.Flags {
		if f.ID == id {
			return true
		}
	}
	return false
}
