package models

import (
	"sort"
	"time"

	"github.com/meredith/compass/internal/answers"
)

// JourneyLedger is the derived cross-product completion state. It is
// informational only: the hub reconstructs it from the stored
// contracts on every initialization and after every publish, so it is
// never independently authoritative.
type JourneyLedger struct {
	Completed       []string `json:"completed_products"`
	Unlocked        []string `json:"unlocked_products"`
	RecommendedNext string   `json:"recommended_next"`
}

// Clone returns an independent copy of the ledger.
func (l JourneyLedger) Clone() JourneyLedger {
	cp := l
	cp.Completed = append([]string(nil), l.Completed...)
	cp.Unlocked = append([]string(nil), l.Unlocked...)
	return cp
}

// IsUnlocked reports whether the product appears in the unlocked set.
func (l JourneyLedger) IsUnlocked(productID string) bool {
	for _, id := range l.Unlocked {
		if id == productID {
			return true
		}
	}
	return false
}

// Record is the single persisted document for one user: the answer
// set per module namespace, the published contracts keyed by product
// id, and the ledger snapshot.
type Record struct {
	UserID    string                 `json:"user_id"`
	Answers   map[string]answers.Set `json:"answers"`
	Contracts map[string]*Contract   `json:"contracts"`
	Ledger    JourneyLedger          `json:"ledger"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewRecord returns an empty, fully shaped record.
func NewRecord(userID string) *Record {
	return &Record{
		UserID:    userID,
		Answers:   make(map[string]answers.Set),
		Contracts: make(map[string]*Contract),
		Ledger:    JourneyLedger{Completed: []string{}, Unlocked: []string{}},
	}
}

// Clone returns a structurally independent deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := &Record{
		UserID:    r.UserID,
		Answers:   make(map[string]answers.Set, len(r.Answers)),
		Contracts: make(map[string]*Contract, len(r.Contracts)),
		Ledger:    r.Ledger.Clone(),
		UpdatedAt: r.UpdatedAt,
	}
	for key, set := range r.Answers {
		cp.Answers[key] = set.Clone()
	}
	for id, c := range r.Contracts {
		cp.Contracts[id] = c.Clone()
	}
	return cp
}

// Repair fills missing structure in a partially shaped record so a
// corrupt or truncated persisted row degrades to defaults instead of
// refusing to load. Contracts with a broken envelope are dropped;
// everything else is preserved. Returns the ids of dropped contracts.
func (r *Record) Repair(userID string) []string {
	if r.UserID == "" {
		r.UserID = userID
	}
	if r.Answers == nil {
		r.Answers = make(map[string]answers.Set)
	}
	for key, set := range r.Answers {
		if set == nil {
			r.Answers[key] = answers.New()
		}
	}
	if r.Contracts == nil {
		r.Contracts = make(map[string]*Contract)
	}
	var dropped []string
	for id, c := range r.Contracts {
		if c == nil || c.Validate() != nil || c.ProductID != id {
			dropped = append(dropped, id)
			delete(r.Contracts, id)
			continue
		}
		if c.Payload == nil {
			c.Payload = make(map[string]any)
		}
	}
	if r.Ledger.Completed == nil {
		r.Ledger.Completed = []string{}
	}
	if r.Ledger.Unlocked == nil {
		r.Ledger.Unlocked = []string{}
	}
	sort.Strings(dropped)
	return dropped
}
