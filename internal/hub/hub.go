// Package hub is the cross-product contract store: products publish
// typed outcome contracts here and every other product or dashboard
// reads them back through it. The hub also owns the derived journey
// ledger (completed, unlocked, recommended next product).
//
// Two invariants carry this package:
//
//  1. Initialize restores the live store from persistence on EVERY
//     call, not only the first. Partial page navigation re-invokes it
//     many times per session; skipping "already initialized" calls is
//     exactly how products spuriously re-lock.
//  2. Values crossing the persisted/live and hub/caller boundaries
//     are deep copies. Mutating one side is never observable on the
//     other.
package hub

import (
	"fmt"
	"time"

	"github.com/meredith/compass/internal/models"
)

// Store is the persistence boundary: both operations are atomic.
type Store interface {
	// Load returns the user's record, or nil when none has been saved.
	Load(userID string) (*models.Record, error)
	// SaveContracts replaces the record's contract set and ledger
	// snapshot in one all-or-nothing write.
	SaveContracts(userID string, contracts map[string]*models.Contract, ledger models.JourneyLedger) error
}

// Logger receives repair and drop warnings.
type Logger interface {
	Warnf(format string, args ...any)
}

// ContractError rejects a malformed publish. The previously stored
// contract, if any, remains authoritative.
type ContractError struct {
	ProductID string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contract %s: %s: %v", e.ProductID, e.Message, e.Err)
	}
	return fmt.Sprintf("contract %s: %s", e.ProductID, e.Message)
}

// Unwrap returns the underlying error.
func (e *ContractError) Unwrap() error {
	return e.Err
}

// Hub arbitrates one user's contracts. Not safe for concurrent use;
// each user session owns its own Hub.
type Hub struct {
	userID  string
	store   Store
	catalog []models.ProductDef
	log     Logger

	contracts map[string]*models.Contract
	ledger    models.JourneyLedger
}

// New creates a hub for one user session. Call Initialize before use.
func New(userID string, store Store, catalog []models.ProductDef, log Logger) *Hub {
	return &Hub{
		userID:    userID,
		store:     store,
		catalog:   catalog,
		log:       log,
		contracts: make(map[string]*models.Contract),
	}
}

// Initialize restores the live store from persistence. Idempotent and
// intentionally unconditional: every call reloads the persisted
// record, repairs missing structure defensively, and replaces the
// live contract set wholesale with deep copies. N calls against an
// unchanged persisted store yield an identical live store each time.
func (h *Hub) Initialize() error {
	rec, err := h.store.Load(h.userID)
	if err != nil {
		return fmt.Errorf("load record for %s: %w", h.userID, err)
	}
	if rec == nil {
		rec = models.NewRecord(h.userID)
	}
	if dropped := rec.Repair(h.userID); len(dropped) > 0 && h.log != nil {
		h.log.Warnf("user %s: dropped malformed contract(s) during restore: %v", h.userID, dropped)
	}

	live := make(map[string]*models.Contract, len(rec.Contracts))
	for id, c := range rec.Contracts {
		live[id] = c.Clone()
	}
	h.contracts = live
	h.ledger = h.deriveLedger()
	return nil
}

// Publish validates and stores a product's contract, stamping the
// envelope and recomputing the journey ledger. The write is
// all-or-nothing: on any failure the previous contract stays
// authoritative. Republishing overwrites the whole contract, never
// patches fields.
func (h *Hub) Publish(productID string, c *models.Contract) error {
	if c == nil {
		return &ContractError{ProductID: productID, Message: "nil contract"}
	}
	if !h.knownProduct(productID) {
		return &ContractError{ProductID: productID, Message: "unknown product"}
	}
	if c.ProductID != "" && c.ProductID != productID {
		return &ContractError{ProductID: productID, Message: fmt.Sprintf("contract is for product %q", c.ProductID)}
	}

	cp := c.Clone()
	cp.ProductID = productID
	cp.GeneratedAt = time.Now()
	if cp.Version == "" {
		cp.Version = "1.0"
	}
	if cp.Payload == nil {
		cp.Payload = make(map[string]any)
	}
	if err := cp.Validate(); err != nil {
		return &ContractError{ProductID: productID, Message: "invalid shape", Err: err}
	}

	// Stage the full post-publish state, persist it, then commit to
	// the live store only on success.
	staged := make(map[string]*models.Contract, len(h.contracts)+1)
	for id, existing := range h.contracts {
		staged[id] = existing.Clone()
	}
	staged[productID] = cp

	ledger := deriveLedger(h.catalog, staged)
	if err := h.store.SaveContracts(h.userID, staged, ledger); err != nil {
		return &ContractError{ProductID: productID, Message: "persist failed", Err: err}
	}

	h.contracts = staged
	h.ledger = ledger
	return nil
}

// Get returns an independent copy of a product's contract. Callers
// can mutate the result freely; the stored contract never changes.
func (h *Hub) Get(productID string) (*models.Contract, bool) {
	c, ok := h.contracts[productID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// IsComplete is the authoritative completion check. All unlock gating
// must go through this, never through a product's transient
// form-progress state.
func (h *Hub) IsComplete(productID string) bool {
	c, ok := h.contracts[productID]
	return ok && c.Status == models.StatusComplete
}

// Ledger returns a copy of the derived journey ledger.
func (h *Hub) Ledger() models.JourneyLedger {
	return h.ledger.Clone()
}

func (h *Hub) knownProduct(productID string) bool {
	for _, p := range h.catalog {
		if p.ID == productID {
			return true
		}
	}
	return false
}

func (h *Hub) deriveLedger() models.JourneyLedger {
	return deriveLedger(h.catalog, h.contracts)
}

// deriveLedger reconstructs the journey ledger from the contracts
// alone: completed products are those with a complete contract, a
// product unlocks once all its prerequisites are complete, and the
// recommended next step is the first unlocked-but-incomplete product
// in catalog order. Stored contracts for products missing from the
// catalog never affect unlocks.
func deriveLedger(catalog []models.ProductDef, contracts map[string]*models.Contract) models.JourneyLedger {
	ledger := models.JourneyLedger{Completed: []string{}, Unlocked: []string{}}

	complete := func(id string) bool {
		c, ok := contracts[id]
		return ok && c.Status == models.StatusComplete
	}

	for _, p := range catalog {
		if complete(p.ID) {
			ledger.Completed = append(ledger.Completed, p.ID)
		}
		unlocked := true
		for _, req := range p.Requires {
			if !complete(req) {
				unlocked = false
				break
			}
		}
		if unlocked {
			ledger.Unlocked = append(ledger.Unlocked, p.ID)
			if ledger.RecommendedNext == "" && !complete(p.ID) {
				ledger.RecommendedNext = p.ID
			}
		}
	}
	return ledger
}
