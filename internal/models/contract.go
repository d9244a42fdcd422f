package models

import (
	"fmt"
	"time"
)

// ContractStatus is the lifecycle state a publishing product assigns
// to its contract.
type ContractStatus string

const (
	// StatusNew marks a product that has produced no meaningful data yet.
	StatusNew ContractStatus = "new"
	// StatusInProgress marks a partially completed product.
	StatusInProgress ContractStatus = "in_progress"
	// StatusComplete marks a finished product whose contract is authoritative.
	StatusComplete ContractStatus = "complete"
	// StatusNeedsRefresh marks a contract invalidated by an upstream change.
	StatusNeedsRefresh ContractStatus = "needs_refresh"
)

// Valid reports whether the status is one of the defined lifecycle states.
func (s ContractStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusComplete, StatusNeedsRefresh:
		return true
	default:
		return false
	}
}

// Contract is the versioned payload one product publishes for others
// to consume. The payload shape is owned by the publishing product;
// the envelope fields are universal. On republish the whole contract
// is overwritten, never field-patched, so stale sub-fields cannot
// survive a recompute.
type Contract struct {
	ProductID   string         `json:"product_id"`
	Status      ContractStatus `json:"status"`
	Version     string         `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	Payload     map[string]any `json:"payload"`
}

// Clone returns a structurally independent deep copy.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Payload = deepCopyMap(c.Payload)
	return &cp
}

// Validate checks the envelope shape. Payload contents are the
// publishing product's business.
func (c *Contract) Validate() error {
	if c == nil {
		return fmt.Errorf("contract is nil")
	}
	if c.ProductID == "" {
		return fmt.Errorf("contract has no product id")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("contract %s has invalid status %q", c.ProductID, c.Status)
	}
	return nil
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}
