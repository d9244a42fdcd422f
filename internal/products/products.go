// Package products wires each product adapter to the shared engine
// and contract hub: the catalog declares identity and unlock
// prerequisites, and each adapter turns a completed module run into
// that product's typed contract.
//
// Adapters talk to each other exclusively through the hub's
// publish/get interface; no adapter ever reads another module's
// answer set.
package products

import (
	"fmt"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/hub"
	"github.com/meredith/compass/internal/models"
)

// Product ids.
const (
	GCP         = "gcp"
	CostPlanner = "cost_planner"
	Scheduler   = "scheduler"
)

// Catalog returns the product table in journey order. Order matters:
// the hub recommends the first unlocked, incomplete product.
func Catalog() []models.ProductDef {
	return []models.ProductDef{
		{ID: GCP, Title: "Guided Care Plan", Module: "gcp.yaml"},
		{ID: CostPlanner, Title: "Cost Planner", Module: "cost_planner.yaml", Requires: []string{GCP}},
		{ID: Scheduler, Title: "Advisor Scheduler", Module: "scheduler.yaml", Requires: []string{CostPlanner}},
	}
}

// ByID returns the catalog entry for a product id.
func ByID(productID string) (models.ProductDef, bool) {
	for _, p := range Catalog() {
		if p.ID == productID {
			return p, true
		}
	}
	return models.ProductDef{}, false
}

// Publish builds the product's contract from a completed module run
// and publishes it to the hub.
func Publish(h *hub.Hub, productID string, out *models.Outcome, ans answers.Set) error {
	switch productID {
	case GCP:
		return PublishCareRecommendation(h, out)
	case CostPlanner:
		return PublishFinancialProfile(h, out, ans)
	case Scheduler:
		return PublishAppointment(h, ans)
	default:
		return fmt.Errorf("no adapter for product %s", productID)
	}
}
