// Package report renders a user's journey into a shareable HTML
// document. The report is built as markdown from the hub's contracts,
// converted with goldmark, and written atomically so a half-finished
// export never replaces a previous one.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/meredith/compass/internal/filelock"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/products"
)

// Generator renders journey reports.
type Generator struct {
	markdown goldmark.Markdown
}

// NewGenerator returns a report generator. Tables in the rendered
// markdown need the GFM extension.
func NewGenerator() *Generator {
	return &Generator{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Source is the read side of the contract hub the report draws from.
type Source interface {
	Get(productID string) (*models.Contract, bool)
	IsComplete(productID string) bool
	Ledger() models.JourneyLedger
}

// Markdown builds the journey summary as a markdown document.
func (g *Generator) Markdown(userID string, src Source, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Care Journey Report\n\n")
	fmt.Fprintf(&sb, "User `%s`, generated %s.\n\n", userID, now.Format("January 2, 2006"))

	ledger := src.Ledger()

	sb.WriteString("## Journey\n\n")
	sb.WriteString("| Product | Status |\n")
	sb.WriteString("| --- | --- |\n")
	for _, p := range products.Catalog() {
		fmt.Fprintf(&sb, "| %s | %s |\n", p.Title, journeyStatus(p.ID, src, ledger))
	}
	sb.WriteString("\n")
	if next, ok := products.ByID(ledger.RecommendedNext); ok {
		fmt.Fprintf(&sb, "Recommended next step: **%s**.\n\n", next.Title)
	}

	if c, ok := src.Get(products.GCP); ok && src.IsComplete(products.GCP) {
		writeCareSection(&sb, c)
	}
	if c, ok := src.Get(products.CostPlanner); ok && src.IsComplete(products.CostPlanner) {
		writeCostSection(&sb, c)
	}
	if c, ok := src.Get(products.Scheduler); ok && src.IsComplete(products.Scheduler) {
		writeAppointmentSection(&sb, c)
	}

	return sb.String()
}

// HTML renders the journey summary to an HTML page.
func (g *Generator) HTML(userID string, src Source, now time.Time) ([]byte, error) {
	md := g.Markdown(userID, src, now)

	var body bytes.Buffer
	if err := g.markdown.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString("<title>Care Journey Report</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Export writes the HTML report to path via a temp file rename.
func (g *Generator) Export(path, userID string, src Source, now time.Time) error {
	html, err := g.HTML(userID, src, now)
	if err != nil {
		return err
	}
	if err := filelock.AtomicWrite(path, html); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}

func journeyStatus(productID string, src Source, ledger models.JourneyLedger) string {
	if src.IsComplete(productID) {
		return "complete"
	}
	if ledger.IsUnlocked(productID) {
		return "unlocked"
	}
	return "locked"
}

func writeCareSection(sb *strings.Builder, c *models.Contract) {
	rec, err := products.ReadCareRecommendation(c)
	if err != nil {
		return
	}

	sb.WriteString("## Care Recommendation\n\n")
	fmt.Fprintf(sb, "Recommended tier: **%s** (score %d, confidence %.0f%%).\n\n",
		rec.Tier, rec.TierScore, rec.Confidence*100)

	if len(rec.Rationale) > 0 {
		sb.WriteString("### Why\n\n")
		for _, r := range rec.Rationale {
			fmt.Fprintf(sb, "- %s\n", r)
		}
		sb.WriteString("\n")
	}

	if len(rec.Flags) > 0 {
		flags := append([]string(nil), rec.Flags...)
		sort.Strings(flags)
		fmt.Fprintf(sb, "Care flags: %s.\n\n", strings.Join(flags, ", "))
	}
}

func writeCostSection(sb *strings.Builder, c *models.Contract) {
	sb.WriteString("## Cost Planning\n\n")
	if est, ok := payloadNumber(c.Payload, "monthly_estimate"); ok {
		fmt.Fprintf(sb, "- Estimated monthly cost: $%.2f\n", est)
	}
	if budget, ok := payloadNumber(c.Payload, "monthly_budget"); ok {
		fmt.Fprintf(sb, "- Monthly budget: $%.2f\n", budget)
	}
	if gap, ok := payloadNumber(c.Payload, "funding_gap"); ok && gap > 0 {
		fmt.Fprintf(sb, "- Funding gap: $%.2f\n", gap)
	}
	if veteran, ok := c.Payload["veteran"].(bool); ok && veteran {
		sb.WriteString("- Veteran benefits may apply\n")
	}
	sb.WriteString("\n")
}

func writeAppointmentSection(sb *strings.Builder, c *models.Contract) {
	sb.WriteString("## Advisor Appointment\n\n")
	if t, ok := c.Payload["preferred_time"].(string); ok && t != "" {
		fmt.Fprintf(sb, "- Preferred time: %s\n", t)
	}
	if m, ok := c.Payload["contact_method"].(string); ok && m != "" {
		fmt.Fprintf(sb, "- Contact method: %s\n", m)
	}
	sb.WriteString("\n")
}

func payloadNumber(payload map[string]any, key string) (float64, bool) {
	switch n := payload[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
