package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/products"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's journey status",
		Long: `Status prints each product of the journey with its lock state and,
for published contracts, the contract status and version.`,
		Args: cobra.NoArgs,
		RunE: statusCommand,
	}

	addSessionFlags(cmd)

	return cmd
}

// statusCommand implements the status command logic
func statusCommand(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, userID)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	ledger := s.hub.Ledger()

	fmt.Fprintf(out, "Journey for user %s\n\n", userID)
	for _, p := range products.Catalog() {
		state := "locked"
		switch {
		case s.hub.IsComplete(p.ID):
			state = "complete"
		case ledger.IsUnlocked(p.ID):
			state = "unlocked"
		}

		fmt.Fprintf(out, "  %-22s %s", p.Title, state)
		if c, ok := s.hub.Get(p.ID); ok {
			fmt.Fprintf(out, " (contract %s v%s, %s)",
				c.Status, c.Version, c.GeneratedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out)
	}

	if next, ok := products.ByID(ledger.RecommendedNext); ok {
		fmt.Fprintf(out, "\nRecommended next: %s (compass run %s --user %s)\n",
			next.Title, next.ID, userID)
	} else {
		fmt.Fprintln(out, "\nJourney complete.")
	}
	return nil
}
