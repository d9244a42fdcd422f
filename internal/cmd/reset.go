package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/products"
)

// NewResetCommand creates the reset command
func NewResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <product-id>",
		Short: "Clear a user's saved answers for one product",
		Long: `Reset clears the in-progress answers for one product's module so the
next run starts from the first step.

Only the named module's answers are cleared. Other modules' answers
and all published contracts stay untouched; re-running the module and
reaching results republishes its contract wholesale.`,
		Args: cobra.ExactArgs(1),
		RunE: resetCommand,
	}

	addSessionFlags(cmd)

	return cmd
}

// resetCommand implements the reset command logic
func resetCommand(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}
	productID := args[0]
	if _, ok := products.ByID(productID); !ok {
		return fmt.Errorf("unknown product %q", productID)
	}

	s, err := openSession(cmd, userID)
	if err != nil {
		return err
	}
	defer s.close()

	modCfg, err := loadModule(s.cfg.ModulesDir, productID)
	if err != nil {
		return err
	}

	if err := s.store.ClearAnswers(userID, modCfg.StateKey); err != nil {
		return fmt.Errorf("clear answers for %s: %w", productID, err)
	}

	s.log.Successf("cleared %s answers for user %s", productID, userID)
	return nil
}
