package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for compass
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compass",
		Short: "Guided senior-care assessment and planning",
		Long: `Compass walks families through a journey of care products: a guided
care plan assessment, a cost planner and an advisor scheduler.

Each product is a stepped questionnaire defined in YAML. Completed
products publish contracts that unlock the next step of the journey
and feed downstream products.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewResetCommand())
	cmd.AddCommand(NewExportCommand())

	return cmd
}
