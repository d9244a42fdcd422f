package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/report"
)

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's journey report as HTML",
		Long: `Export renders the user's journey (completed assessments, cost
estimate, appointment) into a single HTML report.

The report is written to the configured report directory, or to the
path given with --output. The write is atomic: an existing report is
only replaced once the new one is fully written.`,
		Args: cobra.NoArgs,
		RunE: exportCommand,
	}

	addSessionFlags(cmd)
	cmd.Flags().String("output", "", "Report file path (default: <report dir>/<user>.html)")

	return cmd
}

// exportCommand implements the export command logic
func exportCommand(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, userID)
	if err != nil {
		return err
	}
	defer s.close()

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = filepath.Join(s.cfg.ReportDir, userID+".html")
	}

	gen := report.NewGenerator()
	if err := gen.Export(path, userID, s.hub, time.Now()); err != nil {
		return err
	}

	s.log.Successf("report written to %s", path)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
