package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/parser"
	"github.com/meredith/compass/internal/registry"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [modules-dir]",
		Short: "Validate module definition files",
		Long: `Validate checks every module definition in a directory: structure,
field types, predicate references, flag ids against the shared
catalog, and scoring tiers.

Warnings (exclusive flag pairs reachable together, undeclared scoring
categories) do not fail the command; errors do.

Examples:
  compass validate                # validate the configured modules dir
  compass validate ./modules
  compass validate --watch        # re-validate on every file change`,
		Args: cobra.MaximumNArgs(1),
		RunE: validateCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: <compass home>/config.yaml)")
	cmd.Flags().Bool("watch", false, "Keep running and re-validate when module files change")

	return cmd
}

// validateCommand implements the validate command logic
func validateCommand(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir = cfg.ModulesDir
	}

	// Linting is always strict about flag ids; leniency is a runtime
	// resilience setting, not an authoring one.
	reg := registry.New(false)

	out := cmd.OutOrStdout()
	failed, err := validateDir(out, dir, reg)
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		if failed {
			return fmt.Errorf("validation failed")
		}
		return nil
	}

	return watchDir(out, dir, reg)
}

// validateDir validates every module in dir and prints a report.
// Returns true when any module has errors.
func validateDir(out io.Writer, dir string, reg *registry.Registry) (bool, error) {
	modules, err := parser.LoadDir(dir)
	if err != nil {
		return false, fmt.Errorf("load modules from %s: %w", dir, err)
	}
	if len(modules) == 0 {
		fmt.Fprintf(out, "No module files found in %s\n", dir)
		return false, nil
	}

	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := false
	for _, id := range ids {
		issues := parser.ValidateModule(modules[id], reg)
		if len(issues) == 0 {
			fmt.Fprintf(out, "OK    %s\n", id)
			continue
		}
		if parser.HasErrors(issues) {
			failed = true
			fmt.Fprintf(out, "FAIL  %s\n", id)
		} else {
			fmt.Fprintf(out, "WARN  %s\n", id)
		}
		for _, issue := range issues {
			fmt.Fprintf(out, "      [%s] %s\n", issue.Severity, issue.Message)
		}
	}
	return failed, nil
}

// watchDir re-validates on every debounced module file change until
// interrupted.
func watchDir(out io.Writer, dir string, reg *registry.Registry) error {
	w, err := parser.NewWatcher(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	fmt.Fprintf(out, "Watching %s for changes (ctrl-c to stop)\n", dir)
	for {
		select {
		case path, ok := <-w.Changes():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "\n%s changed:\n", filepath.Base(path))
			if _, err := validateDir(out, dir, reg); err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
			}
		case err, ok := <-w.Errors():
			if ok && err != nil {
				fmt.Fprintf(out, "watch error: %v\n", err)
			}
		case <-sig:
			return nil
		}
	}
}
