package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/answers"
	"github.com/meredith/compass/internal/engine"
	"github.com/meredith/compass/internal/models"
	"github.com/meredith/compass/internal/parser"
	"github.com/meredith/compass/internal/products"
	"github.com/meredith/compass/internal/scoring"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [product-id]",
		Short: "Run a product's questionnaire",
		Long: `Run walks the user through one product's stepped questionnaire.

Without a product id the journey's recommended next product is run.
Answers are saved after every step, so an interrupted session resumes
where it left off. Reaching the results step computes the outcome and
publishes the product's contract, which may unlock later products.

Examples:
  compass run --user 4f7c...          # run the recommended next product
  compass run gcp --user 4f7c...      # run the guided care plan
  compass run --new-user              # mint a user id and start the journey`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommand,
	}

	addSessionFlags(cmd)
	cmd.Flags().Bool("new-user", false, "Mint a fresh user id and start a new journey")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	newUser, _ := cmd.Flags().GetBool("new-user")
	switch {
	case userID == "" && !newUser:
		return fmt.Errorf("either --user or --new-user is required")
	case userID != "" && newUser:
		return fmt.Errorf("cannot use both --user and --new-user")
	case newUser:
		userID = uuid.NewString()
		fmt.Fprintf(cmd.OutOrStdout(), "Starting journey for new user %s\n", userID)
	}

	s, err := openSession(cmd, userID)
	if err != nil {
		return err
	}
	defer s.close()

	productID := s.hub.Ledger().RecommendedNext
	if len(args) == 1 {
		productID = args[0]
	}
	if productID == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Journey complete; nothing left to run.")
		return nil
	}

	product, ok := products.ByID(productID)
	if !ok {
		return fmt.Errorf("unknown product %q", productID)
	}
	if !s.hub.Ledger().IsUnlocked(productID) {
		return fmt.Errorf("product %s is locked; complete %s first",
			productID, strings.Join(product.Requires, ", "))
	}

	modCfg, err := loadModule(s.cfg.ModulesDir, productID)
	if err != nil {
		return err
	}

	rec, err := s.store.Load(userID)
	if err != nil {
		return fmt.Errorf("load saved answers: %w", err)
	}
	var existing answers.Set
	if rec != nil {
		existing = rec.Answers[modCfg.StateKey]
	}

	extractor := scoring.New(s.reg, s.log)
	runner, err := engine.New(modCfg, extractor, s.store.AnswerSaver(userID), existing)
	if err != nil {
		return fmt.Errorf("start %s: %w", productID, err)
	}

	p := &prompt{
		in:  bufio.NewScanner(cmd.InOrStdin()),
		out: cmd.OutOrStdout(),
	}

	fmt.Fprintf(p.out, "\n=== %s ===\n", modCfg.Title)
	if err := p.walk(runner); err != nil {
		return err
	}

	out := runner.Outcome()
	printOutcome(p.out, modCfg, out)

	if err := products.Publish(s.hub, productID, out, runner.Answers()); err != nil {
		return fmt.Errorf("publish %s: %w", productID, err)
	}
	s.log.Successf("%s published for user %s", productID, userID)

	if next := s.hub.Ledger().RecommendedNext; next != "" {
		if def, ok := products.ByID(next); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "\nNext up: %s (compass run %s --user %s)\n",
				def.Title, next, userID)
		}
	}
	return nil
}

// loadModule loads the module definition backing a product.
func loadModule(modulesDir, productID string) (*models.ModuleConfig, error) {
	modules, err := parser.LoadDir(modulesDir)
	if err != nil {
		return nil, fmt.Errorf("load modules from %s: %w", modulesDir, err)
	}
	modCfg, ok := modules[productID]
	if !ok {
		return nil, fmt.Errorf("no module definition for product %s in %s", productID, modulesDir)
	}
	return modCfg, nil
}

// prompt drives the interactive question loop over a scanner so tests
// can script it.
type prompt struct {
	in  *bufio.Scanner
	out io.Writer
}

// walk advances the runner step by step until the results step.
// Typing "back" returns to the previous step.
func (p *prompt) walk(r *engine.Runner) error {
	for !r.AtResults() {
		step := r.CurrentStep()
		fmt.Fprintf(p.out, "\n-- %s", step.Title)
		if step.Subtitle != "" {
			fmt.Fprintf(p.out, " (%s)", step.Subtitle)
		}
		fmt.Fprintf(p.out, " [%.0f%%]\n", r.Progress()*100)

		goBack, err := p.askStep(r, step)
		if err != nil {
			return err
		}
		if goBack {
			if err := r.Previous(); err != nil {
				return err
			}
			continue
		}

		if err := r.Next(); err != nil {
			var verr *engine.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(p.out, "Please answer: %s\n", strings.Join(verr.Missing, ", "))
				continue
			}
			return err
		}
	}
	return nil
}

// askStep prompts every visible field of the step. Returns true when
// the user asked to go back.
func (p *prompt) askStep(r *engine.Runner, step *models.StepDef) (bool, error) {
	for _, f := range r.VisibleFields(step) {
		back, err := p.askField(r, f)
		if err != nil || back {
			return back, err
		}
	}
	return false, nil
}

func (p *prompt) askField(r *engine.Runner, f *models.FieldDef) (bool, error) {
	for {
		fmt.Fprintf(p.out, "\n%s", f.Label)
		if !f.Required {
			fmt.Fprint(p.out, " (optional, enter to skip)")
		}
		fmt.Fprintln(p.out)
		for i, opt := range f.Options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt.Label)
		}

		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			return false, fmt.Errorf("input closed before %s was answered", f.Key)
		}
		line := strings.TrimSpace(p.in.Text())

		if line == "back" {
			return true, nil
		}
		if line == "" {
			if !f.Required {
				r.ClearAnswer(f.Key)
				return false, nil
			}
			fmt.Fprintln(p.out, "This question is required.")
			continue
		}

		value, err := parseInput(f, line)
		if err == nil {
			err = r.SetAnswer(f.Key, value)
		}
		if err != nil {
			fmt.Fprintf(p.out, "Invalid answer: %v\n", err)
			continue
		}
		return false, nil
	}
}

// parseInput converts one input line into the field's native value.
// Select fields accept the option number or its value.
func parseInput(f *models.FieldDef, line string) (any, error) {
	switch f.Type {
	case models.FieldSingleSelect:
		opt, err := resolveOption(f, line)
		if err != nil {
			return nil, err
		}
		return opt.Value, nil

	case models.FieldMultiSelect:
		parts := strings.Split(line, ",")
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			opt, err := resolveOption(f, strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			values = append(values, opt.Value)
		}
		return values, nil

	case models.FieldNumber:
		n, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", line)
		}
		return n, nil

	case models.FieldBool:
		switch strings.ToLower(line) {
		case "y", "yes", "true":
			return true, nil
		case "n", "no", "false":
			return false, nil
		}
		return nil, fmt.Errorf("answer yes or no")

	default:
		return line, nil
	}
}

func resolveOption(f *models.FieldDef, token string) (models.Option, error) {
	if n, err := strconv.Atoi(token); err == nil {
		if n < 1 || n > len(f.Options) {
			return models.Option{}, fmt.Errorf("choose between 1 and %d", len(f.Options))
		}
		return f.Options[n-1], nil
	}
	if opt, ok := f.OptionByValue(token); ok {
		return opt, nil
	}
	return models.Option{}, fmt.Errorf("no option %q", token)
}

// printOutcome renders the computed result for the console.
func printOutcome(w io.Writer, cfg *models.ModuleConfig, out *models.Outcome) {
	if out == nil {
		fmt.Fprintln(w, "\nNo outcome was computed.")
		return
	}
	fmt.Fprintf(w, "\n=== Results ===\n")

	label := out.Tier
	for _, t := range cfg.Scoring.Tiers {
		if t.ID == out.Tier && t.Label != "" {
			label = t.Label
		}
	}
	fmt.Fprintf(w, "Recommendation: %s (score %d, confidence %.0f%%)\n",
		label, out.TierScore, out.Confidence*100)

	if len(out.Rationale) > 0 {
		fmt.Fprintln(w, "\nWhy:")
		for _, r := range out.Rationale {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}
