package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/logging"
	"github.com/vvka-141/sfdeploy/internal/services"
)

var planCmd = &cobra.Command{
	Use:   "plan <project_path> [files...]",
	Short: "Show what deploy would apply, in order",
	Long: `Plan runs change discovery and fingerprint comparison exactly like deploy
and prints the execution order, including which task chains would be
suspended. It never connects to Snowflake and never writes the archive or
the fingerprint store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var planFlags discoveryFlagValues

func init() {
	rootCmd.AddCommand(planCmd)
	addDiscoveryFlags(planCmd, &planFlags)
}

func runPlan(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	flags := planFlags.overrides(args)
	flags.Verbose = verbose

	settings, err := loadSettings(args[0], flags)
	if err != nil {
		return err
	}
	store, err := loadStore(settings, uuid.NewString())
	if err != nil {
		return err
	}

	fileScanner := scanner.NewScanner()
	planner := services.NewPlanner(newResolver(settings, fileScanner), store, fileScanner,
		logging.NewConsoleLogger(verbose))

	plan, err := planner.Plan(context.Background(), settings.Deployment)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}
	return renderPlan(cmd.OutOrStdout(), plan)
}

// renderPlan writes the execution order of plan, one group per block.
func renderPlan(w io.Writer, plan *services.Plan) error {
	bw := &errWriter{w: w}

	bw.printf("%d to deploy, %d unchanged\n", len(plan.Steps), len(plan.Skipped))
	for _, g := range plan.Groups() {
		if g.Root == "" {
			st := g.Steps[0]
			bw.printf("  + %s (%s, %s)\n", st.Artifact.Path, st.Artifact.Kind, st.Artifact.Schema)
			continue
		}
		bw.printf("  chain %s.%s: suspend, apply %d, resume\n", g.Schema, g.Root, len(g.Steps))
		for _, st := range g.Steps {
			bw.printf("    + %s (task %s)\n", st.Artifact.Path, st.Task.Name)
		}
	}
	for _, a := range plan.Skipped {
		bw.printf("  = %s (unchanged)\n", a.Path)
	}
	for _, p := range plan.Unmapped {
		bw.printf("  ? %s (not under a configured folder)\n", p)
	}
	for _, p := range plan.Missing {
		bw.printf("  ? %s (file not found)\n", p)
	}
	return bw.err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
