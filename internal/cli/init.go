package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/logging"
	"github.com/vvka-141/sfdeploy/internal/scaffold"
	"github.com/vvka-141/sfdeploy/internal/tui/wizards"
	"github.com/vvka-141/sfdeploy/internal/ui"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

var initFlags struct {
	defaults bool
}

var initCmd = &cobra.Command{
	Use:   "init <project_path>",
	Short: "Create a starter project",
	Long: `Init writes sfdeploy.yaml, an .env template and sample artifacts for
each folder (a table, a stored procedure and a two-task chain) into
project_path. The directory must be empty or absent.

On an interactive terminal a wizard asks for the connection block and the
target schema of each folder. Use --defaults, or run non-interactively, to
write placeholder values instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initFlags.defaults, "defaults", false, "Skip the wizard and write placeholder values")
}

// useInitWizard is replaced in tests.
var useInitWizard = func() bool { return ui.DetectMode() == ui.ModeInteractive }

var runInitWizard = wizards.RunInitWizard

func runInit(cmd *cobra.Command, args []string) error {
	target := args[0]
	logger := logging.NewConsoleLogger(getVerboseFlag(cmd))

	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	values := scaffold.DefaultValues(filepath.Base(abs))

	if !initFlags.defaults && useInitWizard() {
		result, err := runInitWizard(values)
		if err != nil {
			return fmt.Errorf("init wizard: %w", err)
		}
		if result.Cancelled {
			return fmt.Errorf("init cancelled: %w", sfdeploy.ErrApprovalDenied)
		}
		values = result.Values
	}

	if err := scaffold.NewScaffolder(logger).CreateProject(target, values); err != nil {
		return err
	}

	tree, err := scaffold.BuildFileTree(target)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, tree)
	fmt.Fprintf(out, "\nNext: copy .env.example to .env, then run\n  sfdeploy plan %s --discovery fullscan\n", target)
	return nil
}
