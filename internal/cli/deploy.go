package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/archive"
	"github.com/vvka-141/sfdeploy/internal/db"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/fingerprint"
	"github.com/vvka-141/sfdeploy/internal/logging"
	"github.com/vvka-141/sfdeploy/internal/services"
	"github.com/vvka-141/sfdeploy/internal/ui"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <project_path> [files...]",
	Short: "Deploy changed SQL artifacts to Snowflake",
	Long: `Deploy applies every changed table, stored procedure and task definition
under project_path to the configured Snowflake database.

Changed files are discovered from the manifest (changed_files.txt or
$SFDEPLOY_CHANGED_FILES), from a git diff (--discovery git --base REF), or
from a full scan of the artifact folders. Files listed after project_path
are deployed regardless of the discovery setting.

Artifacts whose content matches their last successful deployment are
skipped. The previous content of a changed artifact is archived before it
is applied, and archives older than the retention window are removed at
the end of the run.

Connection settings are read from the environment or a .env file in
project_path:
  SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER, SNOWFLAKE_DATABASE (required)
  SNOWFLAKE_PASSWORD, or SNOWFLAKE_PRIVATE_KEY_PATH for key pair auth
  SNOWFLAKE_ROLE, SNOWFLAKE_WAREHOUSE (optional)

Examples:
  # Deploy what CI listed in changed_files.txt
  sfdeploy deploy ./repo

  # Deploy the changes between origin/main and HEAD
  sfdeploy deploy ./repo --discovery git --base origin/main

  # Deploy two files, keep going past failures
  sfdeploy deploy ./repo dbscripts2/Tables/ORDERS.sql dbscripts2/Tasks/LOAD_ORDERS.sql --continue-on-error

  # Show what would be applied without connecting
  sfdeploy deploy ./repo --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeploy,
}

type deployFlagValues struct {
	discoveryFlagValues
	dryRun          bool
	continueOnError bool
	yes             bool
	timeout         time.Duration
	retentionDays   int
}

var deployFlags deployFlagValues

func init() {
	rootCmd.AddCommand(deployCmd)

	addDiscoveryFlags(deployCmd, &deployFlags.discoveryFlagValues)
	deployCmd.Flags().BoolVar(&deployFlags.dryRun, "dry-run", false,
		"Report what would be deployed without connecting, archiving or recording fingerprints")
	deployCmd.Flags().BoolVar(&deployFlags.continueOnError, "continue-on-error", false,
		"Keep deploying after an artifact fails (default: stop at the first failure)")
	deployCmd.Flags().BoolVar(&deployFlags.yes, "yes", false,
		"Skip the confirmation prompt (a short countdown is shown at a terminal)")
	deployCmd.Flags().DurationVar(&deployFlags.timeout, "timeout", 30*time.Minute,
		"Timeout for the whole deployment run")
	deployCmd.Flags().IntVar(&deployFlags.retentionDays, "retention-days", 7,
		"Days to keep archived artifact versions")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	flags := deployFlags.overrides(args)
	flags.DryRun = deployFlags.dryRun
	flags.ContinueOnError = deployFlags.continueOnError
	flags.Verbose = verbose
	flags.RetentionDays = retentionOverride(cmd, deployFlags.retentionDays)
	flags.Timeout = timeoutOverride(cmd, deployFlags.timeout)

	settings, err := loadSettings(args[0], flags)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	runID := uuid.NewString()

	if !settings.Deployment.DryRun {
		lock, err := fingerprint.Acquire(settings.FingerprintFile, runID)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("%v", err)
			}
		}()
	}

	store, err := loadStore(settings, runID)
	if err != nil {
		return err
	}

	fileScanner := scanner.NewScanner()
	connector, err := db.NewConnector(&settings.Connection, logger)
	if err != nil {
		return err
	}

	svc := services.NewDeploymentService(
		connector,
		newResolver(settings, fileScanner),
		store,
		archive.New(settings.ArchiveDir),
		ui.NewApprover(ui.DetectMode(), deployFlags.yes),
		logger,
		fileScanner,
		services.WithRunID(runID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Verbose("Run %s: discovery=%s target=%s", runID, settings.Discovery, settings.Deployment.Target)

	if _, err := svc.Deploy(ctx, settings.Deployment); err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}
	return nil
}
