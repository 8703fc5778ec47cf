package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/archive"
	"github.com/vvka-141/sfdeploy/internal/config"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage archived artifact versions",
}

var archiveSweepCmd = &cobra.Command{
	Use:   "sweep <project_path>",
	Short: "Remove archived versions older than the retention window",
	Long: `Sweep deletes archive entries whose timestamp is older than the retention
window. Deploy runs the same sweep at the end of every run; use this
command to clean up without deploying.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchiveSweep,
}

var archiveSweepRetention int

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveSweepCmd)
	archiveSweepCmd.Flags().IntVar(&archiveSweepRetention, "retention-days", 7,
		"Days to keep archived artifact versions")
}

func runArchiveSweep(cmd *cobra.Command, args []string) error {
	flags := configOverridesFor(getVerboseFlag(cmd))
	flags.RetentionDays = retentionOverride(cmd, archiveSweepRetention)

	settings, err := loadSettings(args[0], flags)
	if err != nil {
		return err
	}

	removed, err := archive.New(settings.ArchiveDir).Sweep(settings.Deployment.RetentionDays)
	if err != nil {
		return fmt.Errorf("archive sweep failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d archived version(s) older than %d day(s) from %s\n",
		removed, settings.Deployment.RetentionDays, settings.ArchiveDir)
	return nil
}

// configOverridesFor builds overrides for commands that ignore discovery.
func configOverridesFor(verbose bool) config.Overrides {
	return config.Overrides{Verbose: verbose, Discovery: string(config.DiscoveryFullScan)}
}
