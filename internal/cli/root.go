package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sfdeploy",
	Short: "Change-driven SQL deployment for Snowflake",
	Long: `sfdeploy applies version-controlled SQL artifacts (tables, stored procedures,
scheduled tasks) to a Snowflake account.

Only artifacts whose content changed since their last successful deployment
are applied. Previous versions are archived first. Task chains are suspended
at their root while task definitions are replaced, then resumed.

Exit Codes:
  0  - Success (including nothing to deploy)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration, credentials or key material
  11 - Snowflake connection failed
  12 - User declined the deployment
  13 - SQL execution failed
  14 - Change discovery failed
  15 - Circular task dependency`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
