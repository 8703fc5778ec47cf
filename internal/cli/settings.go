package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/changeset"
	"github.com/vvka-141/sfdeploy/internal/checksum"
	"github.com/vvka-141/sfdeploy/internal/config"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/fingerprint"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// discoveryFlagValues are shared by deploy and plan.
type discoveryFlagValues struct {
	discovery string
	base      string
	head      string
	manifest  string
}

func addDiscoveryFlags(cmd *cobra.Command, v *discoveryFlagValues) {
	cmd.Flags().StringVar(&v.discovery, "discovery", "",
		"Change discovery: manifest|git|fullscan\n"+
			"Precedence: --discovery > $SFDEPLOY_DISCOVERY > sfdeploy.yaml > manifest.\n"+
			"Files given after the project path always win (explicit discovery).")
	cmd.Flags().StringVar(&v.base, "base", "",
		"Base ref for git discovery (e.g. origin/main), or $SFDEPLOY_BASE_REF")
	cmd.Flags().StringVar(&v.head, "head", "",
		"Head ref for git discovery (default HEAD)")
	cmd.Flags().StringVar(&v.manifest, "manifest", "",
		"Changed-files manifest for manifest discovery (default changed_files.txt)\n"+
			"$SFDEPLOY_CHANGED_FILES takes precedence when set")
}

func (v discoveryFlagValues) overrides(args []string) config.Overrides {
	return config.Overrides{
		Discovery:    v.discovery,
		BaseRef:      v.base,
		HeadRef:      v.head,
		ManifestFile: v.manifest,
		Files:        args[1:],
	}
}

// loadSettings resolves the configuration for the project in args[0].
func loadSettings(projectPath string, flags config.Overrides) (*config.Settings, error) {
	info, err := os.Stat(projectPath)
	if err != nil {
		return nil, fmt.Errorf("project path %s: %w", projectPath, sfdeploy.ErrUsage)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory: %w", projectPath, sfdeploy.ErrUsage)
	}
	return config.ForProject(projectPath, flags)
}

// newResolver builds the change resolver selected by settings.
func newResolver(settings *config.Settings, s *scanner.Scanner) sfdeploy.ChangeResolver {
	root := settings.Deployment.ProjectPath
	switch settings.Discovery {
	case config.DiscoveryFullScan:
		return changeset.NewFullScan(s, root, settings.Deployment.Folders)
	case config.DiscoveryGitDiff:
		return changeset.NewGitDiff(changeset.ExecRunner{}, root, settings.BaseRef, settings.HeadRef)
	case config.DiscoveryExplicit:
		return changeset.NewExplicit(settings.Files)
	default:
		return changeset.NewManifest(settings.ManifestFile, settings.ManifestEnv).WithLookupEnv(settings.LookupEnv)
	}
}

// loadStore opens the fingerprint store with the configured digest.
func loadStore(settings *config.Settings, runID string) (*fingerprint.Store, error) {
	return fingerprint.Load(settings.FingerprintFile,
		fingerprint.WithDigest(checksum.Digest(checksum.New(), settings.FingerprintMode)),
		fingerprint.WithRunID(runID),
	)
}

func retentionOverride(cmd *cobra.Command, days int) *int {
	if !cmd.Flags().Changed("retention-days") {
		return nil
	}
	return &days
}

func timeoutOverride(cmd *cobra.Command, timeout time.Duration) time.Duration {
	if !cmd.Flags().Changed("timeout") {
		return 0
	}
	return timeout
}
