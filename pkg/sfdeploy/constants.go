package sfdeploy

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success (including a legitimate no-op run)
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess            = 0  // Deployment completed or nothing to deploy
	ExitGeneralError       = 1  // Unknown or unclassified error
	ExitUsageError         = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic              = 3  // Internal panic (unexpected crash)
	ExitConfigError        = 10 // Invalid configuration, credentials or key material
	ExitConnectionError    = 11 // Failed to open a warehouse session
	ExitApprovalDenied     = 12 // User declined the deployment
	ExitExecutionFailed    = 13 // At least one artifact failed to apply
	ExitDiscoveryFailed    = 14 // Change discovery itself failed
	ExitCircularDependency = 15 // Task dependency graph contains a cycle
)

const (
	// DefaultRetentionDays is the archive retention window used when none is configured.
	DefaultRetentionDays = 7

	// DefaultArchiveDir is the archive location relative to the project directory.
	DefaultArchiveDir = "archive"

	// DefaultFingerprintFile is the fingerprint store location relative to the project directory.
	DefaultFingerprintFile = ".sfdeploy/fingerprints.yaml"

	// DefaultManifestFile is the changed-file manifest written by CI before a deployment.
	DefaultManifestFile = "changed_files.txt"

	// DefaultManifestEnv is the environment variable consulted before the manifest file.
	DefaultManifestEnv = "SFDEPLOY_CHANGED_FILES"

	// DefaultHeadRef is the git ref compared against the base ref in diff discovery.
	DefaultHeadRef = "HEAD"

	// DefaultTimeout bounds a whole deployment run.
	DefaultTimeout = 30 * time.Minute

	// DefaultAutoApprovalCountdown is how long --yes waits at a terminal before deploying.
	DefaultAutoApprovalCountdown = 3 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 250 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxErrorPreviewLength is the maximum number of characters of a failed
	// statement batch echoed back in error messages.
	MaxErrorPreviewLength = 200

	// SQLExtension is the only file extension considered an artifact.
	SQLExtension = ".sql"

	// ApplicationName is reported to Snowflake as the client application.
	ApplicationName = "sfdeploy"
)
