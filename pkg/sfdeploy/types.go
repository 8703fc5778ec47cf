package sfdeploy

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// ArtifactKind classifies a SQL artifact by what it defines.
type ArtifactKind string

const (
	KindTable      ArtifactKind = "table"
	KindStoredProc ArtifactKind = "stored_proc"
	KindTask       ArtifactKind = "task"
)

// IsValid returns true if the kind is one of the defined artifact kinds.
func (k ArtifactKind) IsValid() bool {
	switch k {
	case KindTable, KindStoredProc, KindTask:
		return true
	default:
		return false
	}
}

// Artifact is a single SQL definition file discovered for this run.
// Path is repository-relative with forward slashes and is the identity key
// used by the fingerprint store.
type Artifact struct {
	Path    string
	Kind    ArtifactKind
	Schema  string
	Content string
}

// BaseName returns the file name without directory or .sql extension.
func (a Artifact) BaseName() string {
	base := path.Base(a.Path)
	if strings.EqualFold(path.Ext(base), SQLExtension) {
		base = base[:len(base)-len(SQLExtension)]
	}
	return base
}

// FingerprintRecord is the last successfully deployed state of an artifact.
type FingerprintRecord struct {
	Hash       string    `yaml:"hash"`
	Content    string    `yaml:"content,omitempty"`
	DeployedAt time.Time `yaml:"deployed_at"`
}

// ArchiveEntry is an immutable snapshot of an artifact's previous content.
type ArchiveEntry struct {
	Artifact  string
	Path      string
	CreatedAt time.Time
}

// FolderMapping binds a repository folder to an artifact kind and target schema.
type FolderMapping struct {
	Path   string       `yaml:"path"`
	Kind   ArtifactKind `yaml:"kind"`
	Schema string       `yaml:"schema"`
}

// Contains reports whether the repository-relative path lives under this folder.
func (m FolderMapping) Contains(p string) bool {
	folder := strings.TrimSuffix(path.Clean(m.Path), "/")
	if folder == "." || folder == "" {
		return true
	}
	return strings.HasPrefix(p, folder+"/")
}

// ClassifyPath returns the mapping that owns p. When folders nest, the most
// specific (longest) folder wins.
func ClassifyPath(folders []FolderMapping, p string) (FolderMapping, bool) {
	var best FolderMapping
	found := false
	for _, m := range folders {
		if !m.Contains(p) {
			continue
		}
		if !found || len(path.Clean(m.Path)) > len(path.Clean(best.Path)) {
			best = m
			found = true
		}
	}
	return best, found
}

// ErrorPolicy decides what happens to the remaining queue after an artifact fails.
type ErrorPolicy string

const (
	// PolicyFailFast aborts the remaining queue on the first failure.
	PolicyFailFast ErrorPolicy = "fail-fast"
	// PolicyContinue logs the failure and keeps deploying.
	PolicyContinue ErrorPolicy = "continue"
)

// IsValid returns true if the policy is a defined value.
func (p ErrorPolicy) IsValid() bool {
	return p == PolicyFailFast || p == PolicyContinue
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// IsValidIdentifier reports whether s is a plain (unquoted) Snowflake identifier,
// optionally qualified by a database name.
func IsValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// DeploymentConfig contains all parameters needed for a deployment run.
type DeploymentConfig struct {
	// ProjectPath is the repository root; artifact paths are relative to it.
	ProjectPath string

	// Folders maps repository folders to artifact kinds and schemas.
	Folders []FolderMapping

	// Target names the warehouse destination in logs and approval prompts.
	Target string

	// ErrorPolicy selects fail-fast or continue-on-error.
	ErrorPolicy ErrorPolicy

	// RetentionDays is the archive retention window for the end-of-run sweep.
	RetentionDays int

	// DryRun reports the plan without archiving, executing or committing.
	DryRun bool

	// Timeout is the global timeout for the entire run.
	Timeout time.Duration

	// Verbose enables detailed logging.
	Verbose bool
}

// Validate checks if the DeploymentConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *DeploymentConfig) Validate() error {
	var errs []error

	if c.ProjectPath == "" {
		errs = append(errs, fmt.Errorf("ProjectPath is required: %w", ErrInvalidConfig))
	}

	if len(c.Folders) == 0 {
		errs = append(errs, fmt.Errorf("at least one artifact folder is required: %w", ErrInvalidConfig))
	}

	seen := make(map[string]bool, len(c.Folders))
	for _, f := range c.Folders {
		if f.Path == "" {
			errs = append(errs, fmt.Errorf("folder path is required: %w", ErrInvalidConfig))
			continue
		}
		clean := path.Clean(f.Path)
		if seen[clean] {
			errs = append(errs, fmt.Errorf("folder %q listed twice: %w", f.Path, ErrInvalidConfig))
		}
		seen[clean] = true
		if !f.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("folder %q: unknown kind %q (want table, stored_proc or task): %w", f.Path, f.Kind, ErrInvalidConfig))
		}
		if !IsValidIdentifier(f.Schema) {
			errs = append(errs, fmt.Errorf("folder %q: invalid schema identifier %q: %w", f.Path, f.Schema, ErrInvalidConfig))
		}
	}

	if !c.ErrorPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown error policy %q: %w", c.ErrorPolicy, ErrInvalidConfig))
	}

	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("retention days cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// TaskFolders returns the folders holding task artifacts.
func (c *DeploymentConfig) TaskFolders() []FolderMapping {
	var out []FolderMapping
	for _, f := range c.Folders {
		if f.Kind == KindTask {
			out = append(out, f)
		}
	}
	return out
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodPassword AuthMethod = iota // User/password
	AuthMethodKeyPair                    // RSA key pair (JWT)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodPassword:
		return "password"
	case AuthMethodKeyPair:
		return "keypair"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodPassword && a <= AuthMethodKeyPair
}

// ParseAuthMethod converts a configuration value into an AuthMethod.
// An empty string selects password authentication.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "password", "snowflake":
		return AuthMethodPassword, nil
	case "keypair", "key-pair", "jwt", "snowflake_jwt":
		return AuthMethodKeyPair, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// ConnectionConfig holds everything needed to open a warehouse session.
type ConnectionConfig struct {
	Account   string
	User      string
	Role      string
	Warehouse string
	Database  string

	AuthMethod AuthMethod

	// Password authentication
	Password string

	// Key pair authentication. PrivateKeyPEM wins over PrivateKeyPath.
	PrivateKeyPath       string
	PrivateKeyPEM        string
	PrivateKeyPassphrase string

	LoginTimeout time.Duration
}

// Validate checks the connection settings for the selected auth method.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.Account == "" {
		errs = append(errs, fmt.Errorf("account is required (set SNOWFLAKE_ACCOUNT): %w", ErrInvalidConfig))
	}
	if c.User == "" {
		errs = append(errs, fmt.Errorf("user is required (set SNOWFLAKE_USER): %w", ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database is required (set SNOWFLAKE_DATABASE): %w", ErrInvalidConfig))
	}

	switch c.AuthMethod {
	case AuthMethodPassword:
		if c.Password == "" {
			errs = append(errs, fmt.Errorf("password is required for password authentication (set SNOWFLAKE_PASSWORD): %w", ErrInvalidConfig))
		}
	case AuthMethodKeyPair:
		if c.PrivateKeyPath == "" && c.PrivateKeyPEM == "" {
			errs = append(errs, fmt.Errorf("private key is required for key pair authentication (set SNOWFLAKE_PRIVATE_KEY_PATH): %w", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	return errors.Join(errs...)
}

// Target returns a printable destination such as "ACME-XY123/ANALYTICS".
func (c *ConnectionConfig) Target() string {
	return c.Account + "/" + c.Database
}

// TaskState is the live running state of a scheduled task in the warehouse.
type TaskState int

const (
	TaskStateAbsent    TaskState = iota // Task does not exist yet
	TaskStateSuspended                  // Task exists and is suspended
	TaskStateStarted                    // Task exists and is running on schedule
)

func (s TaskState) String() string {
	switch s {
	case TaskStateAbsent:
		return "absent"
	case TaskStateSuspended:
		return "suspended"
	case TaskStateStarted:
		return "started"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Outcome is the final state of an artifact within one run.
type Outcome int

const (
	OutcomePending     Outcome = iota // Not reached (fail-fast abort or cancellation)
	OutcomeSkipped                    // Fingerprint unchanged
	OutcomeDeployed                   // Applied and committed
	OutcomeFailed                     // Rejected by the warehouse
	OutcomeWouldDeploy                // Changed, dry run
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeployed:
		return "deployed"
	case OutcomeFailed:
		return "failed"
	case OutcomeWouldDeploy:
		return "would deploy"
	default:
		return fmt.Sprintf("Unknown(%d)", o)
	}
}

// ArtifactResult records what happened to one artifact.
type ArtifactResult struct {
	Artifact Artifact
	Outcome  Outcome
	Archive  string // archive entry path, empty if none
	Root     string // task chain root, tasks only
	Err      error
}

// Summary describes a finished deployment run.
type Summary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Results        []ArtifactResult
	ArchivesSwept  int
	NothingChanged bool
}

// Count returns how many results have the given outcome.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Failed reports whether any artifact failed.
func (s *Summary) Failed() bool {
	return s.Count(OutcomeFailed) > 0
}
