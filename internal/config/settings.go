package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vvka-141/sfdeploy/internal/checksum"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Discovery names a change discovery strategy.
type Discovery string

const (
	DiscoveryFullScan Discovery = "fullscan"
	DiscoveryGitDiff  Discovery = "git"
	DiscoveryManifest Discovery = "manifest"
	DiscoveryExplicit Discovery = "explicit"
)

// ParseDiscovery validates a configured discovery strategy. Empty selects
// the manifest, which is what CI pipelines write before a deployment.
func ParseDiscovery(s string) (Discovery, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manifest":
		return DiscoveryManifest, nil
	case "fullscan", "full", "all":
		return DiscoveryFullScan, nil
	case "git", "gitdiff", "diff":
		return DiscoveryGitDiff, nil
	case "explicit":
		return DiscoveryExplicit, nil
	default:
		return "", fmt.Errorf("unknown discovery %q (want manifest, git, fullscan or explicit): %w", s, sfdeploy.ErrInvalidConfig)
	}
}

// DefaultFolders is the repository layout used when sfdeploy.yaml lists none.
func DefaultFolders() []sfdeploy.FolderMapping {
	return []sfdeploy.FolderMapping{
		{Path: "dbscripts2/Tables", Kind: sfdeploy.KindTable, Schema: "RPT"},
		{Path: "dbscripts2/StoredProcs", Kind: sfdeploy.KindStoredProc, Schema: "XFRM"},
		{Path: "dbscripts2/Tasks", Kind: sfdeploy.KindTask, Schema: "XFRM"},
	}
}

// Overrides carries command line values. Zero values mean "not given".
type Overrides struct {
	Discovery       string
	BaseRef         string
	HeadRef         string
	ManifestFile    string
	ContinueOnError bool
	RetentionDays   *int
	Timeout         time.Duration
	DryRun          bool
	Verbose         bool
	Files           []string
}

// Settings is the fully resolved configuration of one run.
type Settings struct {
	Deployment      sfdeploy.DeploymentConfig
	Connection      sfdeploy.ConnectionConfig
	Discovery       Discovery
	ManifestFile    string
	ManifestEnv     string
	BaseRef         string
	HeadRef         string
	ArchiveDir      string
	FingerprintFile string
	FingerprintMode checksum.Mode
	Files           []string

	// Environ is the merged .env and process environment the settings were
	// read from. The manifest resolver looks its variable up here.
	Environ map[string]string
}

// LookupEnv reads a variable from the merged environment.
func (s *Settings) LookupEnv(key string) (string, bool) {
	v, ok := s.Environ[key]
	return v, ok
}

// ForProject loads sfdeploy.yaml, .env and the environment for projectPath
// and resolves them together with the command line overrides.
// A missing sfdeploy.yaml is not an error.
func ForProject(projectPath string, flags Overrides) (*Settings, error) {
	file, err := Load(projectPath)
	if errors.Is(err, ErrConfigNotFound) {
		file = &ProjectConfig{}
	} else if err != nil {
		return nil, err
	}

	environ, err := LoadEnvironment(projectPath)
	if err != nil {
		return nil, err
	}
	vars, err := ParseEnv(environ)
	if err != nil {
		return nil, err
	}

	settings, err := Resolve(projectPath, file, vars, flags)
	if err != nil {
		return nil, err
	}
	settings.Environ = environ
	return settings, nil
}

// Resolve merges the configuration sources with precedence
// flag > environment > sfdeploy.yaml > defaults.
func Resolve(projectPath string, file *ProjectConfig, vars Env, flags Overrides) (*Settings, error) {
	var errs []error

	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("project path %s: %v: %w", projectPath, err, sfdeploy.ErrInvalidConfig)
	}

	s := &Settings{
		ManifestEnv: firstNonEmpty(file.ManifestEnv, sfdeploy.DefaultManifestEnv),
		BaseRef:     firstNonEmpty(flags.BaseRef, vars.BaseRef, file.BaseRef),
		HeadRef:     firstNonEmpty(flags.HeadRef, vars.HeadRef, file.HeadRef, sfdeploy.DefaultHeadRef),
		Files:       flags.Files,
	}
	s.ManifestFile = underRoot(root, firstNonEmpty(flags.ManifestFile, file.ManifestFile, sfdeploy.DefaultManifestFile))
	s.ArchiveDir = underRoot(root, firstNonEmpty(vars.ArchiveDir, file.ArchiveDir, sfdeploy.DefaultArchiveDir))
	s.FingerprintFile = underRoot(root, firstNonEmpty(file.FingerprintFile, sfdeploy.DefaultFingerprintFile))

	if len(flags.Files) > 0 {
		s.Discovery = DiscoveryExplicit
	} else if s.Discovery, err = ParseDiscovery(firstNonEmpty(flags.Discovery, vars.Discovery, file.Discovery)); err != nil {
		errs = append(errs, err)
	}
	if s.Discovery == DiscoveryGitDiff && s.BaseRef == "" {
		errs = append(errs, fmt.Errorf("git discovery needs a base ref (--base or SFDEPLOY_BASE_REF): %w", sfdeploy.ErrInvalidConfig))
	}
	if s.Discovery == DiscoveryExplicit && len(flags.Files) == 0 {
		errs = append(errs, fmt.Errorf("explicit discovery needs files on the command line: %w", sfdeploy.ErrInvalidConfig))
	}

	if s.FingerprintMode, err = checksum.ParseMode(firstNonEmpty(vars.FingerprintMode, file.FingerprintMode)); err != nil {
		errs = append(errs, fmt.Errorf("%v: %w", err, sfdeploy.ErrInvalidConfig))
	}

	policy := sfdeploy.ErrorPolicy(firstNonEmpty(vars.OnError, file.OnError, string(sfdeploy.PolicyFailFast)))
	if flags.ContinueOnError {
		policy = sfdeploy.PolicyContinue
	}

	retention := sfdeploy.DefaultRetentionDays
	switch {
	case flags.RetentionDays != nil:
		retention = *flags.RetentionDays
	case vars.RetentionDays != nil:
		retention = *vars.RetentionDays
	case file.RetentionDays != nil:
		retention = *file.RetentionDays
	}

	timeout := sfdeploy.DefaultTimeout
	switch {
	case flags.Timeout > 0:
		timeout = flags.Timeout
	case vars.Timeout > 0:
		timeout = vars.Timeout
	case file.Timeout != "":
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("timeout %q: %v: %w", file.Timeout, err, sfdeploy.ErrInvalidConfig))
		} else {
			timeout = d
		}
	}

	folders := file.Folders
	if len(folders) == 0 {
		folders = DefaultFolders()
	}

	conn, err := resolveConnection(root, file.Connection, vars)
	if err != nil {
		errs = append(errs, err)
	}
	s.Connection = conn

	s.Deployment = sfdeploy.DeploymentConfig{
		ProjectPath:   root,
		Folders:       folders,
		Target:        conn.Target(),
		ErrorPolicy:   policy,
		RetentionDays: retention,
		DryRun:        flags.DryRun,
		Timeout:       timeout,
		Verbose:       flags.Verbose,
	}
	if err := s.Deployment.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveConnection does not validate credentials; commands that never
// connect (plan, tasks) must work without them.
func resolveConnection(root string, file ConnectionConfig, vars Env) (sfdeploy.ConnectionConfig, error) {
	conn := sfdeploy.ConnectionConfig{
		Account:              firstNonEmpty(vars.Account, file.Account),
		User:                 firstNonEmpty(vars.User, file.User),
		Role:                 firstNonEmpty(vars.Role, file.Role),
		Warehouse:            firstNonEmpty(vars.Warehouse, file.Warehouse),
		Database:             firstNonEmpty(vars.Database, file.Database),
		Password:             vars.Password,
		PrivateKeyPEM:        vars.PrivateKey,
		PrivateKeyPassphrase: vars.PrivateKeyPassphrase,
	}

	switch {
	case vars.PrivateKeyPath != "":
		conn.PrivateKeyPath = vars.PrivateKeyPath
	case file.PrivateKeyPath != "":
		conn.PrivateKeyPath = underRoot(root, file.PrivateKeyPath)
	}

	if file.LoginTimeout != "" {
		d, err := time.ParseDuration(file.LoginTimeout)
		if err != nil {
			return conn, fmt.Errorf("login_timeout %q: %v: %w", file.LoginTimeout, err, sfdeploy.ErrInvalidConfig)
		}
		conn.LoginTimeout = d
	}

	method := firstNonEmpty(vars.Authenticator, file.AuthMethod)
	if method == "" && conn.Password == "" && (conn.PrivateKeyPath != "" || conn.PrivateKeyPEM != "") {
		method = "keypair"
	}
	auth, err := sfdeploy.ParseAuthMethod(method)
	if err != nil {
		return conn, err
	}
	conn.AuthMethod = auth
	return conn, nil
}

func underRoot(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
