package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sfdeploy/internal/checksum"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `folders:
  - path: sql/tables
    kind: table
    schema: RPT
  - path: sql/tasks
    kind: task
    schema: XFRM

discovery: git
base_ref: origin/main
archive_dir: history
retention_days: 14
fingerprint_mode: normalized
on_error: continue

connection:
  account: acme-xy123
  user: DEPLOYER
  role: SYSADMIN
  warehouse: DEPLOY_WH
  database: ANALYTICS
  auth_method: keypair
  private_key_path: keys/rsa_key.p8

timeout: 10m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Len(t, cfg.Folders, 2)
	assert.Equal(t, sfdeploy.FolderMapping{Path: "sql/tasks", Kind: sfdeploy.KindTask, Schema: "XFRM"}, cfg.Folders[1])
	assert.Equal(t, "git", cfg.Discovery)
	assert.Equal(t, "origin/main", cfg.BaseRef)
	assert.Equal(t, "history", cfg.ArchiveDir)
	require.NotNil(t, cfg.RetentionDays)
	assert.Equal(t, 14, *cfg.RetentionDays)
	assert.Equal(t, "normalized", cfg.FingerprintMode)
	assert.Equal(t, "continue", cfg.OnError)
	assert.Equal(t, "acme-xy123", cfg.Connection.Account)
	assert.Equal(t, "DEPLOYER", cfg.Connection.User)
	assert.Equal(t, "SYSADMIN", cfg.Connection.Role)
	assert.Equal(t, "DEPLOY_WH", cfg.Connection.Warehouse)
	assert.Equal(t, "ANALYTICS", cfg.Connection.Database)
	assert.Equal(t, "keypair", cfg.Connection.AuthMethod)
	assert.Equal(t, "keys/rsa_key.p8", cfg.Connection.PrivateKeyPath)
	assert.Equal(t, "10m", cfg.Timeout)
}

func TestLoad_MinimalYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("discovery: fullscan\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Folders)
	assert.Nil(t, cfg.RetentionDays)
	assert.Equal(t, "fullscan", cfg.Discovery)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{invalid"), 0644))

	cfg, err := Load(dir)
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
	assert.Nil(t, cfg)
}

func TestParseEnv(t *testing.T) {
	vars, err := ParseEnv(map[string]string{
		"SNOWFLAKE_ACCOUNT":       "acme-xy123",
		"SNOWFLAKE_USER":          "DEPLOYER",
		"SNOWFLAKE_PASSWORD":      "pw",
		"SFDEPLOY_RETENTION_DAYS": "3",
		"SFDEPLOY_TIMEOUT":        "90s",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme-xy123", vars.Account)
	assert.Equal(t, "DEPLOYER", vars.User)
	assert.Equal(t, "pw", vars.Password)
	require.NotNil(t, vars.RetentionDays)
	assert.Equal(t, 3, *vars.RetentionDays)
	assert.Equal(t, 90*time.Second, vars.Timeout)
	assert.Empty(t, vars.Database)
}

func TestParseEnv_BadValue(t *testing.T) {
	_, err := ParseEnv(map[string]string{"SFDEPLOY_RETENTION_DAYS": "a week"})
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
}

func TestLoadEnvironment_ProcessWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := "SFDEPLOY_TEST_FROM_FILE=file\nSFDEPLOY_TEST_SHADOWED=file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFileName), []byte(dotenv), 0600))
	t.Setenv("SFDEPLOY_TEST_SHADOWED", "process")

	environ, err := LoadEnvironment(dir)
	require.NoError(t, err)

	assert.Equal(t, "file", environ["SFDEPLOY_TEST_FROM_FILE"])
	assert.Equal(t, "process", environ["SFDEPLOY_TEST_SHADOWED"])
	_, leaked := os.LookupEnv("SFDEPLOY_TEST_FROM_FILE")
	assert.False(t, leaked, ".env values must not be exported to the process")
}

func TestLoadEnvironment_NoDotEnv(t *testing.T) {
	t.Setenv("SFDEPLOY_TEST_ONLY_PROCESS", "yes")

	environ, err := LoadEnvironment(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "yes", environ["SFDEPLOY_TEST_ONLY_PROCESS"])
}

func TestResolve_Defaults(t *testing.T) {
	root := t.TempDir()

	s, err := Resolve(root, &ProjectConfig{}, Env{}, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DiscoveryManifest, s.Discovery)
	assert.Equal(t, filepath.Join(root, sfdeploy.DefaultManifestFile), s.ManifestFile)
	assert.Equal(t, sfdeploy.DefaultManifestEnv, s.ManifestEnv)
	assert.Equal(t, filepath.Join(root, sfdeploy.DefaultArchiveDir), s.ArchiveDir)
	assert.Equal(t, filepath.Join(root, ".sfdeploy", "fingerprints.yaml"), s.FingerprintFile)
	assert.Equal(t, checksum.ModeRaw, s.FingerprintMode)
	assert.Equal(t, sfdeploy.DefaultHeadRef, s.HeadRef)

	d := s.Deployment
	assert.Equal(t, root, d.ProjectPath)
	assert.Equal(t, DefaultFolders(), d.Folders)
	assert.Equal(t, sfdeploy.PolicyFailFast, d.ErrorPolicy)
	assert.Equal(t, sfdeploy.DefaultRetentionDays, d.RetentionDays)
	assert.Equal(t, sfdeploy.DefaultTimeout, d.Timeout)
	assert.Equal(t, sfdeploy.AuthMethodPassword, s.Connection.AuthMethod)
}

func TestResolve_Precedence(t *testing.T) {
	root := t.TempDir()
	fileDays, envDays, flagDays := 30, 10, 1

	file := &ProjectConfig{
		Discovery:     "fullscan",
		RetentionDays: &fileDays,
		OnError:       "fail-fast",
		Timeout:       "5m",
		Connection:    ConnectionConfig{Account: "from-file", Database: "FILE_DB", User: "FILE_USER"},
	}
	vars := Env{
		Account:       "from-env",
		Discovery:     "git",
		BaseRef:       "origin/main",
		RetentionDays: &envDays,
		Timeout:       2 * time.Minute,
	}

	s, err := Resolve(root, file, vars, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DiscoveryGitDiff, s.Discovery)
	assert.Equal(t, 10, s.Deployment.RetentionDays)
	assert.Equal(t, 2*time.Minute, s.Deployment.Timeout)
	assert.Equal(t, "from-env", s.Connection.Account)
	assert.Equal(t, "FILE_DB", s.Connection.Database)
	assert.Equal(t, "from-env/FILE_DB", s.Deployment.Target)

	s, err = Resolve(root, file, vars, Overrides{
		Discovery:       "fullscan",
		RetentionDays:   &flagDays,
		Timeout:         time.Minute,
		ContinueOnError: true,
		DryRun:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, DiscoveryFullScan, s.Discovery)
	assert.Equal(t, 1, s.Deployment.RetentionDays)
	assert.Equal(t, time.Minute, s.Deployment.Timeout)
	assert.Equal(t, sfdeploy.PolicyContinue, s.Deployment.ErrorPolicy)
	assert.True(t, s.Deployment.DryRun)
}

func TestResolve_FilesSelectExplicitDiscovery(t *testing.T) {
	s, err := Resolve(t.TempDir(), &ProjectConfig{Discovery: "git"}, Env{}, Overrides{
		Files: []string{"dbscripts2/Tables/orders.sql"},
	})
	require.NoError(t, err)
	assert.Equal(t, DiscoveryExplicit, s.Discovery)
	assert.Equal(t, []string{"dbscripts2/Tables/orders.sql"}, s.Files)
}

func TestResolve_KeyPairInferred(t *testing.T) {
	root := t.TempDir()
	file := &ProjectConfig{Connection: ConnectionConfig{PrivateKeyPath: "keys/rsa_key.p8"}}

	s, err := Resolve(root, file, Env{}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, sfdeploy.AuthMethodKeyPair, s.Connection.AuthMethod)
	assert.Equal(t, filepath.Join(root, "keys", "rsa_key.p8"), s.Connection.PrivateKeyPath)
}

func TestResolve_CollectsAllErrors(t *testing.T) {
	file := &ProjectConfig{
		Discovery:       "carrier-pigeon",
		FingerprintMode: "fuzzy",
		OnError:         "shrug",
		Timeout:         "soon",
		Folders:         []sfdeploy.FolderMapping{{Path: "sql", Kind: "view", Schema: "RPT"}},
	}

	_, err := Resolve(t.TempDir(), file, Env{Authenticator: "oauth"}, Overrides{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
	assert.ErrorIs(t, err, sfdeploy.ErrUnsupportedAuthMethod)
	for _, want := range []string{"carrier-pigeon", "fuzzy", "shrug", "soon", "view"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestResolve_GitNeedsBaseRef(t *testing.T) {
	_, err := Resolve(t.TempDir(), &ProjectConfig{}, Env{}, Overrides{Discovery: "git"})
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "base ref")
}

func TestForProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("discovery: fullscan\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFileName), []byte("SFDEPLOY_TEST_MANIFEST=a.sql b.sql\n"), 0600))

	s, err := ForProject(dir, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DiscoveryFullScan, s.Discovery)

	v, ok := s.LookupEnv("SFDEPLOY_TEST_MANIFEST")
	assert.True(t, ok)
	assert.Equal(t, "a.sql b.sql", v)
}

func TestParseDiscovery(t *testing.T) {
	tests := []struct {
		in   string
		want Discovery
	}{
		{"", DiscoveryManifest},
		{"Manifest", DiscoveryManifest},
		{"fullscan", DiscoveryFullScan},
		{"git", DiscoveryGitDiff},
		{"explicit", DiscoveryExplicit},
	}
	for _, tt := range tests {
		got, err := ParseDiscovery(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDiscovery("ftp")
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
}
