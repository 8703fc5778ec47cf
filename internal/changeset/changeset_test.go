package changeset

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sfdeploy/internal/files/filesystem"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{
		`Tables\orders.sql`,
		"./Tables/orders.sql",
		"Tasks/../Tasks/load.SQL",
		"",
		"   ",
		"README.md",
		"Procedures/p.sql",
	})
	assert.Equal(t, []string{"Procedures/p.sql", "Tables/orders.sql", "Tasks/load.SQL"}, got)
	assert.Empty(t, Normalize(nil))
}

func TestFullScan(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/repo")
	fs.AddFile("Tables/orders.sql", "")
	fs.AddFile("Tables/notes.md", "")
	fs.AddFile("Tasks/load.sql", "")
	fs.AddFile("Other/ignored.sql", "")

	r := NewFullScan(scanner.NewScannerWithFS(fs), "/repo", []sfdeploy.FolderMapping{
		{Path: "Tasks", Kind: sfdeploy.KindTask, Schema: "XFRM"},
		{Path: "Tables", Kind: sfdeploy.KindTable, Schema: "RPT"},
		{Path: "Procedures", Kind: sfdeploy.KindStoredProc, Schema: "XFRM"},
	})

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tables/orders.sql", "Tasks/load.sql"}, got)
	assert.Equal(t, "fullscan", r.Name())
}

type fakeRunner struct {
	out  string
	err  error
	dir  string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.dir = dir
	f.args = append([]string{name}, args...)
	return []byte(f.out), f.err
}

func TestGitDiff(t *testing.T) {
	runner := &fakeRunner{out: "Tables/orders.sql\nREADME.md\nTasks/load.sql\n"}
	r := NewGitDiff(runner, "/repo", "origin/main", "")

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tables/orders.sql", "Tasks/load.sql"}, got)
	assert.Equal(t, "/repo", runner.dir)
	assert.Equal(t, []string{"git", "diff", "--name-only", "--diff-filter=ACMRT", "--relative", "origin/main", "HEAD"}, runner.args)
}

// runGit runs git in dir with a throwaway identity.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	full := append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestGitDiff_NestedProjectPathsAreProjectRelative(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := t.TempDir()
	project := filepath.Join(repo, "warehouse")
	write := func(rel, content string) {
		full := filepath.Join(repo, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	runGit(t, repo, "init", "-q")
	write("warehouse/sfdeploy.yaml", "folders: []\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-q", "-m", "init")

	write("warehouse/dbscripts2/Tables/ORDERS.sql", "CREATE TABLE ORDERS (ID INT);\n")
	write("other/dbscripts2/Tables/ELSEWHERE.sql", "CREATE TABLE ELSEWHERE (ID INT);\n")
	runGit(t, repo, "add", ".")
	runGit(t, repo, "commit", "-q", "-m", "add orders")

	got, err := NewGitDiff(ExecRunner{}, project, "HEAD~1", "").Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dbscripts2/Tables/ORDERS.sql"}, got)
	assert.FileExists(t, filepath.Join(project, filepath.FromSlash(got[0])))
}

func TestGitDiff_EmptyOutputIsNoOp(t *testing.T) {
	r := NewGitDiff(&fakeRunner{}, "/repo", "abc123", "def456")

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGitDiff_Failure(t *testing.T) {
	r := NewGitDiff(&fakeRunner{err: errors.New("fatal: bad revision 'nope'")}, "/repo", "nope", "")

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sfdeploy.ErrDiscoveryFailed)
	assert.Contains(t, err.Error(), "bad revision")
}

func TestGitDiff_MissingBase(t *testing.T) {
	_, err := NewGitDiff(&fakeRunner{}, "/repo", "", "").Resolve(context.Background())
	assert.ErrorIs(t, err, sfdeploy.ErrDiscoveryFailed)
}

func TestManifest_EnvWinsOverFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "changed_files.txt")
	require.NoError(t, os.WriteFile(file, []byte("Tables/from_file.sql\n"), 0o644))

	env := map[string]string{"CHANGED": "Tasks/b.sql  Tables/a.sql\nTables/a.sql"}
	r := NewManifest(file, "CHANGED").WithLookupEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tables/a.sql", "Tasks/b.sql"}, got)
}

func TestManifest_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "changed_files.txt")
	require.NoError(t, os.WriteFile(file, []byte("Tables/a.sql\r\n\r\n./Procedures/p.sql\n"), 0o644))

	r := NewManifest(file, "UNSET").WithLookupEnv(func(string) (string, bool) { return "", false })

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Procedures/p.sql", "Tables/a.sql"}, got)
}

func TestManifest_MissingFileIsNothingToDeploy(t *testing.T) {
	r := NewManifest(filepath.Join(t.TempDir(), "changed_files.txt"), "").
		WithLookupEnv(func(string) (string, bool) { return "", false })

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManifest_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	r := NewManifest(dir, "").WithLookupEnv(func(string) (string, bool) { return "", false })

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, sfdeploy.ErrDiscoveryFailed)
}

func TestExplicit(t *testing.T) {
	got, err := NewExplicit([]string{"./Tables/b.sql", "Tables/a.sql"}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tables/a.sql", "Tables/b.sql"}, got)
}
