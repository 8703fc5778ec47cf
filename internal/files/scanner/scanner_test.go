package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sfdeploy/internal/files/filesystem"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

var testFolders = []sfdeploy.FolderMapping{
	{Path: "Tables", Kind: sfdeploy.KindTable, Schema: "RPT"},
	{Path: "Procedures", Kind: sfdeploy.KindStoredProc, Schema: "XFRM"},
	{Path: "Tasks", Kind: sfdeploy.KindTask, Schema: "XFRM"},
}

func newTestScanner() (*Scanner, *filesystem.MemoryFileSystem) {
	fs := filesystem.NewMemoryFileSystem("/project")
	return NewScannerWithFS(fs), fs
}

func TestNewScannerWithFS_Nil(t *testing.T) {
	assert.Panics(t, func() { NewScannerWithFS(nil) })
}

func TestListFolder(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("Tables/orders.sql", "CREATE TABLE orders (id INT);")
	fs.AddFile("Tables/archive/old.SQL", "CREATE TABLE old (id INT);")
	fs.AddFile("Tables/README.md", "docs")
	fs.AddFile("Tasks/load.sql", "CREATE TASK load AS SELECT 1;")

	paths, err := s.ListFolder("/project", "Tables")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tables/archive/old.SQL", "Tables/orders.sql"}, paths)
}

func TestListFolder_MissingFolder(t *testing.T) {
	s, _ := newTestScanner()

	paths, err := s.ListFolder("/project", "Procedures")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLoad(t *testing.T) {
	s, fs := newTestScanner()
	fs.AddFile("Tables/orders.sql", "CREATE TABLE orders (id INT);")
	fs.AddFile("Tasks/load.sql", "CREATE TASK load AS SELECT 1;")
	fs.AddFile("scratch/tmp.sql", "SELECT 1;")

	res, err := s.Load("/project", testFolders, []string{
		"Tables/orders.sql",
		"scratch/tmp.sql",
		"Procedures/gone.sql",
		"Tasks/load.sql",
	})
	require.NoError(t, err)

	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, sfdeploy.Artifact{
		Path:    "Tables/orders.sql",
		Kind:    sfdeploy.KindTable,
		Schema:  "RPT",
		Content: "CREATE TABLE orders (id INT);",
	}, res.Artifacts[0])
	assert.Equal(t, sfdeploy.KindTask, res.Artifacts[1].Kind)
	assert.Equal(t, "XFRM", res.Artifacts[1].Schema)

	assert.Equal(t, []string{"scratch/tmp.sql"}, res.Unmapped)
	assert.Equal(t, []string{"Procedures/gone.sql"}, res.Missing)
}

func TestIsSQLFile(t *testing.T) {
	assert.True(t, IsSQLFile("a/b.sql"))
	assert.True(t, IsSQLFile("B.SQL"))
	assert.False(t, IsSQLFile("notes.sql.bak"))
	assert.False(t, IsSQLFile("sql"))
}
