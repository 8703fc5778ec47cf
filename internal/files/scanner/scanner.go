package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/vvka-141/sfdeploy/internal/files/filesystem"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Scanner reads artifacts from a project tree.
// Scanner is safe for concurrent use as long as the provider is.
type Scanner struct {
	fsProvider filesystem.Provider
}

// NewScanner creates a scanner over the OS filesystem.
func NewScanner() *Scanner {
	return &Scanner{fsProvider: filesystem.NewOSFileSystem()}
}

// NewScannerWithFS creates a scanner with a custom filesystem provider.
// Panics if fsProvider is nil.
func NewScannerWithFS(fsProvider filesystem.Provider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{fsProvider: fsProvider}
}

// Result is the outcome of loading a list of paths.
type Result struct {
	// Artifacts are the classified, readable artifacts in input order.
	Artifacts []sfdeploy.Artifact

	// Unmapped lists paths that live under no configured folder.
	Unmapped []string

	// Missing lists paths that could not be found on disk.
	Missing []string
}

// ListFolder returns the repository-relative paths of every .sql file under
// folder. A folder that does not exist yields no paths.
func (s *Scanner) ListFolder(projectRoot, folder string) ([]string, error) {
	folder = path.Clean(filepath.ToSlash(folder))
	dir := filepath.Join(projectRoot, filepath.FromSlash(folder))

	var paths []string
	err := s.fsProvider.Walk(dir, func(rel string, _ filesystem.FileInfo) error {
		if !IsSQLFile(rel) {
			return nil
		}
		paths = append(paths, path.Join(folder, rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan folder %s: %w", folder, err)
	}
	return paths, nil
}

// Load classifies each path with the folder mappings and reads its content.
func (s *Scanner) Load(projectRoot string, folders []sfdeploy.FolderMapping, paths []string) (Result, error) {
	var res Result
	for _, p := range paths {
		mapping, ok := sfdeploy.ClassifyPath(folders, p)
		if !ok {
			res.Unmapped = append(res.Unmapped, p)
			continue
		}

		content, err := s.fsProvider.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(p)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				res.Missing = append(res.Missing, p)
				continue
			}
			return Result{}, fmt.Errorf("failed to read %s: %w", p, err)
		}

		res.Artifacts = append(res.Artifacts, sfdeploy.Artifact{
			Path:    p,
			Kind:    mapping.Kind,
			Schema:  mapping.Schema,
			Content: string(content),
		})
	}
	return res, nil
}

// IsSQLFile reports whether name carries the .sql extension, ignoring case.
func IsSQLFile(name string) bool {
	return strings.EqualFold(path.Ext(name), sfdeploy.SQLExtension)
}
