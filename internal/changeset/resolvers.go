package changeset

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// FullScan lists every .sql file under the configured folders.
type FullScan struct {
	scanner     *scanner.Scanner
	projectRoot string
	folders     []sfdeploy.FolderMapping
}

// NewFullScan creates a full-scan resolver.
// Panics if s is nil.
func NewFullScan(s *scanner.Scanner, projectRoot string, folders []sfdeploy.FolderMapping) *FullScan {
	if s == nil {
		panic("scanner cannot be nil")
	}
	return &FullScan{scanner: s, projectRoot: projectRoot, folders: folders}
}

func (r *FullScan) Name() string { return "fullscan" }

func (r *FullScan) Resolve(ctx context.Context) ([]string, error) {
	var all []string
	for _, f := range r.folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paths, err := r.scanner.ListFolder(r.projectRoot, f.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sfdeploy.ErrDiscoveryFailed, err)
		}
		all = append(all, paths...)
	}
	return Normalize(all), nil
}

// CommandRunner runs an external command in dir and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// GitDiff resolves the files added, copied, modified, renamed or type-changed
// between two refs. git runs with --relative in the project root, so paths
// come back relative to the project even when it is nested inside the
// repository, and changes outside the project are left out.
type GitDiff struct {
	runner      CommandRunner
	projectRoot string
	base        string
	head        string
}

// NewGitDiff creates a git diff resolver. An empty head means HEAD.
// Panics if runner is nil.
func NewGitDiff(runner CommandRunner, projectRoot, base, head string) *GitDiff {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if head == "" {
		head = sfdeploy.DefaultHeadRef
	}
	return &GitDiff{runner: runner, projectRoot: projectRoot, base: base, head: head}
}

func (r *GitDiff) Name() string { return "gitdiff" }

// Args returns the git arguments used for the diff.
func (r *GitDiff) Args() []string {
	return []string{"diff", "--name-only", "--diff-filter=ACMRT", "--relative", r.base, r.head}
}

func (r *GitDiff) Resolve(ctx context.Context) ([]string, error) {
	if r.base == "" {
		return nil, fmt.Errorf("%w: git diff needs a base ref (--base)", sfdeploy.ErrDiscoveryFailed)
	}
	out, err := r.runner.Run(ctx, r.projectRoot, "git", r.Args()...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: git %s: %v", sfdeploy.ErrDiscoveryFailed, strings.Join(r.Args(), " "), err)
	}
	return Normalize(splitLines(out)), nil
}

// Manifest reads a change list prepared by CI. The environment variable wins
// over the file; a missing file means nothing to deploy.
type Manifest struct {
	file   string
	envVar string
	lookup func(string) (string, bool)
}

// NewManifest creates a manifest resolver reading envVar, then file.
func NewManifest(file, envVar string) *Manifest {
	return &Manifest{file: file, envVar: envVar, lookup: os.LookupEnv}
}

// WithLookupEnv replaces os.LookupEnv for tests.
func (r *Manifest) WithLookupEnv(lookup func(string) (string, bool)) *Manifest {
	r.lookup = lookup
	return r
}

func (r *Manifest) Name() string { return "manifest" }

func (r *Manifest) Resolve(ctx context.Context) ([]string, error) {
	if r.envVar != "" {
		if v, ok := r.lookup(r.envVar); ok && strings.TrimSpace(v) != "" {
			return Normalize(strings.Fields(v)), nil
		}
	}
	if r.file == "" {
		return nil, nil
	}

	data, err := os.ReadFile(r.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %v", sfdeploy.ErrDiscoveryFailed, filepath.Base(r.file), err)
	}
	return Normalize(splitLines(data)), nil
}

// Explicit returns a fixed list of paths, typically from the command line.
type Explicit struct {
	paths []string
}

// NewExplicit creates a resolver over paths relative to the project root.
func NewExplicit(paths []string) *Explicit {
	return &Explicit{paths: paths}
}

func (r *Explicit) Name() string { return "explicit" }

func (r *Explicit) Resolve(ctx context.Context) ([]string, error) {
	return Normalize(r.paths), nil
}

func splitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

var (
	_ sfdeploy.ChangeResolver = (*FullScan)(nil)
	_ sfdeploy.ChangeResolver = (*GitDiff)(nil)
	_ sfdeploy.ChangeResolver = (*Manifest)(nil)
	_ sfdeploy.ChangeResolver = (*Explicit)(nil)
)
