// Package archive keeps timestamped snapshots of the previously deployed
// content of artifacts and sweeps snapshots that outlived the retention window.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// TimestampLayout formats the snapshot time in entry names.
const TimestampLayout = "20060102_150405"

// maxCollisions bounds the numeric suffix search for one second.
const maxCollisions = 1000

// ErrNothingToArchive is returned when Archive is called without previous content.
var ErrNothingToArchive = errors.New("nothing to archive")

// Archiver writes snapshots into a single directory.
type Archiver struct {
	dir string
	now func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock replaces time.Now for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// New creates an Archiver rooted at dir. The directory is created on demand.
func New(dir string, opts ...Option) *Archiver {
	a := &Archiver{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string { return a.dir }

// EntryName returns the snapshot file name for key at t, e.g.
// "orders_20240314_092653.sql" for "Tables/orders.sql".
func EntryName(key string, t time.Time) string {
	return baseName(key) + "_" + t.Format(TimestampLayout) + sfdeploy.SQLExtension
}

func baseName(key string) string {
	return sfdeploy.Artifact{Path: filepath.ToSlash(key)}.BaseName()
}

// Archive writes previous as a new snapshot of key. Existing entries are
// never overwritten: a name collision within the same second gets a
// numeric suffix such as "orders_20240314_092653_1.sql".
func (a *Archiver) Archive(key, previous string) (sfdeploy.ArchiveEntry, error) {
	if previous == "" {
		return sfdeploy.ArchiveEntry{}, fmt.Errorf("%s: %w", key, ErrNothingToArchive)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return sfdeploy.ArchiveEntry{}, fmt.Errorf("failed to create archive directory %s: %w", a.dir, err)
	}

	created := a.now()
	stem := strings.TrimSuffix(EntryName(key, created), sfdeploy.SQLExtension)

	for n := 0; n < maxCollisions; n++ {
		name := stem + sfdeploy.SQLExtension
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, sfdeploy.SQLExtension)
		}
		target := filepath.Join(a.dir, name)

		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return sfdeploy.ArchiveEntry{}, fmt.Errorf("failed to create archive entry %s: %w", target, err)
		}

		_, writeErr := f.WriteString(previous)
		closeErr := f.Close()
		if err := errors.Join(writeErr, closeErr); err != nil {
			os.Remove(target)
			return sfdeploy.ArchiveEntry{}, fmt.Errorf("failed to write archive entry %s: %w", target, err)
		}

		return sfdeploy.ArchiveEntry{
			Artifact:  key,
			Path:      target,
			CreatedAt: created,
		}, nil
	}

	return sfdeploy.ArchiveEntry{}, fmt.Errorf("too many archive entries for %s at %s", path.Base(key), created.Format(TimestampLayout))
}

// Sweep removes regular files whose modification time is more than
// retentionDays*24h in the past. An entry aged exactly the window is kept.
// A missing directory counts as zero entries.
func (a *Archiver) Sweep(retentionDays int) (int, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention days cannot be negative: %w", sfdeploy.ErrInvalidConfig)
	}

	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read archive directory %s: %w", a.dir, err)
	}

	window := time.Duration(retentionDays) * 24 * time.Hour
	now := a.now()
	removed := 0
	var errs []error

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if now.Sub(info.ModTime()) <= window {
			continue
		}
		target := filepath.Join(a.dir, entry.Name())
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", target, err))
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

var _ sfdeploy.Archiver = (*Archiver)(nil)
