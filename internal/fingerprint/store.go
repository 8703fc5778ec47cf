// Package fingerprint persists the last successfully deployed digest and
// content of every artifact, so unchanged artifacts are skipped on re-runs.
//
// The store is a single YAML document written atomically: the new version is
// written to a temp file in the same directory and renamed over the old one,
// so a crash mid-write leaves the previous mapping intact.
package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vvka-141/sfdeploy/internal/checksum"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
	"gopkg.in/yaml.v3"
)

// formatVersion is written to every store file. Files with a newer version
// are refused rather than silently downgraded.
const formatVersion = 1

type document struct {
	Version   int                                   `yaml:"version"`
	UpdatedAt time.Time                             `yaml:"updated_at"`
	RunID     string                                `yaml:"run_id,omitempty"`
	Artifacts map[string]sfdeploy.FingerprintRecord `yaml:"artifacts"`
}

// Store is the file-backed FingerprintStore.
//
// Thread-Safety: NOT safe for concurrent use. Use Lock to serialize runs.
type Store struct {
	path    string
	digest  func([]byte) string
	runID   string
	now     func() time.Time
	records map[string]sfdeploy.FingerprintRecord
}

// Option configures a Store.
type Option func(*Store)

// WithDigest replaces the digest function. Defaults to raw SHA-256.
func WithDigest(digest func([]byte) string) Option {
	return func(s *Store) { s.digest = digest }
}

// WithRunID records the identifier of the run writing the store.
func WithRunID(id string) Option {
	return func(s *Store) { s.runID = id }
}

// WithClock replaces time.Now for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Load reads the store at path. A missing file yields an empty store.
// An unreadable or malformed file is a configuration error.
func Load(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		digest:  checksum.Digest(checksum.New(), checksum.ModeRaw),
		now:     time.Now,
		records: make(map[string]sfdeploy.FingerprintRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint store %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fingerprint store %s is not valid YAML: %v: %w", path, err, sfdeploy.ErrInvalidConfig)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("fingerprint store %s has version %d, this build understands up to %d: %w",
			path, doc.Version, formatVersion, sfdeploy.ErrInvalidConfig)
	}
	for key, rec := range doc.Artifacts {
		s.records[key] = rec
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Len returns the number of recorded artifacts.
func (s *Store) Len() int { return len(s.records) }

// Keys returns the recorded artifact paths in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the record for key, if any.
func (s *Store) Lookup(key string) (sfdeploy.FingerprintRecord, bool) {
	rec, ok := s.records[key]
	return rec, ok
}

// HasChanged reports whether content differs from the recorded digest.
func (s *Store) HasChanged(key, content string) bool {
	rec, ok := s.records[key]
	if !ok {
		return true
	}
	return rec.Hash != s.digest([]byte(content))
}

// Commit records content as the deployed version of key.
func (s *Store) Commit(key, content string) sfdeploy.FingerprintRecord {
	rec := sfdeploy.FingerprintRecord{
		Hash:       s.digest([]byte(content)),
		Content:    content,
		DeployedAt: s.now().UTC(),
	}
	s.records[key] = rec
	return rec
}

// Save atomically replaces the store file with the current mapping.
func (s *Store) Save() error {
	doc := document{
		Version:   formatVersion,
		UpdatedAt: s.now().UTC(),
		RunID:     s.runID,
		Artifacts: s.records,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode fingerprint store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create fingerprint directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for fingerprint store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write fingerprint store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync fingerprint store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close fingerprint store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace fingerprint store %s: %w", s.path, err)
	}
	return nil
}

var _ sfdeploy.FingerprintStore = (*Store)(nil)
