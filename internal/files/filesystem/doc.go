// Package filesystem provides a small read-only filesystem abstraction.
//
// The deployment engine only ever walks artifact folders, reads artifact
// files and stats them. Provider captures exactly that, so resolvers and the
// artifact scanner can be tested against MemoryFileSystem instead of
// t.TempDir trees.
//
// Implementations:
//   - OSFileSystem: Production implementation using the OS filesystem
//   - MemoryFileSystem: In-memory implementation for testing
//
// Missing paths are reported with errors matching fs.ErrNotExist in both
// implementations.
package filesystem
