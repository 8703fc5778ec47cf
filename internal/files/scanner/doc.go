// Package scanner turns repository-relative paths into deployable artifacts.
//
// ListFolder enumerates the .sql files of one configured folder; Load
// classifies paths against the folder mappings and reads their contents.
// Paths that belong to no folder and files that vanished between discovery
// and loading are reported separately rather than failing the run.
package scanner
