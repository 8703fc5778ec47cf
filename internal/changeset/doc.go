// Package changeset implements the change discovery strategies.
//
// Every resolver returns repository-relative, forward-slash .sql paths that
// went through Normalize: sorted, de-duplicated and cleaned. Discovering no
// changes is a successful result; only failures of the discovery mechanism
// itself (git missing, unreadable manifest) wrap sfdeploy.ErrDiscoveryFailed.
//
// Strategies:
//   - FullScan: every .sql file under the configured folders
//   - GitDiff: files changed between two git refs
//   - Manifest: a list handed over by CI in an environment variable or file
//   - Explicit: paths given on the command line
package changeset
