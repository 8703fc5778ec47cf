package sfdeploy

import "context"

// ChangeResolver produces the artifact paths to consider for a run.
// Paths are repository-relative, use forward slashes and end in .sql.
// An empty result is a successful "nothing to do".
type ChangeResolver interface {
	// Name identifies the discovery strategy in logs.
	Name() string

	// Resolve returns the sorted, de-duplicated change set.
	// Failures of the discovery mechanism itself wrap ErrDiscoveryFailed.
	Resolve(ctx context.Context) ([]string, error)
}
