package sfdeploy

import "context"

// Deployer is the main interface for executing change-driven deployments.
type Deployer interface {
	// Deploy resolves the change set, applies changed artifacts and returns
	// a summary. A non-nil summary is returned whenever the run got past
	// setup, even when the error is non-nil.
	Deploy(ctx context.Context, config DeploymentConfig) (*Summary, error)
}
