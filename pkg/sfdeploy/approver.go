package sfdeploy

import "context"

// Approver confirms a deployment before any warehouse object is touched.
//
// Implementations:
//   - AutoApprover: approves immediately (CI, --yes)
//   - InteractiveApprover: prompts the user to type the target name
type Approver interface {
	// RequestApproval asks whether count changed artifacts may be applied to target.
	RequestApproval(ctx context.Context, target string, count int) (bool, error)
}
