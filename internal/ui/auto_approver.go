package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// AutoApprover approves without asking. It is used in CI and with --yes.
// With a non-zero countdown it announces the deployment and waits, giving
// an operator at a terminal the chance to press Ctrl+C.
type AutoApprover struct {
	output    io.Writer
	countdown int
	sleepFn   func(time.Duration)
}

// NewAutoApprover creates an AutoApprover writing to stderr.
func NewAutoApprover(countdown time.Duration) *AutoApprover {
	return &AutoApprover{
		output:    os.Stderr,
		countdown: int(countdown.Seconds()),
		sleepFn:   time.Sleep,
	}
}

// RequestApproval approves after the countdown unless ctx is cancelled.
func (a *AutoApprover) RequestApproval(ctx context.Context, target string, count int) (bool, error) {
	if a.countdown <= 0 {
		return true, ctx.Err()
	}

	fmt.Fprintf(a.output, "\nApplying %d changed artifact(s) to '%s' without confirmation.\n", count, target)
	for i := a.countdown; i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rStarting in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(time.Second)
		}
	}
	fmt.Fprintf(a.output, "\r✓ Proceeding...                                            \n")
	return true, nil
}

var _ sfdeploy.Approver = (*AutoApprover)(nil)

// NewApprover picks the approver for the current mode. Interactive sessions
// are asked to confirm unless skipPrompt is set.
func NewApprover(mode Mode, skipPrompt bool) sfdeploy.Approver {
	if mode == ModeInteractive && !skipPrompt {
		return NewInteractiveApprover()
	}
	if mode == ModeInteractive {
		return NewAutoApprover(sfdeploy.DefaultAutoApprovalCountdown)
	}
	return NewAutoApprover(0)
}
