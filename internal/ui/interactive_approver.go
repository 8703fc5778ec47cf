package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the target name
// before anything is applied to the warehouse.
type InteractiveApprover struct {
	input  io.Reader
	output io.Writer
}

// NewInteractiveApprover creates an InteractiveApprover reading stdin and
// writing to stderr.
func NewInteractiveApprover() *InteractiveApprover {
	return &InteractiveApprover{input: os.Stdin, output: os.Stderr}
}

// RequestApproval prompts the user to type the target name to confirm.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, target string, count int) (bool, error) {
	fmt.Fprintf(a.output, "\nAbout to apply %d changed artifact(s) to '%s'.\n", count, target)
	fmt.Fprintln(a.output, "Running tasks in affected chains are suspended while their definitions are replaced.")
	fmt.Fprintf(a.output, "\nTo confirm, type the target name '%s' and press Enter: ", target)

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == target {
			fmt.Fprintln(a.output, "✓ Confirmed. Deploying...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match target '%s'. Deployment cancelled.\n", input, target)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ sfdeploy.Approver = (*InteractiveApprover)(nil)
