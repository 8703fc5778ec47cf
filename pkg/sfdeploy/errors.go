package sfdeploy

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	summary, err := deployer.Deploy(ctx, config)
//	if errors.Is(err, sfdeploy.ErrExecutionFailed) {
//	    // At least one artifact was rejected by the warehouse
//	}
var (
	// ErrInvalidConfig indicates missing or invalid configuration, credentials or key material.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDiscoveryFailed indicates the change discovery collaborator itself failed.
	// Discovering zero changes is not an error.
	ErrDiscoveryFailed = errors.New("change discovery failed")

	// ErrCircularDependency indicates the task dependency graph contains a cycle.
	ErrCircularDependency = errors.New("circular task dependency")

	// ErrExecutionFailed indicates the warehouse rejected a statement batch.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrConnectionFailed indicates a warehouse session could not be opened.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrApprovalDenied indicates the user declined the deployment.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUsage indicates the command line was used incorrectly.
	ErrUsage = errors.New("usage error")
)

// ExecutionError reports an artifact the warehouse rejected.
// It matches ErrExecutionFailed with errors.Is and unwraps to the driver error.
type ExecutionError struct {
	Artifact string
	Schema   string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s (schema %s): %v", ErrExecutionFailed, e.Artifact, e.Schema, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExecutionFailed.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// ExecutionError unwraps to the driver error, which may itself match a
	// config sentinel; the failed artifact decides the code.
	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrCircularDependency):
		return ExitCircularDependency
	case errors.Is(err, ErrDiscoveryFailed):
		return ExitDiscoveryFailed
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	// cobra reports argument validation failures as plain errors
	errStr := err.Error()
	for _, prefix := range []string{
		"accepts ",
		"requires at least",
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"required flag",
		"invalid argument",
	} {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}

// PreviewSQL shortens a statement batch for inclusion in error messages.
// The cut never splits a multi-byte character.
func PreviewSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) <= MaxErrorPreviewLength {
		return sql
	}
	n := MaxErrorPreviewLength
	for n > 0 && !utf8.RuneStart(sql[n]) {
		n--
	}
	return sql[:n] + "..."
}
