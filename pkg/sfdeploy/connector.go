package sfdeploy

import "context"

// Connector opens warehouse sessions.
// Different implementations handle the supported authentication methods.
type Connector interface {
	// Connect opens a session. The caller must Close it.
	Connect(ctx context.Context) (Session, error)
}

// Session is the execution capability: a single warehouse session used
// serially for the duration of one run.
//
// Thread-Safety: NOT safe for concurrent use.
type Session interface {
	// Execute selects schema and runs the statement batch in it. The current
	// schema of the session is never relied upon implicitly.
	Execute(ctx context.Context, schema, sql string) error

	// TaskState returns the live state of a scheduled task.
	TaskState(ctx context.Context, schema, task string) (TaskState, error)

	// SuspendTask suspends a scheduled task.
	SuspendTask(ctx context.Context, schema, task string) error

	// ResumeTask resumes a scheduled task.
	ResumeTask(ctx context.Context, schema, task string) error

	// Close releases the session. Idempotent.
	Close() error
}
