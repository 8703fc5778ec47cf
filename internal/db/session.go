package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/snowflakedb/gosnowflake"
	"github.com/vvka-141/sfdeploy/internal/retry"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Session is a warehouse session pinned to one pooled connection.
//
// Thread-Safety: NOT safe for concurrent use.
type Session struct {
	db            *sql.DB
	conn          *sql.Conn
	retryExecutor *retry.Executor

	closeOnce sync.Once
	closeErr  error
}

// NewSession acquires a dedicated connection from db. The session owns db
// and closes it on Close.
// Panics if db or executor is nil.
func NewSession(ctx context.Context, db *sql.DB, executor *retry.Executor) (*Session, error) {
	if db == nil {
		panic("db cannot be nil")
	}
	if executor == nil {
		panic("executor cannot be nil")
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Session{db: db, conn: conn, retryExecutor: executor}, nil
}

// Execute runs USE SCHEMA and then the statement batch on the same connection.
// The batch may hold any number of statements.
func (s *Session) Execute(ctx context.Context, schema, sqlText string) error {
	if err := s.useSchema(ctx, schema); err != nil {
		return err
	}

	batchCtx, err := gosnowflake.WithMultiStatement(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to enable multi-statement batch: %w", err)
	}
	if _, err := s.conn.ExecContext(batchCtx, sqlText); err != nil {
		return fmt.Errorf("%w\n  statement: %s", err, sfdeploy.PreviewSQL(sqlText))
	}
	return nil
}

func (s *Session) useSchema(ctx context.Context, schema string) error {
	if !sfdeploy.IsValidIdentifier(schema) {
		return fmt.Errorf("invalid schema identifier %q: %w", schema, sfdeploy.ErrInvalidConfig)
	}
	if _, err := s.conn.ExecContext(ctx, "USE SCHEMA "+schema); err != nil {
		return fmt.Errorf("USE SCHEMA %s: %w", schema, err)
	}
	return nil
}

// TaskState looks the task up with SHOW TASKS. A task that does not exist
// is TaskStateAbsent.
func (s *Session) TaskState(ctx context.Context, schema, task string) (sfdeploy.TaskState, error) {
	if !sfdeploy.IsValidIdentifier(schema) {
		return sfdeploy.TaskStateAbsent, fmt.Errorf("invalid schema identifier %q: %w", schema, sfdeploy.ErrInvalidConfig)
	}

	query := ShowTaskQuery(schema, task)
	state := sfdeploy.TaskStateAbsent
	err := s.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		found, err := s.queryTaskState(ctx, query, task)
		if err != nil {
			return err
		}
		state = found
		return nil
	})
	if err != nil {
		return sfdeploy.TaskStateAbsent, fmt.Errorf("failed to read state of task %s.%s: %w", schema, task, err)
	}
	return state, nil
}

func (s *Session) queryTaskState(ctx context.Context, query, task string) (sfdeploy.TaskState, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return sfdeploy.TaskStateAbsent, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return sfdeploy.TaskStateAbsent, err
	}
	nameIdx, stateIdx := -1, -1
	for i, c := range cols {
		switch strings.ToLower(c) {
		case "name":
			nameIdx = i
		case "state":
			stateIdx = i
		}
	}
	if nameIdx < 0 || stateIdx < 0 {
		return sfdeploy.TaskStateAbsent, errors.New("SHOW TASKS returned no name/state columns")
	}

	// LIKE treats _ as a wildcard, so rows are filtered by exact name
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	result := sfdeploy.TaskStateAbsent
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return sfdeploy.TaskStateAbsent, err
		}
		if values[nameIdx].String != task {
			continue
		}
		if strings.EqualFold(values[stateIdx].String, "started") {
			result = sfdeploy.TaskStateStarted
		} else {
			result = sfdeploy.TaskStateSuspended
		}
	}
	return result, rows.Err()
}

// SuspendTask runs ALTER TASK ... SUSPEND.
func (s *Session) SuspendTask(ctx context.Context, schema, task string) error {
	return s.alterTask(ctx, schema, task, "SUSPEND")
}

// ResumeTask runs ALTER TASK ... RESUME.
func (s *Session) ResumeTask(ctx context.Context, schema, task string) error {
	return s.alterTask(ctx, schema, task, "RESUME")
}

func (s *Session) alterTask(ctx context.Context, schema, task, action string) error {
	if !sfdeploy.IsValidIdentifier(schema) {
		return fmt.Errorf("invalid schema identifier %q: %w", schema, sfdeploy.ErrInvalidConfig)
	}
	stmt := AlterTaskStatement(schema, task, action)
	err := s.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		_, err := s.conn.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	return nil
}

// Close releases the connection and the handle. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.conn.Close(), s.db.Close())
	})
	return s.closeErr
}

var plainTaskName = regexp.MustCompile(`^[A-Z_][A-Z0-9_$]*$`)

// QuoteIdent returns name as written in SQL: plain upper-case names stay
// bare, anything else is double-quoted.
func QuoteIdent(name string) string {
	if plainTaskName.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ShowTaskQuery returns the SHOW TASKS statement used to read a task's state.
func ShowTaskQuery(schema, task string) string {
	return fmt.Sprintf("SHOW TASKS LIKE '%s' IN SCHEMA %s", strings.ReplaceAll(task, "'", "''"), schema)
}

// AlterTaskStatement returns ALTER TASK <schema>.<task> <action>.
func AlterTaskStatement(schema, task, action string) string {
	return fmt.Sprintf("ALTER TASK %s.%s %s", schema, QuoteIdent(task), action)
}

var _ sfdeploy.Session = (*Session)(nil)
