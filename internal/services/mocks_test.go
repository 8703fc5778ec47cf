package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vvka-141/sfdeploy/internal/fingerprint"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// mockSession records every warehouse call in order.
type mockSession struct {
	calls   []string
	states  map[string]sfdeploy.TaskState // "SCHEMA.TASK"
	failSQL map[string]error
	failOp  map[string]error // keyed by call, e.g. "suspend XFRM.ROOT"
	closed  int
}

func newMockSession() *mockSession {
	return &mockSession{
		states:  make(map[string]sfdeploy.TaskState),
		failSQL: make(map[string]error),
		failOp:  make(map[string]error),
	}
}

func (m *mockSession) record(call string) error {
	m.calls = append(m.calls, call)
	return m.failOp[call]
}

func (m *mockSession) Execute(_ context.Context, schema, sql string) error {
	m.calls = append(m.calls, fmt.Sprintf("exec %s %s", schema, sql))
	return m.failSQL[sql]
}

func (m *mockSession) TaskState(_ context.Context, schema, task string) (sfdeploy.TaskState, error) {
	key := schema + "." + task
	if err := m.record("state " + key); err != nil {
		return sfdeploy.TaskStateAbsent, err
	}
	return m.states[key], nil
}

func (m *mockSession) SuspendTask(_ context.Context, schema, task string) error {
	key := schema + "." + task
	if err := m.record("suspend " + key); err != nil {
		return err
	}
	m.states[key] = sfdeploy.TaskStateSuspended
	return nil
}

func (m *mockSession) ResumeTask(_ context.Context, schema, task string) error {
	key := schema + "." + task
	if err := m.record("resume " + key); err != nil {
		return err
	}
	m.states[key] = sfdeploy.TaskStateStarted
	return nil
}

func (m *mockSession) Close() error {
	m.closed++
	return nil
}

// count returns how many recorded calls start with prefix.
func (m *mockSession) count(prefix string) int {
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *mockSession) index(call string) int {
	for i, c := range m.calls {
		if c == call {
			return i
		}
	}
	return -1
}

type mockConnector struct {
	session  *mockSession
	err      error
	connects int
}

func (m *mockConnector) Connect(_ context.Context) (sfdeploy.Session, error) {
	m.connects++
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockApprover struct {
	approved bool
	err      error
	calls    int
	count    int
}

func (m *mockApprover) RequestApproval(_ context.Context, _ string, count int) (bool, error) {
	m.calls++
	m.count = count
	return m.approved, m.err
}

type mockResolver struct {
	paths []string
	err   error
}

func (m *mockResolver) Name() string { return "mock" }

func (m *mockResolver) Resolve(_ context.Context) ([]string, error) {
	return m.paths, m.err
}

// spyStore counts writes to a real fingerprint store.
type spyStore struct {
	*fingerprint.Store
	commits []string
	saves   int
}

func (s *spyStore) Commit(key, content string) sfdeploy.FingerprintRecord {
	s.commits = append(s.commits, key)
	return s.Store.Commit(key, content)
}

func (s *spyStore) Save() error {
	s.saves++
	return s.Store.Save()
}

// spyArchiver counts sweeps and can fail archive writes.
type spyArchiver struct {
	sfdeploy.Archiver
	archiveErr error
	sweeps     int
}

func (s *spyArchiver) Archive(key, previous string) (sfdeploy.ArchiveEntry, error) {
	if s.archiveErr != nil {
		return sfdeploy.ArchiveEntry{}, s.archiveErr
	}
	return s.Archiver.Archive(key, previous)
}

func (s *spyArchiver) Sweep(retentionDays int) (int, error) {
	s.sweeps++
	return s.Archiver.Sweep(retentionDays)
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *captureLogger) Verbose(format string, args ...interface{}) { l.add("VERBOSE", format, args) }
func (l *captureLogger) Info(format string, args ...interface{})    { l.add("INFO", format, args) }
func (l *captureLogger) Warn(format string, args ...interface{})    { l.add("WARN", format, args) }
func (l *captureLogger) Error(format string, args ...interface{})   { l.add("ERROR", format, args) }

func (l *captureLogger) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
