package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ConsoleLogger writes log messages to stderr.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	verbose bool
	color   bool
	out     io.Writer
	mu      sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger writing to stderr.
// Colours are enabled when stderr is a terminal and NO_COLOR is unset.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	color := os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stderr.Fd()))
	return NewWriterLogger(os.Stderr, verbose, color)
}

// NewWriterLogger creates a ConsoleLogger writing to w.
func NewWriterLogger(w io.Writer, verbose, color bool) *ConsoleLogger {
	return &ConsoleLogger{
		verbose: verbose,
		color:   color,
		out:     w,
	}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write("[VERBOSE] ", format, args)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", format, args)
}

// Warn logs recoverable problems.
func (l *ConsoleLogger) Warn(format string, args ...interface{}) {
	l.write(l.paint(warningStyle, "[WARN]")+" ", format, args)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write(l.paint(errorStyle, "[ERROR]")+" ", format, args)
}

// Marker returns the outcome symbol for o, coloured if enabled.
func (l *ConsoleLogger) Marker(o sfdeploy.Outcome) string {
	switch o {
	case sfdeploy.OutcomeDeployed:
		return l.paint(successStyle, MarkerDeployed)
	case sfdeploy.OutcomeWouldDeploy:
		return l.paint(warningStyle, MarkerWouldDeploy)
	case sfdeploy.OutcomeFailed:
		return l.paint(errorStyle, MarkerFailed)
	case sfdeploy.OutcomeSkipped:
		return l.paint(mutedStyle, MarkerSkipped)
	default:
		return l.paint(mutedStyle, MarkerPending)
	}
}

func (l *ConsoleLogger) paint(style lipgloss.Style, s string) string {
	if !l.color {
		return s
	}
	return style.Render(s)
}

func (l *ConsoleLogger) write(prefix, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, prefix+msg+"\n")
}

// Outcome markers used in per-artifact log lines and summaries.
const (
	MarkerDeployed    = "✓"
	MarkerWouldDeploy = "→"
	MarkerFailed      = "✗"
	MarkerSkipped     = "↷"
	MarkerPending     = "·"
)

// Marker returns the uncoloured outcome symbol for o.
func Marker(o sfdeploy.Outcome) string {
	return NewWriterLogger(io.Discard, false, false).Marker(o)
}

var _ sfdeploy.Logger = (*ConsoleLogger)(nil)
