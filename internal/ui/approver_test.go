package ui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestAutoApprover_NoCountdown(t *testing.T) {
	var output bytes.Buffer
	approver := &AutoApprover{output: &output, sleepFn: func(time.Duration) { t.Fatal("unexpected sleep") }}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval")
	}
	if output.Len() != 0 {
		t.Errorf("Expected no output without countdown, got:\n%s", output.String())
	}
}

func TestAutoApprover_ApprovesAfterCountdown(t *testing.T) {
	var output bytes.Buffer
	sleepCalls := 0

	approver := &AutoApprover{
		output:    &output,
		countdown: 3,
		sleepFn: func(d time.Duration) {
			sleepCalls++
		},
	}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval after countdown")
	}
	if sleepCalls != 3 {
		t.Errorf("Expected 3 sleep calls (one per second), got %d", sleepCalls)
	}
	out := output.String()
	if !strings.Contains(out, "ACME/ANALYTICS") || !strings.Contains(out, "2 changed artifact(s)") {
		t.Errorf("Expected target and count in output, got:\n%s", out)
	}
}

func TestAutoApprover_ContextCancellation(t *testing.T) {
	var output bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	sleepCalls := 0
	approver := &AutoApprover{
		output:    &output,
		countdown: 5,
		sleepFn: func(d time.Duration) {
			sleepCalls++
			if sleepCalls >= 2 {
				cancel()
			}
		},
	}

	approved, err := approver.RequestApproval(ctx, "ACME/ANALYTICS", 1)
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
	if approved {
		t.Fatal("Expected approval to be false on cancellation")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Expected context canceled error, got: %v", err)
	}
}

func TestInteractiveApprover_MatchingInput(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: strings.NewReader("ACME/ANALYTICS\n"), output: &output}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval for matching input")
	}

	out := output.String()
	if !strings.Contains(out, "Confirmed") {
		t.Errorf("Expected confirmation message, got:\n%s", out)
	}
	if !strings.Contains(out, "4 changed artifact(s)") {
		t.Errorf("Expected artifact count in prompt, got:\n%s", out)
	}
}

func TestInteractiveApprover_NonMatchingInput(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: strings.NewReader("yes\n"), output: &output}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if approved {
		t.Fatal("Expected denial for non-matching input")
	}

	out := output.String()
	if !strings.Contains(out, "does not match") {
		t.Errorf("Expected mismatch message, got:\n%s", out)
	}
	if !strings.Contains(out, "'yes'") {
		t.Errorf("Expected output to echo user input, got:\n%s", out)
	}
}

func TestInteractiveApprover_InputWithoutNewline(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: strings.NewReader("  ACME/ANALYTICS  "), output: &output}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval for trimmed input at EOF")
	}
}

func TestInteractiveApprover_ReadError(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: &errorReader{err: io.ErrUnexpectedEOF}, output: &output}

	approved, err := approver.RequestApproval(context.Background(), "ACME/ANALYTICS", 1)
	if err == nil {
		t.Fatal("Expected error for read failure")
	}
	if approved {
		t.Fatal("Expected denial on read error")
	}
	if !strings.Contains(err.Error(), "failed to read input") {
		t.Errorf("Expected read error wrapper, got: %v", err)
	}
}

func TestInteractiveApprover_ContextCancellation(t *testing.T) {
	var output bytes.Buffer
	input := newBlockingReader()
	t.Cleanup(func() { input.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	approver := &InteractiveApprover{input: input, output: &output}

	approved, err := approver.RequestApproval(ctx, "ACME/ANALYTICS", 1)
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
	if approved {
		t.Fatal("Expected denial on context cancellation")
	}
}

func TestNewApprover(t *testing.T) {
	if _, ok := NewApprover(ModeInteractive, false).(*InteractiveApprover); !ok {
		t.Error("Expected *InteractiveApprover for an interactive session")
	}

	auto, ok := NewApprover(ModeInteractive, true).(*AutoApprover)
	if !ok {
		t.Fatal("Expected *AutoApprover with skipPrompt")
	}
	if auto.countdown == 0 {
		t.Error("Expected a countdown when skipping the prompt at a terminal")
	}

	auto, ok = NewApprover(ModeNonInteractive, false).(*AutoApprover)
	if !ok {
		t.Fatal("Expected *AutoApprover in non-interactive mode")
	}
	if auto.countdown != 0 {
		t.Errorf("Expected no countdown in CI, got %d", auto.countdown)
	}
}

type errorReader struct {
	err error
}

func (r *errorReader) Read([]byte) (int, error) {
	return 0, r.err
}

type blockingReader struct {
	done chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{done: make(chan struct{})}
}

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.done
	return 0, io.EOF
}

func (r *blockingReader) Close() error {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	return nil
}
