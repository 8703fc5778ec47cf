package ui

import (
	"testing"
)

func TestDetectMode_SFDEPLOY_NON_INTERACTIVE(t *testing.T) {
	t.Setenv("SFDEPLOY_NON_INTERACTIVE", "1")
	t.Setenv("CI", "")

	if got := DetectMode(); got != ModeNonInteractive {
		t.Errorf("DetectMode() = %d, want ModeNonInteractive", got)
	}
}

func TestDetectMode_CI(t *testing.T) {
	t.Setenv("SFDEPLOY_NON_INTERACTIVE", "")
	t.Setenv("CI", "true")

	if got := DetectMode(); got != ModeNonInteractive {
		t.Errorf("DetectMode() = %d, want ModeNonInteractive", got)
	}
}

func TestIsInteractive_ReturnsFalseInTests(t *testing.T) {
	// In test context, stdin is not a terminal
	t.Setenv("SFDEPLOY_NON_INTERACTIVE", "")
	t.Setenv("CI", "")

	if IsInteractive() {
		t.Error("IsInteractive() = true in test environment, want false")
	}
}
