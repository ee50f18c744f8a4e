package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(ValidationError, "bad input")
	if KindOf(err) != ValidationError {
		t.Errorf("expected ValidationError, got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != Exception {
		t.Error("plain errors must classify as Exception")
	}
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	inner := New(FileNotFound, "./configuration.json")
	wrapped := fmt.Errorf("loading: %w", inner)

	if !IsKind(wrapped, FileNotFound) {
		t.Error("IsKind must see through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, ValidationError) {
		t.Error("wrong kind must not match")
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(Exception, cause, "saving artifact")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause must unwrap")
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("cause missing from message: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "saving artifact") {
		t.Errorf("context missing from message: %q", err.Error())
	}
}
