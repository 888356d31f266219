package logseq

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "invalid config",
			err:  newError(ErrInvalidConfig, "config", "", nil),
			want: "invalid CLI configuration: check graph name and CLI paths",
		},
		{
			name: "invalid config with detail",
			err:  newError(ErrInvalidConfig, "config", "graph name is empty", nil),
			want: "invalid CLI configuration: check graph name and CLI paths (graph name is empty)",
		},
		{
			name: "command failed carries stderr",
			err:  newError(ErrCommandFailed, "query", "Graph 'x' does not exist\n", nil),
			want: "logseq CLI command failed: Graph 'x' does not exist",
		},
		{
			name: "conversion failed carries stderr",
			err:  newError(ErrConversionFailed, "convert", "EOF while reading", nil),
			want: "EDN to JSON conversion failed: EOF while reading",
		},
		{
			name: "decode",
			err:  newError(ErrDecodingFailed, "decode", "2-byte object \"{}\"", nil),
			want: "failed to decode response: 2-byte object \"{}\"",
		},
		{
			name: "launch falls back to cause",
			err:  newError(ErrProcessLaunch, "exec", "", os.ErrPermission),
			want: "process execution error: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("running: %w", newError(ErrProcessLaunch, "exec", "boom", os.ErrNotExist))

	if !errors.Is(err, ErrProcessLaunch) {
		t.Error("errors.Is(err, ErrProcessLaunch) = false")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("cause not reachable through errors.Is")
	}
	if errors.Is(err, ErrCommandFailed) {
		t.Error("launch error must not match ErrCommandFailed")
	}

	var e *Error
	if !errors.As(err, &e) || e.Op != "exec" {
		t.Errorf("errors.As failed: %v", e)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		kind       error
		userAction bool
		fatal      bool
		defect     bool
	}{
		{ErrInvalidConfig, true, true, false},
		{ErrCommandFailed, true, false, false},
		{ErrConversionFailed, false, false, true},
		{ErrDecodingFailed, false, false, true},
		{ErrProcessLaunch, false, true, false},
	}

	for _, tt := range tests {
		err := newError(tt.kind, "op", "detail", nil)
		if got := IsUserActionRequired(err); got != tt.userAction {
			t.Errorf("IsUserActionRequired(%v) = %v, want %v", tt.kind, got, tt.userAction)
		}
		if got := IsFatal(err); got != tt.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.kind, got, tt.fatal)
		}
		if got := IsDefect(err); got != tt.defect {
			t.Errorf("IsDefect(%v) = %v, want %v", tt.kind, got, tt.defect)
		}
	}

	if IsUserActionRequired(nil) || IsFatal(nil) || IsDefect(nil) {
		t.Error("nil error should not classify")
	}
}
