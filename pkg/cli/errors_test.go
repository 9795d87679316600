package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/iptvrelay/pkg/config"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with field",
			err:  NewConfigError("upstream.target", "is required"),
			want: "config error in upstream.target: is required",
		},
		{
			name: "without field",
			err:  NewConfigError("", "failed to read file"),
			want: "config error: failed to read file",
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

func TestWrapConfigError(t *testing.T) {
	single := fmt.Errorf("loading: %w", config.ValidationError{Errors: []config.FieldError{
		{Field: "limits.max_streams", Message: "must not be negative"},
	}})
	err := WrapConfigError(single)
	if err.Field != "limits.max_streams" || err.Message != "must not be negative" {
		t.Errorf("WrapConfigError() = %+v", err)
	}
	if !errors.As(err, new(config.ValidationError)) {
		t.Error("wrapped error should still unwrap to ValidationError")
	}

	multi := config.ValidationError{Errors: []config.FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if err := WrapConfigError(multi); err.Field != "" {
		t.Errorf("Field = %q, want empty for multiple errors", err.Field)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := errors.New("listen tcp :8080: address already in use")
	err := NewCommandError("run", underlying)

	if got, want := err.Error(), "command run failed: "+underlying.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("x", "y"), ExitConfig},
		{"wrapped config", NewCommandError("validate", NewConfigError("x", "y")), ExitConfig},
		{"command", NewCommandError("run", errors.New("boom")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
