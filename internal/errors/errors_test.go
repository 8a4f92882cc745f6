//nolint:testpackage // Tests require internal access for thorough testing
package errors

import (
	stderrors "errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{
			name: "formats field and reason",
			err:  ValidationError{Field: "name", Reason: "must not be empty"},
			want: "invalid name: must not be empty",
		},
		{
			name: "handles empty reason",
			err:  ValidationError{Field: "notes", Reason: ""},
			want: "invalid notes: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTaskNotFoundError(t *testing.T) {
	err := TaskNotFoundError{ID: "xyz789"}
	want := "task not found: xyz789"
	if got := err.Error(); got != want {
		t.Errorf("TaskNotFoundError.Error() = %q, want %q", got, want)
	}
}

func TestRemoteUnavailableErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := error(RemoteUnavailableError{Op: "upsert", Err: cause})

	want := "remote unavailable during upsert: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("RemoteUnavailableError.Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("RemoteUnavailableError should unwrap to its cause")
	}

	var target RemoteUnavailableError
	if !stderrors.As(err, &target) || target.Op != "upsert" {
		t.Errorf("errors.As failed, got %+v", target)
	}
}

func TestRemoteUnavailableErrorWithoutCause(t *testing.T) {
	err := RemoteUnavailableError{Op: "query"}
	want := "remote unavailable during query"
	if got := err.Error(); got != want {
		t.Errorf("RemoteUnavailableError.Error() = %q, want %q", got, want)
	}
}

func TestAlreadyActedError(t *testing.T) {
	err := AlreadyActedError{ID: "abc", Date: "2026-01-10"}
	want := "task abc was already acted on for 2026-01-10"
	if got := err.Error(); got != want {
		t.Errorf("AlreadyActedError.Error() = %q, want %q", got, want)
	}
}
