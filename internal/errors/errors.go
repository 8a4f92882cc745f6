//nolint:revive // Package name intentionally matches stdlib for domain clarity
package errors

import "fmt"

// NotInitializedError indicates the data directory doesn't exist.
type NotInitializedError struct {
	Path string
}

func (e NotInitializedError) Error() string {
	return fmt.Sprintf("clockwork not initialized at %s: run 'clockwork init' first", e.Path)
}

// AlreadyInitializedError indicates the data directory already exists.
type AlreadyInitializedError struct {
	Path string
}

func (e AlreadyInitializedError) Error() string {
	return fmt.Sprintf("clockwork already initialized at %s", e.Path)
}

// TaskNotFoundError indicates the task ID doesn't match any record.
type TaskNotFoundError struct {
	ID string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// ValidationError indicates a field failed validation. Nothing has been written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteUnavailableError wraps a network or remote-side failure.
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e RemoteUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote unavailable during %s", e.Op)
	}
	return fmt.Sprintf("remote unavailable during %s: %v", e.Op, e.Err)
}

func (e RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// AuthRequiredError indicates a sync was attempted without a signed-in user.
type AuthRequiredError struct{}

func (e AuthRequiredError) Error() string {
	return "not signed in: run 'clockwork login' first"
}

// ResolutionPendingError indicates remote data exists and no resolution policy
// has been applied yet.
type ResolutionPendingError struct {
	UserID string
}

func (e ResolutionPendingError) Error() string {
	return fmt.Sprintf(
		"remote data exists for %s: run 'clockwork resolve <import|merge|fresh>' before syncing",
		e.UserID,
	)
}

// NoDivergenceError indicates resolve was called with nothing to resolve.
type NoDivergenceError struct{}

func (e NoDivergenceError) Error() string {
	return "no remote divergence to resolve"
}

// AlreadyActedError indicates the task was already completed or skipped for
// the current occurrence.
type AlreadyActedError struct {
	ID   string
	Date string
}

func (e AlreadyActedError) Error() string {
	return fmt.Sprintf("task %s was already acted on for %s", e.ID, e.Date)
}

// SessionConflictError indicates another user already owns the local session.
type SessionConflictError struct {
	Owner string
}

func (e SessionConflictError) Error() string {
	return fmt.Sprintf("already signed in as %s; run 'clockwork logout' first", e.Owner)
}

// InvalidPolicyError indicates an unknown conflict resolution policy.
type InvalidPolicyError struct {
	Value string
}

func (e InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy: %s (valid: import, merge, fresh)", e.Value)
}
