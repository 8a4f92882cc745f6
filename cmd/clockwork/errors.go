package main

import "fmt"

// RemoteNotConfiguredError indicates a sync command ran without remote.url.
type RemoteNotConfiguredError struct{}

func (e RemoteNotConfiguredError) Error() string {
	return "no remote configured: set remote.url in the config file or CLOCKWORK_REMOTE_URL"
}

// InvalidArgumentError indicates a malformed positional argument.
type InvalidArgumentError struct {
	Name  string
	Value string
	Want  string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %q (want %s)", e.Name, e.Value, e.Want)
}
