// Package remote defines the per-user replica that local stores reconcile
// against, with an HTTP client and an in-memory implementation.
package remote

import (
	"context"

	"github.com/abatilo/clockwork/internal/task"
)

// UpsertResult reports per-record outcomes of a batch upsert. A record is in
// exactly one of the two sets.
type UpsertResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// Store is the remote replica, partitioned by user.
type Store interface {
	// Upsert writes tasks keyed by id. Records owned by another user are
	// reported as failed and never overwritten.
	Upsert(ctx context.Context, userID string, tasks []*task.Task) (UpsertResult, error)
	QueryByUser(ctx context.Context, userID string) ([]*task.Task, error)
	// DeleteByUser removes every record of the user and returns how many.
	DeleteByUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
}

// MaxBatch bounds the number of tasks in one upsert. Servers reject larger
// batches, so clients split their pushes.
const MaxBatch = 500

// UpsertRequest is the wire body of a batch upsert.
type UpsertRequest struct {
	Tasks []*task.Task `json:"tasks"`
}

// DeleteResponse is the wire body of a bulk delete.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ErrorResponse is the wire body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserHeader carries the authenticated user id on every request.
const UserHeader = "X-Clockwork-User"

// ownedByOther is the failure reason for cross-user writes.
const ownedByOther = "owned by another user"
