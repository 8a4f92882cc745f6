package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/remote"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

const pushKey = "push"

// PushResult reports one push batch.
type PushResult struct {
	BatchID string            `json:"batchId,omitempty"`
	Pushed  int               `json:"pushed"`
	Synced  []string          `json:"synced"`
	Failed  map[string]string `json:"failed,omitempty"`
	// Changed lists records confirmed remotely but edited locally while the
	// push was in flight. They stay dirty for the next push.
	Changed []string `json:"changed,omitempty"`
}

// sameContent compares everything the remote sees.
var sameContent = cmp.Options{
	cmpopts.IgnoreFields(task.Task{}, "Synced", "Remote", "UpdatedAt"),
	cmpopts.EquateEmpty(),
}

// PushDirty upserts every dirty record. Concurrent callers share one
// in-flight push and its result. A push that outlives the timeout is
// abandoned: its context is cancelled, nothing is marked synced, and the
// next caller starts a new push.
func (r *Reconciler) PushDirty(ctx context.Context) (PushResult, error) {
	sess, err := r.signedIn()
	if err != nil {
		return PushResult{}, err
	}
	if sess.ResolutionPending {
		return PushResult{}, cwerrors.ResolutionPendingError{UserID: sess.UserID}
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	ch := r.flight.DoChan(pushKey, func() (any, error) {
		defer cancel()
		return r.push(pushCtx, sess.UserID)
	})

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		cancel()
		if res.Err != nil {
			return PushResult{}, res.Err
		}
		return res.Val.(PushResult), nil //nolint:forcetypeassert // push only returns PushResult
	case <-timer.C:
		r.flight.Forget(pushKey)
		cancel()
		r.logger.Warn("push timed out", "timeout", r.timeout)
		return PushResult{}, cwerrors.RemoteUnavailableError{Op: "push", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		// The push may be shared with other callers; let it finish.
		go func() {
			<-ch
			cancel()
		}()
		return PushResult{}, ctx.Err()
	}
}

func (r *Reconciler) push(ctx context.Context, userID string) (PushResult, error) {
	r.beginPush()
	defer r.endPush()

	dirty, err := storage.Dirty(r.local)
	if err != nil {
		return PushResult{}, fmt.Errorf("read dirty records: %w", err)
	}
	if len(dirty) == 0 {
		return PushResult{Synced: []string{}}, nil
	}

	res := PushResult{BatchID: uuid.NewString(), Pushed: len(dirty), Synced: []string{}}
	log := r.logger.With("batch", res.BatchID, "user", userID)
	log.Info("pushing dirty records", "count", len(dirty))

	// Batches already confirmed stay synced if a later one fails.
	for start := 0; start < len(dirty); start += remote.MaxBatch {
		batch := dirty[start:min(start+remote.MaxBatch, len(dirty))]
		upserted, err := r.remote.Upsert(ctx, userID, batch)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			err = wrapRemote("push", err)
			log.Error("push failed", "error", err, "synced", len(res.Synced))
			return PushResult{}, err
		}
		if err := r.confirm(batch, upserted, &res); err != nil {
			return res, err
		}
	}
	if len(res.Failed) > 0 {
		log.Warn("some records failed to push", "failed", len(res.Failed))
	}

	if _, err := r.sessions.RecordSync(userID, r.clock.Now()); err != nil {
		log.Warn("record sync time failed", "error", err)
	}
	log.Info("push complete", "synced", len(res.Synced), "failed", len(res.Failed), "changed", len(res.Changed))
	return res, nil
}

// confirm marks the records the remote accepted as synced, unless they were
// edited locally after the snapshot in batch was taken.
func (r *Reconciler) confirm(batch []*task.Task, upserted remote.UpsertResult, res *PushResult) error {
	snapshots := make(map[string]*task.Task, len(batch))
	for _, t := range batch {
		snapshots[t.ID] = t
	}

	for _, id := range upserted.Succeeded {
		snap, ok := snapshots[id]
		if !ok {
			continue
		}
		changed := false
		_, err := r.local.Update(id, func(current *task.Task) error {
			if !cmp.Equal(current, snap, sameContent) {
				changed = true
				return storage.ErrUnchanged
			}
			current.Synced = true
			current.Remote = true
			return nil
		})
		var nf cwerrors.TaskNotFoundError
		switch {
		case errors.As(err, &nf):
			// Deleted locally mid-push; the tracker handles the remote side.
		case err != nil:
			return fmt.Errorf("mark %s synced: %w", id, err)
		case changed:
			res.Changed = append(res.Changed, id)
		default:
			res.Synced = append(res.Synced, id)
		}
	}
	for id, reason := range upserted.Failed {
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		res.Failed[id] = reason
	}
	return nil
}
