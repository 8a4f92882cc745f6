package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

// Policy is a one-shot conflict resolution strategy.
type Policy string

const (
	// PolicyImport makes the remote authoritative.
	PolicyImport Policy = "import"
	// PolicyMerge unions local and remote.
	PolicyMerge Policy = "merge"
	// PolicyFresh makes the local store authoritative.
	PolicyFresh Policy = "fresh"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyImport, PolicyMerge, PolicyFresh:
		return p, nil
	default:
		return "", cwerrors.InvalidPolicyError{Value: s}
	}
}

// Divergence is the outcome of checking the remote after sign-in.
type Divergence struct {
	UserID      string `json:"userId"`
	RemoteCount int    `json:"remoteCount"`
	LocalCount  int    `json:"localCount"`
	// Pending is true when the remote holds records and a policy must be
	// chosen before pushes resume.
	Pending bool `json:"pending"`
}

// DetectRemoteDivergence queries the remote for userID. An empty remote
// means no conflict. Otherwise the remote snapshot is held and the session
// is marked resolution-pending, which survives restarts.
func (r *Reconciler) DetectRemoteDivergence(ctx context.Context, userID string) (*Divergence, error) {
	r.setState(StateCheckingRemote)

	remoteTasks, err := r.query(ctx, userID)
	if err != nil {
		r.setState(StateIdle)
		return nil, err
	}
	local, err := r.local.All()
	if err != nil {
		r.setState(StateIdle)
		return nil, err
	}

	div := &Divergence{UserID: userID, RemoteCount: len(remoteTasks), LocalCount: len(local)}
	if len(remoteTasks) == 0 {
		r.mu.Lock()
		r.held, r.heldUser = nil, ""
		r.mu.Unlock()
		if _, err := r.sessions.SetResolutionPending(userID, false); err != nil {
			return nil, err
		}
		r.setState(StateNoConflict)
		r.logger.Info("remote is empty, no conflict", "user", userID)
		return div, nil
	}

	r.mu.Lock()
	r.held, r.heldUser = remoteTasks, userID
	r.mu.Unlock()
	if _, err := r.sessions.SetResolutionPending(userID, true); err != nil {
		return nil, err
	}
	r.setState(StateAwaitingUserChoice)
	div.Pending = true
	r.logger.Info("remote has data, awaiting resolution", "user", userID, "remote", len(remoteTasks), "local", len(local))
	return div, nil
}

// ResolveResult reports what a policy did and the push that followed it.
type ResolveResult struct {
	Policy        Policy      `json:"policy"`
	Imported      int         `json:"imported,omitempty"`
	Merged        int         `json:"merged,omitempty"`
	Adopted       int         `json:"adopted,omitempty"`
	RemoteDeleted int         `json:"remoteDeleted,omitempty"`
	Superseded    []string    `json:"superseded,omitempty"`
	Push          *PushResult `json:"push,omitempty"`
	PushError     string      `json:"pushError,omitempty"`
}

// Resolve applies policy to the held remote snapshot, clears the pending
// gate and pushes. A resolution that fails leaves the gate in place.
func (r *Reconciler) Resolve(ctx context.Context, policy Policy) (*ResolveResult, error) {
	sess, err := r.signedIn()
	if err != nil {
		return nil, err
	}
	userID := sess.UserID

	r.mu.Lock()
	held := r.held
	if r.heldUser != userID {
		held = nil
	}
	r.mu.Unlock()

	if held == nil {
		if !sess.ResolutionPending {
			return nil, cwerrors.NoDivergenceError{}
		}
		// The gate was persisted by an earlier process; refetch the snapshot.
		if held, err = r.query(ctx, userID); err != nil {
			return nil, err
		}
	}

	r.setState(StateResolving)
	res := &ResolveResult{Policy: policy}
	switch policy {
	case PolicyImport:
		err = r.resolveImport(held, res)
	case PolicyMerge:
		err = r.resolveMerge(held, res)
	case PolicyFresh:
		err = r.resolveFresh(ctx, userID, res)
	default:
		err = cwerrors.InvalidPolicyError{Value: string(policy)}
	}
	if err != nil {
		r.setState(StateAwaitingUserChoice)
		r.logger.Error("resolution failed", "policy", policy, "error", err)
		return nil, err
	}

	if _, err := r.sessions.SetResolutionPending(userID, false); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.held, r.heldUser = nil, ""
	r.mu.Unlock()
	r.logger.Info("resolution applied", "policy", policy, "user", userID)

	push, pushErr := r.PushDirty(ctx)
	if pushErr != nil {
		res.PushError = pushErr.Error()
		r.logger.Warn("post-resolution push failed", "error", pushErr)
		return res, nil
	}
	res.Push = &push

	// Merged records keep their local ids; retire the remote copies they
	// replaced once the local versions are confirmed.
	for _, id := range res.Superseded {
		if r.local.Exists(id) {
			continue
		}
		if err := r.DeleteRemote(ctx, id); err != nil {
			r.logger.Warn("retire superseded remote record failed", "id", id, "error", err)
		}
	}
	return res, nil
}

// resolveImport replaces local with remote. Any failure restores the local
// snapshot taken before the import began.
func (r *Reconciler) resolveImport(remoteTasks []*task.Task, res *ResolveResult) error {
	before, err := r.local.All()
	if err != nil {
		return err
	}

	now := r.clock.Now().UTC()
	imported := make([]*task.Task, 0, len(remoteTasks))
	for _, rt := range remoteTasks {
		t := rt.Clone()
		t.Synced = true
		t.Remote = true
		stamp(t, now)
		imported = append(imported, t)
	}

	if err := storage.Replace(r.local, imported); err != nil {
		if restoreErr := storage.Replace(r.local, before); restoreErr != nil {
			return fmt.Errorf("import failed (%w) and restore failed: %v", err, restoreErr)
		}
		return fmt.Errorf("import failed, local data restored: %w", err)
	}
	res.Imported = len(imported)
	return nil
}

type mergeKey struct {
	name      string
	frequency task.Frequency
}

func keyOf(t *task.Task) mergeKey {
	return mergeKey{name: strings.TrimSpace(t.Name), frequency: t.Frequency}
}

// resolveMerge matches remote records to local ones by (name, frequency).
// Matches get the union of both histories and keep every other local field;
// unmatched remote records are adopted. Everything touched is marked dirty.
func (r *Reconciler) resolveMerge(remoteTasks []*task.Task, res *ResolveResult) error {
	local, err := r.local.All()
	if err != nil {
		return err
	}
	byKey := make(map[mergeKey][]string, len(local))
	for _, t := range local {
		k := keyOf(t)
		byKey[k] = append(byKey[k], t.ID)
	}

	now := r.clock.Now().UTC()
	for _, rt := range remoteTasks {
		k := keyOf(rt)
		if ids := byKey[k]; len(ids) > 0 {
			localID := ids[0]
			byKey[k] = ids[1:]
			if _, err := r.local.Update(localID, func(t *task.Task) error {
				t.CompletedDates = task.UnionDates(t.CompletedDates, rt.CompletedDates)
				t.SkippedDates = task.UnionDates(t.SkippedDates, rt.SkippedDates)
				t.MissedDates = task.UnionDates(t.MissedDates, rt.MissedDates)
				t.Synced = false
				t.UpdatedAt = now
				return nil
			}); err != nil {
				return fmt.Errorf("merge %s: %w", localID, err)
			}
			res.Merged++
			if rt.ID != localID {
				res.Superseded = append(res.Superseded, rt.ID)
			}
			continue
		}

		adopted := rt.Clone()
		if r.local.Exists(adopted.ID) {
			// Same id, different name or frequency: the local record keeps
			// the id and the remote one is adopted under a fresh id.
			adopted.ID = task.GenerateID(adopted.Name, now, r.local.Exists)
		}
		adopted.Synced = false
		adopted.Remote = adopted.ID == rt.ID
		stamp(adopted, now)
		if err := r.local.Put(adopted); err != nil {
			return fmt.Errorf("adopt %s: %w", rt.ID, err)
		}
		res.Adopted++
	}
	return nil
}

// resolveFresh deletes the user's remote records, then marks every local
// record dirty so the next push repopulates the remote. A remote failure
// leaves local untouched.
func (r *Reconciler) resolveFresh(ctx context.Context, userID string, res *ResolveResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.remote.DeleteByUser(ctx, userID)
	if err != nil {
		return wrapRemote("delete", err)
	}
	res.RemoteDeleted = n

	local, err := r.local.All()
	if err != nil {
		return err
	}
	for _, t := range local {
		if _, err := r.local.Update(t.ID, func(t *task.Task) error {
			t.Synced = false
			t.Remote = false
			return nil
		}); err != nil {
			return fmt.Errorf("mark %s dirty: %w", t.ID, err)
		}
	}
	return nil
}

func (r *Reconciler) query(ctx context.Context, userID string) ([]*task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tasks, err := r.remote.QueryByUser(ctx, userID)
	if err != nil {
		return nil, wrapRemote("query", err)
	}
	return tasks, nil
}

func wrapRemote(op string, err error) error {
	var unavailable cwerrors.RemoteUnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	return cwerrors.RemoteUnavailableError{Op: op, Err: err}
}

// stamp fills local metadata the wire does not carry.
func stamp(t *task.Task, now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Normalize()
}
