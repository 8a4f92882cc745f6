// Package reconcile keeps the local store and the remote replica in step.
//
// Pushes are single-flight and bounded by a timeout. Signing in against a
// non-empty remote gates pushes until the user picks a resolution policy.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abatilo/clockwork/internal/clock"
	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/remote"
	"github.com/abatilo/clockwork/internal/session"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

const DefaultPushTimeout = 20 * time.Second

// State is the reconciler session state.
type State string

const (
	StateIdle               State = "idle"
	StateCheckingRemote     State = "checking_remote"
	StateNoConflict         State = "no_conflict"
	StateAwaitingUserChoice State = "awaiting_user_choice"
	StateResolving          State = "resolving"
	StatePushing            State = "pushing"
)

type Options struct {
	PushTimeout time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

type Reconciler struct {
	local    storage.LocalStore
	remote   remote.Store
	sessions *session.Store
	clock    clock.Clock
	timeout  time.Duration
	logger   *slog.Logger

	flight singleflight.Group

	mu    sync.Mutex
	state State
	// pushes counts pushes in flight. A push abandoned on timeout can still
	// be running when the next one starts.
	pushes   int
	held     []*task.Task
	heldUser string
}

func New(local storage.LocalStore, rs remote.Store, sessions *session.Store, opts Options) *Reconciler {
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = DefaultPushTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		local:    local,
		remote:   rs,
		sessions: sessions,
		clock:    opts.Clock,
		timeout:  opts.PushTimeout,
		logger:   opts.Logger,
		state:    StateIdle,
	}
}

// State returns the current session state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	if prev != s {
		r.logger.Debug("reconciler state", "from", prev, "to", s)
	}
}

// IsSyncing reports whether a push is in flight.
func (r *Reconciler) IsSyncing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes > 0
}

func (r *Reconciler) beginPush() {
	r.mu.Lock()
	r.pushes++
	r.mu.Unlock()
	r.setState(StatePushing)
}

// endPush returns to idle only when the last push in flight finishes.
func (r *Reconciler) endPush() {
	r.mu.Lock()
	r.pushes--
	last := r.pushes == 0
	prev := r.state
	if last {
		r.state = StateIdle
	}
	r.mu.Unlock()
	if last && prev != StateIdle {
		r.logger.Debug("reconciler state", "from", prev, "to", StateIdle)
	}
}

// LastSyncTime returns the time of the last successful push, if any.
func (r *Reconciler) LastSyncTime() (*time.Time, error) {
	sess, err := r.sessions.Current()
	if err != nil || sess == nil {
		return nil, err
	}
	return sess.LastSyncTime, nil
}

// Status is a point-in-time summary for display.
type Status struct {
	UserID            string     `json:"userId,omitempty"`
	State             State      `json:"state"`
	Syncing           bool       `json:"syncing"`
	ResolutionPending bool       `json:"resolutionPending"`
	Dirty             int        `json:"dirty"`
	LastSyncTime      *time.Time `json:"lastSyncTime,omitempty"`
}

func (r *Reconciler) Status() (Status, error) {
	st := Status{State: r.State(), Syncing: r.IsSyncing()}
	sess, err := r.sessions.Current()
	if err != nil {
		return st, err
	}
	if sess != nil {
		st.UserID = sess.UserID
		st.ResolutionPending = sess.ResolutionPending
		st.LastSyncTime = sess.LastSyncTime
		if sess.ResolutionPending {
			st.State = StateAwaitingUserChoice
		}
	}
	dirty, err := storage.Dirty(r.local)
	if err != nil {
		return st, err
	}
	st.Dirty = len(dirty)
	return st, nil
}

// DeleteRemote removes one record from the remote replica. It satisfies
// tracker.RemoteDeleter.
func (r *Reconciler) DeleteRemote(ctx context.Context, id string) error {
	sess, err := r.signedIn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.remote.Delete(ctx, sess.UserID, id)
	var nf cwerrors.TaskNotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

// OnIdentityEvent reacts to an identity-provider transition. It returns the
// divergence check result when one ran.
func (r *Reconciler) OnIdentityEvent(ctx context.Context, ev session.Event) (*Divergence, error) {
	switch ev.Type {
	case session.EventSignedIn:
		if _, err := r.sessions.SignIn(ev.UserID, "event"); err != nil {
			return nil, err
		}
		r.logger.Info("signed in", "user", ev.UserID)
		return r.checkAndPush(ctx, ev.UserID)

	case session.EventSessionRestored:
		sess, err := r.sessions.SignIn(ev.UserID, "restore")
		if err != nil {
			return nil, err
		}
		if !sess.ResolutionPending {
			return nil, nil
		}
		return r.DetectRemoteDivergence(ctx, ev.UserID)

	case session.EventSignedOut:
		if _, err := r.sessions.SignOut(ev.UserID); err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.held, r.heldUser = nil, ""
		r.mu.Unlock()
		r.setState(StateIdle)
		r.logger.Info("signed out", "user", ev.UserID)
		return nil, nil

	default:
		return nil, cwerrors.ValidationError{Field: "event", Reason: string(ev.Type)}
	}
}

func (r *Reconciler) checkAndPush(ctx context.Context, userID string) (*Divergence, error) {
	div, err := r.DetectRemoteDivergence(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !div.Pending {
		if _, err := r.PushDirty(ctx); err != nil {
			r.logger.Warn("initial push failed", "user", userID, "error", err)
		}
	}
	return div, nil
}

func (r *Reconciler) signedIn() (*session.Session, error) {
	sess, err := r.sessions.Current()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, cwerrors.AuthRequiredError{}
	}
	return sess, nil
}
