// Package session persists who is signed in on this device and whether a
// remote resolution is still pending for them.
package session

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

const sessionFile = "session.json"

// Session is the signed-in identity of this device.
type Session struct {
	UserID            string     `json:"user_id"`
	SignedInAt        time.Time  `json:"signed_in_at"`
	Source            string     `json:"source"`
	ResolutionPending bool       `json:"resolution_pending"`
	PendingSince      *time.Time `json:"pending_since,omitempty"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
}

// EventType is an identity-provider transition.
type EventType string

const (
	EventSignedIn        EventType = "signed_in"
	EventSignedOut       EventType = "signed_out"
	EventSessionRestored EventType = "session_restored"
)

// Event is the JSON an identity provider hands to `clockwork session event`.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`
}

// ReadEvent parses an identity event from r.
func ReadEvent(r io.Reader) (*Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("no input from stdin")
	}

	var ev Event
	if unmarshalErr := json.Unmarshal(data, &ev); unmarshalErr != nil {
		return nil, unmarshalErr
	}

	switch ev.Type {
	case EventSignedIn, EventSessionRestored:
		if ev.UserID == "" {
			return nil, cwerrors.ValidationError{Field: "user_id", Reason: "is required"}
		}
	case EventSignedOut:
	default:
		return nil, cwerrors.ValidationError{Field: "type", Reason: string(ev.Type)}
	}

	return &ev, nil
}

func sessionPath(basePath string) string {
	return filepath.Join(basePath, sessionFile)
}

// Exists checks if a session file exists.
func Exists(basePath string) bool {
	_, err := os.Stat(sessionPath(basePath))
	return err == nil
}

// Load reads the session from disk.
func Load(basePath string) (*Session, error) {
	data, err := os.ReadFile(sessionPath(basePath))
	if err != nil {
		return nil, err
	}

	var s Session
	if unmarshalErr := json.Unmarshal(data, &s); unmarshalErr != nil {
		return nil, unmarshalErr
	}

	return &s, nil
}

// Save writes the session to disk.
func Save(basePath string, s *Session) error {
	//nolint:gosec // G301: 0755 is appropriate for user-accessible session directory
	if mkdirErr := os.MkdirAll(basePath, 0o755); mkdirErr != nil {
		return mkdirErr
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(sessionPath(basePath), data, 0o600)
}

// Delete removes the session file.
func Delete(basePath string) error {
	err := os.Remove(sessionPath(basePath))
	if os.IsNotExist(err) {
		return nil // Already deleted, not an error
	}
	return err
}

// Store serializes session reads and writes within one process.
type Store struct {
	mu       sync.Mutex
	basePath string
	now      func() time.Time
}

func NewStore(basePath string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{basePath: basePath, now: now}
}

// Current returns the active session, or nil when nobody is signed in.
func (s *Store) Current() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Store) current() (*Session, error) {
	sess, err := Load(s.basePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return sess, err
}

// SignIn claims the device for userID. The first user wins: signing in as
// someone else while a session exists fails with SessionConflictError.
// Signing in again as the same user keeps the existing session.
func (s *Store) SignIn(userID, source string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.current()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != userID {
			return nil, cwerrors.SessionConflictError{Owner: existing.UserID}
		}
		return existing, nil
	}

	sess := &Session{
		UserID:     userID,
		SignedInAt: s.now().UTC(),
		Source:     source,
	}
	if err := Save(s.basePath, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SignOut removes the session if userID owns it. An empty userID signs out
// whoever is signed in. Returns true if a session was removed.
func (s *Store) SignOut(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.current()
	if err != nil || existing == nil {
		return false, err
	}
	if userID != "" && existing.UserID != userID {
		return false, nil
	}
	if err := Delete(s.basePath); err != nil {
		return false, err
	}
	return true, nil
}

// SetResolutionPending updates the pending flag. Only the session owner can
// do this.
func (s *Store) SetResolutionPending(userID string, pending bool) (bool, error) {
	return s.modify(userID, func(sess *Session) {
		sess.ResolutionPending = pending
		if pending {
			now := s.now().UTC()
			sess.PendingSince = &now
		} else {
			sess.PendingSince = nil
		}
	})
}

// RecordSync stores the time of the last successful push.
func (s *Store) RecordSync(userID string, at time.Time) (bool, error) {
	return s.modify(userID, func(sess *Session) {
		at = at.UTC()
		sess.LastSyncTime = &at
	})
}

func (s *Store) modify(userID string, fn func(*Session)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.current()
	if err != nil || existing == nil {
		return false, err
	}
	if existing.UserID != userID {
		return false, nil
	}
	fn(existing)
	if err := Save(s.basePath, existing); err != nil {
		return false, err
	}
	return true, nil
}
