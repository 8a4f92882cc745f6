//nolint:testpackage // Tests require internal access for thorough testing
package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
}

func TestSessionSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	synced := fixedNow()
	original := &Session{
		UserID:            "alice",
		Source:            "cli",
		ResolutionPending: true,
		LastSyncTime:      &synced,
	}

	if err := Save(tmpDir, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.UserID != original.UserID {
		t.Errorf("UserID = %q, want %q", loaded.UserID, original.UserID)
	}
	if !loaded.ResolutionPending {
		t.Error("ResolutionPending should survive a reload")
	}
	if loaded.LastSyncTime == nil || !loaded.LastSyncTime.Equal(synced) {
		t.Errorf("LastSyncTime = %v, want %v", loaded.LastSyncTime, synced)
	}
}

func TestSignInFirstWriterWins(t *testing.T) {
	store := NewStore(t.TempDir(), fixedNow)

	sess, err := store.SignIn("alice", "cli")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if sess.UserID != "alice" || !sess.SignedInAt.Equal(fixedNow()) {
		t.Errorf("session = %+v", sess)
	}

	if _, err := store.SignIn("alice", "stdin"); err != nil {
		t.Errorf("repeat SignIn for the owner should succeed, got %v", err)
	}

	_, err = store.SignIn("bob", "cli")
	var conflict cwerrors.SessionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("SignIn(bob) = %v, want SessionConflictError", err)
	}
	if conflict.Owner != "alice" {
		t.Errorf("Owner = %q, want alice", conflict.Owner)
	}
}

func TestSignOutOwnerOnly(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir, fixedNow)

	if _, err := store.SignIn("alice", "cli"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	released, err := store.SignOut("bob")
	if err != nil {
		t.Fatalf("SignOut(bob) failed: %v", err)
	}
	if released {
		t.Error("non-owner should not be able to sign out")
	}
	if !Exists(tmpDir) {
		t.Error("session should still exist")
	}

	released, err = store.SignOut("alice")
	if err != nil || !released {
		t.Fatalf("SignOut(alice) = %v, %v", released, err)
	}
	if Exists(tmpDir) {
		t.Error("session file should be removed")
	}

	current, err := store.Current()
	if err != nil || current != nil {
		t.Errorf("Current after sign out = %v, %v", current, err)
	}
}

func TestResolutionPendingPersists(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir, fixedNow)

	if _, err := store.SignIn("alice", "cli"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if ok, err := store.SetResolutionPending("bob", true); err != nil || ok {
		t.Errorf("non-owner SetResolutionPending = %v, %v", ok, err)
	}
	if ok, err := store.SetResolutionPending("alice", true); err != nil || !ok {
		t.Fatalf("SetResolutionPending = %v, %v", ok, err)
	}

	// A fresh store over the same directory sees the gate.
	reloaded, err := NewStore(tmpDir, nil).Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !reloaded.ResolutionPending || reloaded.PendingSince == nil {
		t.Errorf("pending state lost: %+v", reloaded)
	}

	if _, err := store.SetResolutionPending("alice", false); err != nil {
		t.Fatalf("clear pending failed: %v", err)
	}
	cleared, _ := store.Current()
	if cleared.ResolutionPending || cleared.PendingSince != nil {
		t.Errorf("pending state not cleared: %+v", cleared)
	}
}

func TestRecordSync(t *testing.T) {
	store := NewStore(t.TempDir(), fixedNow)
	if ok, err := store.RecordSync("alice", fixedNow()); err != nil || ok {
		t.Errorf("RecordSync without session = %v, %v", ok, err)
	}

	if _, err := store.SignIn("alice", "cli"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	at := fixedNow().Add(time.Hour)
	if ok, err := store.RecordSync("alice", at); err != nil || !ok {
		t.Fatalf("RecordSync = %v, %v", ok, err)
	}
	sess, _ := store.Current()
	if sess.LastSyncTime == nil || !sess.LastSyncTime.Equal(at) {
		t.Errorf("LastSyncTime = %v, want %v", sess.LastSyncTime, at)
	}
}

func TestReadEvent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    EventType
		wantErr bool
	}{
		{"signed in", `{"type":"signed_in","user_id":"alice"}`, EventSignedIn, false},
		{"restored", `{"type":"session_restored","user_id":"alice"}`, EventSessionRestored, false},
		{"signed out without user", `{"type":"signed_out"}`, EventSignedOut, false},
		{"signed in without user", `{"type":"signed_in"}`, "", true},
		{"unknown type", `{"type":"token_refreshed","user_id":"alice"}`, "", true},
		{"empty", ``, "", true},
		{"garbage", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ReadEvent(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("ReadEvent(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadEvent failed: %v", err)
			}
			if ev.Type != tt.want {
				t.Errorf("Type = %q, want %q", ev.Type, tt.want)
			}
		})
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	tmpDir := t.TempDir()
	if err := Delete(tmpDir); err != nil {
		t.Errorf("Delete on empty dir = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, sessionFile)); !os.IsNotExist(err) {
		t.Errorf("unexpected session file: %v", err)
	}
}
