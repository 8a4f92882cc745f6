package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/remote"
	"github.com/abatilo/clockwork/internal/storage"
	"github.com/abatilo/clockwork/internal/task"
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS remote_tasks (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_remote_tasks_owner ON remote_tasks(owner);
`

// SQLiteStore is the server-side remote.Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ remote.Store = (*SQLiteStore)(nil)

func OpenStore(dbPath string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(remoteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert writes each record in one transaction. The conflict clause only
// updates rows the caller owns, so a zero row count means another user owns
// the id.
func (s *SQLiteStore) Upsert(ctx context.Context, userID string, tasks []*task.Task) (remote.UpsertResult, error) {
	res := remote.UpsertResult{Succeeded: []string{}, Failed: map[string]string{}}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO remote_tasks (id, owner, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		WHERE remote_tasks.owner = excluded.owner`)
	if err != nil {
		return res, err
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, t := range tasks {
		data, err := json.Marshal(t)
		if err != nil {
			res.Failed[t.ID] = err.Error()
			continue
		}
		r, err := stmt.ExecContext(ctx, t.ID, userID, string(data), now)
		if err != nil {
			res.Failed[t.ID] = err.Error()
			continue
		}
		if n, _ := r.RowsAffected(); n == 0 {
			res.Failed[t.ID] = "owned by another user"
			continue
		}
		res.Succeeded = append(res.Succeeded, t.ID)
	}

	if err := tx.Commit(); err != nil {
		return remote.UpsertResult{}, err
	}
	return res, nil
}

func (s *SQLiteStore) QueryByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM remote_tasks WHERE owner = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var t task.Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		t.Normalize()
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	r, err := s.db.ExecContext(ctx, `DELETE FROM remote_tasks WHERE owner = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := r.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	r, err := s.db.ExecContext(ctx, `DELETE FROM remote_tasks WHERE id = ? AND owner = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return cwerrors.TaskNotFoundError{ID: id}
	}
	return nil
}
