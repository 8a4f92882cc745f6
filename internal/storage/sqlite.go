package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// OpenSQLite creates or opens the SQLite database at dbPath with WAL mode
// and a busy timeout. Transactions begin IMMEDIATE so a read-modify-write
// holds the write lock from its first read. Callers own the schema.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	return db, nil
}

const localSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	synced     INTEGER NOT NULL DEFAULT 0,
	remote     INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_synced ON tasks(synced);
`

// SQLiteStore keeps clockworks in a single SQLite table. The wire fields are
// stored as a JSON document; sync bookkeeping has its own columns.
type SQLiteStore struct {
	base
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s := &SQLiteStore{db: db}
	s.b = s
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execer is the subset of *sql.DB and *sql.Tx the row helpers need.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(id string) (*task.Task, error) {
	return loadRow(s.db, id)
}

func (s *SQLiteStore) save(t *task.Task) error {
	return saveRow(s.db, t)
}

// update holds one IMMEDIATE transaction across load and save, so a writer
// in another process waits on the busy timeout instead of interleaving.
func (s *SQLiteStore) update(id string, fn func(*task.Task) error) (*task.Task, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin update %s: %w", id, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	load := func(id string) (*task.Task, error) { return loadRow(tx, id) }
	save := func(t *task.Task) error { return saveRow(tx, t) }
	current, written, err := modify(id, load, save, fn)
	if err != nil || !written {
		return current, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit update %s: %w", id, err)
	}
	return current, true, nil
}

func loadRow(q execer, id string) (*task.Task, error) {
	row := q.QueryRow(`SELECT data, synced, remote, created_at, updated_at FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cwerrors.TaskNotFoundError{ID: id}
	}
	return t, err
}

func saveRow(q execer, t *task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.ID, err)
	}
	_, err = q.Exec(`
		INSERT INTO tasks (id, data, synced, remote, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			synced = excluded.synced,
			remote = excluded.remote,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		t.ID, string(data), t.Synced, t.Remote, toUnixNano(t.CreatedAt), toUnixNano(t.UpdatedAt),
	)
	return err
}

func (s *SQLiteStore) remove(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cwerrors.TaskNotFoundError{ID: id}
	}
	return nil
}

func (s *SQLiteStore) list() ([]*task.Task, error) {
	rows, err := s.db.Query(`SELECT data, synced, remote, created_at, updated_at FROM tasks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) removeAll() error {
	_, err := s.db.Exec(`DELETE FROM tasks`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		data               string
		synced, remote     bool
		createdAt, updated int64
	)
	if err := row.Scan(&data, &synced, &remote, &createdAt, &updated); err != nil {
		return nil, err
	}
	var t task.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	t.Synced = synced
	t.Remote = remote
	t.CreatedAt = fromUnixNano(createdAt)
	t.UpdatedAt = fromUnixNano(updated)
	t.Normalize()
	return &t, nil
}

// Zero times are stored as 0; UnixNano is undefined for them.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
