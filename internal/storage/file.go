package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

const fileExt = ".md"

// FileStore keeps one markdown file per clockwork under basePath.
type FileStore struct {
	base
	basePath string
}

// NewFileStore creates a FileStore rooted at path.
func NewFileStore(path string) *FileStore {
	s := &FileStore{basePath: path}
	s.b = s
	return s
}

// BasePath returns the base path of the store.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// IsInitialized checks if the store directory exists.
func (s *FileStore) IsInitialized() bool {
	info, err := os.Stat(s.basePath)
	return err == nil && info.IsDir()
}

// Init creates the store directory.
func (s *FileStore) Init(force bool) error {
	if s.IsInitialized() && !force {
		return cwerrors.AlreadyInitializedError{Path: s.basePath}
	}
	return os.MkdirAll(s.basePath, 0o755)
}

func (s *FileStore) taskPath(id string) string {
	return filepath.Join(s.basePath, id+fileExt)
}

// lockFile takes the OS lock guarding id's file. Lock files are dot files,
// so ids() never lists them, and they are left in place after a delete.
func (s *FileStore) lockFile(id string) (func(), error) {
	if !s.IsInitialized() {
		return nil, cwerrors.NotInitializedError{Path: s.basePath}
	}
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, cwerrors.TaskNotFoundError{ID: id}
	}
	fl := flock.New(filepath.Join(s.basePath, "."+id+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", id, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *FileStore) load(id string) (*task.Task, error) {
	if !s.IsInitialized() {
		return nil, cwerrors.NotInitializedError{Path: s.basePath}
	}
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, cwerrors.TaskNotFoundError{ID: id}
	}
	content, err := os.ReadFile(s.taskPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, cwerrors.TaskNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return ParseMarkdown(content)
}

func (s *FileStore) save(t *task.Task) error {
	unlock, err := s.lockFile(t.ID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(t)
}

// update holds the record's file lock from read to rename.
func (s *FileStore) update(id string, fn func(*task.Task) error) (*task.Task, bool, error) {
	unlock, err := s.lockFile(id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()
	return modify(id, s.load, s.write, fn)
}

// write goes through a temp file so readers never see a torn record.
func (s *FileStore) write(t *task.Task) error {
	if !s.IsInitialized() {
		return cwerrors.NotInitializedError{Path: s.basePath}
	}
	content, err := SerializeMarkdown(t)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, "."+t.ID+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.taskPath(t.ID))
}

func (s *FileStore) remove(id string) error {
	unlock, err := s.lockFile(id)
	if err != nil {
		return err
	}
	defer unlock()
	err = os.Remove(s.taskPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return cwerrors.TaskNotFoundError{ID: id}
	}
	return err
}

func (s *FileStore) list() ([]*task.Task, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.load(id)
		if err != nil {
			continue // Skip malformed files
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *FileStore) removeAll() error {
	ids, err := s.ids()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := os.Remove(s.taskPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// AllIDs returns all task IDs (for ID generation collision checking).
func (s *FileStore) AllIDs() (map[string]bool, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *FileStore) ids() ([]string, error) {
	if !s.IsInitialized() {
		return nil, cwerrors.NotInitializedError{Path: s.basePath}
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	return ids, nil
}
