package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes each collection to <dir>/<Collection>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) path(name Collection) string {
	return filepath.Join(s.dir, string(name)+".json")
}

// Put replaces the file through a rename so readers never see a partial
// document.
func (s *FileStore) Put(_ context.Context, name Collection, doc []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, string(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, name Collection) ([]byte, error) {
	doc, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return doc, nil
}
