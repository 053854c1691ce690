package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore persists artifacts as files below a root directory. Writes go to
// a temporary file first and are renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created lazily.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file path of an artifact.
func (s *FileStore) Path(namespace, artifactID string) string {
	return filepath.Join(s.dir, namespace, artifactID)
}

// Save writes data to <dir>/<namespace>/<artifactID>.
func (s *FileStore) Save(ctx context.Context, namespace, artifactID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateID(namespace, artifactID); err != nil {
		return err
	}

	dir := filepath.Join(s.dir, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+artifactID+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write artifact: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path(namespace, artifactID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact: %w", err)
	}

	return nil
}

// Get reads an artifact or returns ErrNotFound.
func (s *FileStore) Get(ctx context.Context, namespace, artifactID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validateID(namespace, artifactID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(namespace, artifactID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	return data, err
}

// List returns the sorted artifact ids of a namespace. Temporary files are skipped.
func (s *FileStore) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, namespace))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		ids = append(ids, e.Name())
	}

	sort.Strings(ids)

	return ids, nil
}

// Delete removes an artifact or returns ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, namespace, artifactID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateID(namespace, artifactID); err != nil {
		return err
	}

	err := os.Remove(s.Path(namespace, artifactID))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}

	return err
}

func validateID(namespace, artifactID string) error {
	for _, part := range []string{namespace, artifactID} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidID, part)
		}
	}

	return nil
}
