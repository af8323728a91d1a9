// Package docstore manages the on-disk copies of uploaded documents. Stored
// files are the source of truth for re-ingestion after a deletion.
package docstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// File describes one stored upload.
type File struct {
	StoredName string // unique on-disk name, "<uuid>_<original name>"
	Name       string // original upload name
	Path       string
}

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the upload under a collision-free name and returns its record.
func (s *Store) Save(name string, r io.Reader) (File, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return File{}, fmt.Errorf("empty file name")
	}
	storedName := uuid.NewString() + "_" + name
	path := filepath.Join(s.dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return File{}, fmt.Errorf("create stored file failed: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return File{}, fmt.Errorf("write stored file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return File{}, fmt.Errorf("close stored file failed: %w", err)
	}
	return File{StoredName: storedName, Name: name, Path: path}, nil
}

// List returns all stored files, oldest first, so re-ingestion preserves the
// original upload order.
func (s *Store) List() ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir failed: %w", err)
	}

	type stamped struct {
		file File
		mod  int64
	}
	var files []stamped
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, stamped{
			file: File{
				StoredName: entry.Name(),
				Name:       originalName(entry.Name()),
				Path:       filepath.Join(s.dir, entry.Name()),
			},
			mod: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod != files[j].mod {
			return files[i].mod < files[j].mod
		}
		return files[i].file.StoredName < files[j].file.StoredName
	})

	out := make([]File, len(files))
	for i := range files {
		out[i] = files[i].file
	}
	return out, nil
}

// Open returns a reader for the stored file. The caller closes it.
func (s *Store) Open(storedName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(storedName)))
	if err != nil {
		return nil, fmt.Errorf("open stored file failed: %w", err)
	}
	return f, nil
}

// Delete removes one stored file.
func (s *Store) Delete(storedName string) error {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(storedName))); err != nil {
		return fmt.Errorf("delete stored file failed: %w", err)
	}
	return nil
}

// DeleteAll removes every stored file, keeping the directory.
func (s *Store) DeleteAll() error {
	files, err := s.List()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil {
			return fmt.Errorf("delete stored file failed: %w", err)
		}
	}
	return nil
}

// originalName strips the uuid prefix added by Save.
func originalName(storedName string) string {
	if i := strings.Index(storedName, "_"); i >= 0 && i+1 < len(storedName) {
		return storedName[i+1:]
	}
	return storedName
}
