package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store keeps blobs in one flat directory, named by digest plus extension.
// The directory is the source of truth for blob existence; the index is a
// derived view of it.
type Store struct {
	dir string
}

// Open ensures dir exists and returns a store over it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the absolute location of a stored name.
func (s *Store) Path(filename string) string { return filepath.Join(s.dir, filename) }

// Put stores data under its digest-derived name. The write is skipped when
// a file with that name already exists; the digest is returned either way.
func (s *Store) Put(data []byte, ext string) (Digest, string, error) {
	d := Sum(data)
	name := d.Filename(ext)
	dst := s.Path(name)
	if _, err := os.Stat(dst); err == nil {
		return d, name, nil
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return d, name, nil
}

// Remove deletes the named blob. A missing file counts as success; any
// other failure is returned so the caller can log it, but index cleanup
// is expected to proceed regardless.
func (s *Store) Remove(filename string) error {
	err := os.Remove(s.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the named blob is a regular file on disk.
func (s *Store) Exists(filename string) bool {
	info, err := os.Stat(s.Path(filename))
	return err == nil && info.Mode().IsRegular()
}

// List returns the names of all regular files in the store directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan blob dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ReadFile returns the stored bytes for a name.
func (s *Store) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(s.Path(filename))
}
