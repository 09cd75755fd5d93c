// Package index maintains the durable digest-to-filename mapping. It is a
// cache over the blob directory and can always be regenerated from it.
package index

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/memebox/memebox/internal/blob"
	"github.com/memebox/memebox/internal/persist"
)

// Table maps digests to stored filenames.
type Table struct {
	entries map[blob.Digest]string
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[blob.Digest]string)}
}

// Load reads the durable mapping at path. On any failure it returns an
// empty table alongside the error; the caller recovers with Rebuild.
// Keys are uppercased on load.
func Load(path string) (*Table, error) {
	t := New()
	entries, err := persist.LoadMapping(path)
	if err != nil {
		return t, err
	}
	for _, e := range entries {
		t.entries[blob.Digest(strings.ToUpper(e.Key))] = e.Value
	}
	return t, nil
}

// Rebuild scans the store directory. A file qualifies as an entry when its
// filename stem is exactly as long as a digest; content is not re-hashed,
// so a renamed file with a digest-shaped name is trusted as-is.
func Rebuild(store *blob.Store) (*Table, error) {
	names, err := store.List()
	if err != nil {
		return nil, err
	}
	t := New()
	for _, name := range names {
		stem := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
		if len(stem) != blob.DigestHexLen {
			continue
		}
		t.entries[blob.Digest(stem)] = name
	}
	return t, nil
}

// RebuildVerified rebuilds and then re-hashes every candidate, dropping
// files whose content does not match their name stem. It returns the
// number of entries dropped.
func RebuildVerified(store *blob.Store) (*Table, int, error) {
	t, err := Rebuild(store)
	if err != nil {
		return nil, 0, err
	}
	dropped := 0
	for d, name := range t.entries {
		data, err := store.ReadFile(name)
		if err != nil || blob.Sum(data) != d {
			delete(t.entries, d)
			dropped++
		}
	}
	return t, dropped, nil
}

// Save rewrites the full mapping at path.
func (t *Table) Save(path string) error {
	digests := t.Digests()
	entries := make([]persist.Entry, 0, len(digests))
	for _, d := range digests {
		entries = append(entries, persist.Entry{Key: string(d), Value: t.entries[d]})
	}
	if err := persist.SaveMapping(path, entries); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

func (t *Table) Len() int { return len(t.entries) }

// Get returns the stored filename for d.
func (t *Table) Get(d blob.Digest) (string, bool) {
	name, ok := t.entries[d]
	return name, ok
}

func (t *Table) Has(d blob.Digest) bool {
	_, ok := t.entries[d]
	return ok
}

// Put records d as stored under filename, replacing any prior entry.
func (t *Table) Put(d blob.Digest, filename string) {
	t.entries[d] = filename
}

// Delete removes the entry for d, if present.
func (t *Table) Delete(d blob.Digest) {
	delete(t.entries, d)
}

// Digests returns every digest, sorted lexicographically.
func (t *Table) Digests() []blob.Digest {
	out := make([]blob.Digest, 0, len(t.entries))
	for d := range t.entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
