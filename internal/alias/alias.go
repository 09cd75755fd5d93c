// Package alias maintains the durable alias-to-digest overlay. Entry
// order is insertion order and survives save/load round trips, which
// keeps reverse lookups stable across restarts.
package alias

import (
	"fmt"
	"strings"

	"github.com/memebox/memebox/internal/blob"
	"github.com/memebox/memebox/internal/persist"
)

// Binding pairs an alias with the digest it names.
type Binding struct {
	Alias  string
	Digest blob.Digest
}

// Table maps human aliases to digests. Many aliases may name one digest;
// an alias names at most one digest, last bind wins.
type Table struct {
	order  []string
	byName map[string]blob.Digest
}

// New returns an empty table.
func New() *Table {
	return &Table{byName: make(map[string]blob.Digest)}
}

// Load reads the durable mapping at path. On any failure it returns an
// empty table alongside the error. Alias keys are trimmed and digests
// uppercased on load.
func Load(path string) (*Table, error) {
	t := New()
	entries, err := persist.LoadMapping(path)
	if err != nil {
		return t, err
	}
	for _, e := range entries {
		t.set(strings.TrimSpace(e.Key), blob.Digest(strings.ToUpper(e.Value)))
	}
	return t, nil
}

func (t *Table) set(name string, d blob.Digest) {
	if _, ok := t.byName[name]; !ok {
		t.order = append(t.order, name)
	}
	t.byName[name] = d
}

// Bind points name at d, overwriting any previous binding for name. The
// caller is responsible for checking that d is actually indexed.
func (t *Table) Bind(name string, d blob.Digest) {
	t.set(name, d)
}

// Resolve maps a query to a digest. A syntactically valid digest resolves
// to itself, uppercased, without consulting the table; anything else is a
// verbatim lookup of the trimmed query.
func (t *Table) Resolve(query string) (blob.Digest, bool) {
	q := strings.TrimSpace(query)
	if d, ok := blob.ParseDigest(q); ok {
		return d, true
	}
	d, ok := t.byName[q]
	return d, ok
}

// ReverseLookup returns the first alias bound to d, in insertion order.
func (t *Table) ReverseLookup(d blob.Digest) (string, bool) {
	for _, name := range t.order {
		if t.byName[name] == d {
			return name, true
		}
	}
	return "", false
}

// DropDigest removes every alias bound to d and returns the removed
// aliases in insertion order.
func (t *Table) DropDigest(d blob.Digest) []string {
	var removed []string
	kept := t.order[:0]
	for _, name := range t.order {
		if t.byName[name] == d {
			removed = append(removed, name)
			delete(t.byName, name)
			continue
		}
		kept = append(kept, name)
	}
	t.order = kept
	return removed
}

// Prune drops every alias whose digest the live predicate rejects and
// returns how many were dropped.
func (t *Table) Prune(live func(blob.Digest) bool) int {
	dropped := 0
	kept := t.order[:0]
	for _, name := range t.order {
		if !live(t.byName[name]) {
			delete(t.byName, name)
			dropped++
			continue
		}
		kept = append(kept, name)
	}
	t.order = kept
	return dropped
}

// Bindings returns a copy of every binding in insertion order.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, Binding{Alias: name, Digest: t.byName[name]})
	}
	return out
}

func (t *Table) Len() int { return len(t.order) }

// Save rewrites the full mapping at path, preserving insertion order.
func (t *Table) Save(path string) error {
	entries := make([]persist.Entry, 0, len(t.order))
	for _, name := range t.order {
		entries = append(entries, persist.Entry{Key: name, Value: string(t.byName[name])})
	}
	if err := persist.SaveMapping(path, entries); err != nil {
		return fmt.Errorf("save aliases: %w", err)
	}
	return nil
}
