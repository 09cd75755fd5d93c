package alias

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/memebox/memebox/internal/blob"
)

const (
	digA = blob.Digest("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	digB = blob.Digest("BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
)

func TestResolve_SelfResolvingDigest(t *testing.T) {
	tbl := New()
	// A digest-shaped query resolves without any binding.
	d, ok := tbl.Resolve("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if !ok {
		t.Fatal("digest query did not resolve")
	}
	if d != digA {
		t.Errorf("resolved to %s", d)
	}
}

func TestResolve_Alias(t *testing.T) {
	tbl := New()
	tbl.Bind("cat", digA)
	d, ok := tbl.Resolve("  cat ")
	if !ok || d != digA {
		t.Errorf("Resolve = %s, %v", d, ok)
	}
	if _, ok := tbl.Resolve("dog"); ok {
		t.Error("unbound alias resolved")
	}
	// Lookup is case-sensitive.
	if _, ok := tbl.Resolve("CAT"); ok {
		t.Error("alias lookup should be case-sensitive")
	}
}

func TestBind_LastWriteWins(t *testing.T) {
	tbl := New()
	tbl.Bind("cat", digA)
	tbl.Bind("cat", digB)
	d, _ := tbl.Resolve("cat")
	if d != digB {
		t.Errorf("Resolve = %s, want %s", d, digB)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len = %d", tbl.Len())
	}
}

func TestReverseLookup_InsertionOrder(t *testing.T) {
	tbl := New()
	tbl.Bind("first", digA)
	tbl.Bind("second", digA)
	name, ok := tbl.ReverseLookup(digA)
	if !ok || name != "first" {
		t.Errorf("ReverseLookup = %q, %v", name, ok)
	}
	if _, ok := tbl.ReverseLookup(digB); ok {
		t.Error("reverse lookup of unbound digest succeeded")
	}
}

func TestReverseLookup_StableAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alias.json")
	tbl := New()
	tbl.Bind("first", digA)
	tbl.Bind("second", digA)
	tbl.Bind("other", digB)
	if err := tbl.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	name, ok := loaded.ReverseLookup(digA)
	if !ok || name != "first" {
		t.Errorf("after reload, ReverseLookup = %q, %v", name, ok)
	}
	if !reflect.DeepEqual(loaded.Bindings(), tbl.Bindings()) {
		t.Error("bindings order changed across reload")
	}
}

func TestDropDigest(t *testing.T) {
	tbl := New()
	tbl.Bind("first", digA)
	tbl.Bind("other", digB)
	tbl.Bind("second", digA)

	removed := tbl.DropDigest(digA)
	if !reflect.DeepEqual(removed, []string{"first", "second"}) {
		t.Errorf("removed = %v", removed)
	}
	if _, ok := tbl.Resolve("first"); ok {
		t.Error("dropped alias still resolves")
	}
	if d, ok := tbl.Resolve("other"); !ok || d != digB {
		t.Error("unrelated alias lost")
	}
}

func TestPrune(t *testing.T) {
	tbl := New()
	tbl.Bind("live", digA)
	tbl.Bind("orphan", digB)
	dropped := tbl.Prune(func(d blob.Digest) bool { return d == digA })
	if dropped != 1 {
		t.Errorf("dropped = %d", dropped)
	}
	if _, ok := tbl.Resolve("orphan"); ok {
		t.Error("orphan survived prune")
	}
	if _, ok := tbl.Resolve("live"); !ok {
		t.Error("live alias pruned")
	}
}

func TestLoad_Missing(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "alias.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if tbl.Len() != 0 {
		t.Error("expected empty table")
	}
}
