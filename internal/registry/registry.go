// Package registry is the facade over the content store, index, alias
// table, and session tracker. It owns all durable state: nothing else
// mutates the index or alias files.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memebox/memebox/internal/alias"
	"github.com/memebox/memebox/internal/blob"
	"github.com/memebox/memebox/internal/fetch"
	"github.com/memebox/memebox/internal/index"
	"github.com/memebox/memebox/internal/session"
	"github.com/memebox/memebox/pkg/platform"
)

// DefaultSessionTTL is how long an armed capture window stays open.
const DefaultSessionTTL = 60 * time.Second

// Options configures Open.
type Options struct {
	DataDir      string
	SessionTTL   time.Duration // zero means DefaultSessionTTL
	FetchTimeout time.Duration // zero means fetch.DefaultTimeout
	Logger       *zap.Logger   // nil means no logging
}

// Registry orchestrates adds, lookups, deletes, and rebuilds. One mutex
// guards all mutable state; byte resolution for remote adds happens
// outside it.
type Registry struct {
	mu       sync.Mutex
	store    *blob.Store
	index    *index.Table
	aliases  *alias.Table
	sessions *session.Tracker
	fetcher  *fetch.Fetcher
	log      *zap.Logger

	indexPath string
	aliasPath string
}

// Open loads durable state from dataDir. A missing or corrupt index file
// is not fatal: the index is rebuilt from the blob directory whenever the
// durable copy comes up empty.
func Open(opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	store, err := blob.Open(filepath.Join(opts.DataDir, "memes"))
	if err != nil {
		return nil, err
	}
	r := &Registry{
		store:     store,
		sessions:  session.NewTracker(ttl),
		fetcher:   fetch.New(opts.FetchTimeout),
		log:       log,
		indexPath: filepath.Join(opts.DataDir, "index.json"),
		aliasPath: filepath.Join(opts.DataDir, "alias.json"),
	}

	idx, err := index.Load(r.indexPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("index load failed, will rebuild", zap.Error(err))
	}
	if idx.Len() == 0 {
		idx, err = index.Rebuild(store)
		if err != nil {
			return nil, fmt.Errorf("rebuild index: %w", err)
		}
		if err := idx.Save(r.indexPath); err != nil {
			return nil, fmt.Errorf("persist index: %w", err)
		}
	}
	r.index = idx

	al, err := alias.Load(r.aliasPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("alias load failed, starting empty", zap.Error(err))
	}
	r.aliases = al

	log.Info("registry opened",
		zap.Int("count", r.index.Len()),
		zap.Int("aliases", r.aliases.Len()),
		zap.String("dir", store.Dir()))
	return r, nil
}

// AddResult reports a completed ingest.
type AddResult struct {
	Digest blob.Digest
	Alias  string // alias already bound to this digest, if any
}

// Add ingests one image. Bytes are resolved first, outside the registry
// lock, so a slow download never blocks other operations; on any
// resolution failure the registry is left unchanged.
func (r *Registry) Add(ctx context.Context, src platform.ImageSource) (AddResult, error) {
	data, ext, err := r.resolveBytes(ctx, src)
	if err != nil {
		return AddResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	d, name, err := r.store.Put(data, ext)
	if err != nil {
		return AddResult{}, err
	}
	r.index.Put(d, name)
	if err := r.index.Save(r.indexPath); err != nil {
		return AddResult{}, fmt.Errorf("persist index: %w", err)
	}
	res := AddResult{Digest: d}
	if a, ok := r.aliases.ReverseLookup(d); ok {
		res.Alias = a
	}
	return res, nil
}

func (r *Registry) resolveBytes(ctx context.Context, src platform.ImageSource) ([]byte, string, error) {
	switch s := src.(type) {
	case platform.LocalPath:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, "", fmt.Errorf("read image %s: %w", s.Path, err)
		}
		return data, filepath.Ext(s.Path), nil
	case platform.RemoteURL:
		data, err := r.fetcher.Fetch(ctx, s.URL)
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Ext(s.FilenameHint), nil
	default:
		return nil, "", ErrNoImageSource
	}
}

// Bind points name at d. The digest must already be indexed.
func (r *Registry) Bind(d blob.Digest, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.index.Has(d) {
		return fmt.Errorf("digest %s: %w", d, ErrNotFound)
	}
	r.aliases.Bind(name, d)
	if err := r.aliases.Save(r.aliasPath); err != nil {
		return fmt.Errorf("persist aliases: %w", err)
	}
	return nil
}

// Info describes one registry entry.
type Info struct {
	Digest   blob.Digest
	Alias    string // first bound alias, empty if none
	Filename string // stored filename, empty if the digest is not indexed
}

// Show resolves query to its entry. Only resolution can fail: a digest
// query that is absent from the index still shows, with an empty
// filename.
func (r *Registry) Show(query string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.aliases.Resolve(query)
	if !ok {
		return Info{}, fmt.Errorf("%q: %w", query, ErrNotFound)
	}
	info := Info{Digest: d}
	if name, ok := r.index.Get(d); ok {
		info.Filename = name
	}
	if a, ok := r.aliases.ReverseLookup(d); ok {
		info.Alias = a
	}
	return info, nil
}

// Listing is a point-in-time snapshot for display.
type Listing struct {
	Digests []blob.Digest   // every digest, sorted
	Aliases []alias.Binding // every binding, insertion order
}

// List snapshots the registry contents.
func (r *Registry) List() Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Listing{Digests: r.index.Digests(), Aliases: r.aliases.Bindings()}
}

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	Digest  blob.Digest
	Aliases []string // aliases that pointed at the digest
}

// Delete removes the entry query resolves to. The blob file removal is
// best effort — a failure is logged, not returned — because the index
// entry is the authoritative outcome.
func (r *Registry) Delete(query string) (DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.aliases.Resolve(query)
	if !ok {
		return DeleteResult{}, fmt.Errorf("%q: %w", query, ErrNotFound)
	}
	name, ok := r.index.Get(d)
	if !ok {
		return DeleteResult{}, fmt.Errorf("digest %s: %w", d, ErrNotFound)
	}
	if err := r.store.Remove(name); err != nil {
		r.log.Warn("blob removal failed", zap.String("file", name), zap.Error(err))
	}
	r.index.Delete(d)
	if err := r.index.Save(r.indexPath); err != nil {
		return DeleteResult{}, fmt.Errorf("persist index: %w", err)
	}
	removed := r.aliases.DropDigest(d)
	if len(removed) > 0 {
		if err := r.aliases.Save(r.aliasPath); err != nil {
			return DeleteResult{}, fmt.Errorf("persist aliases: %w", err)
		}
	}
	return DeleteResult{Digest: d, Aliases: removed}, nil
}

// ReloadStats reports the outcome of a rebuild.
type ReloadStats struct {
	Entries       int
	PrunedAliases int
	DroppedBlobs  int // only nonzero when verifying
}

// Reload rebuilds the index from a full blob-directory scan and prunes
// aliases whose digest disappeared. With verify set, candidates are
// re-hashed and mismatches dropped.
func (r *Registry) Reload(verify bool) (ReloadStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		idx     *index.Table
		dropped int
		err     error
	)
	if verify {
		idx, dropped, err = index.RebuildVerified(r.store)
	} else {
		idx, err = index.Rebuild(r.store)
	}
	if err != nil {
		return ReloadStats{}, fmt.Errorf("rebuild index: %w", err)
	}
	r.index = idx
	if err := r.index.Save(r.indexPath); err != nil {
		return ReloadStats{}, fmt.Errorf("persist index: %w", err)
	}
	pruned := r.aliases.Prune(r.index.Has)
	if pruned > 0 {
		if err := r.aliases.Save(r.aliasPath); err != nil {
			return ReloadStats{}, fmt.Errorf("persist aliases: %w", err)
		}
	}
	return ReloadStats{Entries: r.index.Len(), PrunedAliases: pruned, DroppedBlobs: dropped}, nil
}

// MatchAndFetch looks up an inbound image by its own filename-like
// identifier. Aliases are not consulted here; only a digest-shaped stem
// can hit. The stored file must still exist on disk.
func (r *Registry) MatchAndFetch(identifier string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := filepath.Base(identifier)
	stem := strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
	name, ok := r.index.Get(blob.Digest(stem))
	if !ok {
		return "", false
	}
	if !r.store.Exists(name) {
		return "", false
	}
	return r.store.Path(name), true
}

// ArmCapture opens the capture window for the sender, replacing any
// window already open for the pair.
func (r *Registry) ArmCapture(conversation, participant string, now time.Time) {
	r.sessions.Arm(session.Key{Conversation: conversation, Participant: participant}, now)
}

// TakeCapture consumes an open capture window for the sender, reporting
// whether one was armed and fresh.
func (r *Registry) TakeCapture(conversation, participant string, now time.Time) bool {
	return r.sessions.TakeIfArmed(session.Key{Conversation: conversation, Participant: participant}, now)
}

// SessionTTL is the capture window duration.
func (r *Registry) SessionTTL() time.Duration { return r.sessions.TTL() }
