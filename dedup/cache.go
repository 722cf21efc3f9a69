package dedup

import (
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/p2pclaw/hive/lib"
)

// Entry is an advisory registry value
type Entry struct {
	PaperID  string
	Verified bool // only ever set from a confirmed VERIFIED paper
}

// Source names the registry (or scan) a verdict came from
type Source string

const (
	SourceTitle     Source = "title"
	SourceContent   Source = "content"
	SourceAbstract  Source = "abstract"
	SourceWordCount Source = "wordCount"
	SourceScan      Source = "scan"
	SourceNone      Source = "none"
)

// Registry is the set of bounded in-process caches indexing known papers by fingerprint key.
// It is never a source of truth: a miss means 'unknown', and everything in it can be rebuilt from the store
type Registry struct {
	caches map[Source]*ristretto.Cache[string, Entry]
}

// NewRegistry() creates one bounded cache per fingerprint key
func NewRegistry(capacity int64) (*Registry, lib.ErrorI) {
	if capacity <= 0 {
		capacity = lib.DefaultDedupConfig().CacheCapacity
	}
	r := &Registry{caches: make(map[Source]*ristretto.Cache[string, Entry])}
	for _, s := range []Source{SourceTitle, SourceContent, SourceAbstract, SourceWordCount} {
		c, err := ristretto.NewCache[string, Entry](&ristretto.Config[string, Entry]{
			NumCounters: capacity * 10, // 10x number of items
			MaxCost:     capacity,      // total cost (1 per entry)
			BufferItems: 64,            // recommended default
			// count entries, not bytes
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, ErrNewCache(err)
		}
		r.caches[s] = c
	}
	return r, nil
}

// Lookup() returns the entry registered under the key
func (r *Registry) Lookup(s Source, key string) (Entry, bool) {
	if key == "" {
		return Entry{}, false
	}
	return r.caches[s].Get(key)
}

// Register() indexes the fingerprint; a verified entry is never downgraded by a pending one
func (r *Registry) Register(paperID string, f Fingerprint, verified bool) {
	keys := map[Source]string{
		SourceTitle:    f.NormalizedTitle,
		SourceContent:  f.ContentHash,
		SourceAbstract: f.AbstractHash,
	}
	if f.WordCount > 0 {
		keys[SourceWordCount] = strconv.Itoa(f.WordCount)
	}
	for s, key := range keys {
		if key == "" {
			continue
		}
		c := r.caches[s]
		if cur, ok := c.Get(key); ok && cur.Verified && !verified {
			continue
		}
		c.Set(key, Entry{PaperID: paperID, Verified: verified}, 1)
	}
	// make the writes visible to the next lookup
	for _, c := range r.caches {
		c.Wait()
	}
}

// Clear() drops every entry
func (r *Registry) Clear() {
	for _, c := range r.caches {
		c.Clear()
	}
}

// Close() stops the cache goroutines
func (r *Registry) Close() {
	for _, c := range r.caches {
		c.Close()
	}
}
