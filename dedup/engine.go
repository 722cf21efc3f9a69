package dedup

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/p2pclaw/hive/lib"
	"golang.org/x/sync/errgroup"
)

// Decision is the outcome of a duplicate check
type Decision string

const (
	Accept Decision = "ACCEPT" // new work
	Warn   Decision = "WARN"   // similar work exists; allowed but reported
	Reject Decision = "REJECT" // duplicates a confirmed verified paper
)

// Verdict is the result of Check()
type Verdict struct {
	Decision   Decision `json:"decision"`
	ExistingID string   `json:"existingId,omitempty"`
	Similarity float64  `json:"similarity"`
	Source     Source   `json:"source"`
	Verified   bool     `json:"existingVerified"`
}

/*
Engine judges submissions against everything the node can currently see.

The exact fast path consults the registry caches; a hit against a verified entry rejects outright and a hit
against a pending entry warns. On a miss the engine falls back to a settle-read scan of papers and the mempool
and compares significant title words. Hard rejection only ever happens against a verified paper: a stale or
partial view may let a duplicate through, but must never block new work.
*/
type Engine struct {
	graph    lib.GraphI
	config   lib.DedupConfig
	registry *Registry
	metrics  *lib.Metrics
	log      lib.LoggerI
}

// New() constructs a dedup engine with empty caches
func New(config lib.DedupConfig, graph lib.GraphI, metrics *lib.Metrics, log lib.LoggerI) (*Engine, lib.ErrorI) {
	registry, err := NewRegistry(config.CacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Engine{graph: graph, config: config, registry: registry, metrics: metrics, log: log}, nil
}

// Check() returns the verdict for a candidate; papers named in exclude (e.g. the parent of a revision) are ignored
func (e *Engine) Check(ctx context.Context, title, content string, exclude ...string) Verdict {
	fp := NewFingerprint(title, content)
	// exact fast path
	if v, hit := e.checkRegistry(ctx, fp, exclude); hit {
		e.metrics.UpdateDedup(string(v.Decision), string(v.Source), true)
		return v
	}
	// fuzzy path
	v := e.scan(ctx, fp, exclude)
	e.metrics.UpdateDedup(string(v.Decision), string(v.Source), false)
	return v
}

// Register() indexes a paper; verified must only be true for a confirmed VERIFIED paper
func (e *Engine) Register(p *lib.Paper, verified bool) {
	e.registry.Register(p.ID, FingerprintOf(p), verified)
}

// Rebuild() re-seeds the caches from the store
func (e *Engine) Rebuild(ctx context.Context) int {
	papers, pending := e.snapshot(ctx)
	e.registry.Clear()
	// pending first so a verified copy of the same paper wins
	for id, r := range pending {
		if p := lib.PaperFromRecord(id, r); p.Status == lib.StatusMempool {
			e.Register(p, false)
		}
	}
	for id, r := range papers {
		if p := lib.PaperFromRecord(id, r); p.Status == lib.StatusVerified {
			e.Register(p, true)
		}
	}
	e.log.Debugf("Rebuilt dedup registry from %d papers and %d pending", len(papers), len(pending))
	return len(papers) + len(pending)
}

// Close() releases the caches
func (e *Engine) Close() { e.registry.Close() }

// checkRegistry() consults the exact caches; a pending hit is confirmed against the store in case it was promoted
func (e *Engine) checkRegistry(ctx context.Context, fp Fingerprint, exclude []string) (Verdict, bool) {
	var pending *Verdict
	for _, lookup := range []struct {
		source Source
		key    string
	}{
		{SourceTitle, fp.NormalizedTitle},
		{SourceContent, fp.ContentHash},
		{SourceAbstract, fp.AbstractHash},
	} {
		entry, ok := e.registry.Lookup(lookup.source, lookup.key)
		if !ok || slices.Contains(exclude, entry.PaperID) {
			continue
		}
		v := Verdict{Decision: Reject, ExistingID: entry.PaperID, Similarity: 1, Source: lookup.source, Verified: true}
		if entry.Verified {
			return v, true
		}
		if pending == nil {
			v.Decision, v.Verified = Warn, false
			pending = &v
		}
	}
	if pending == nil {
		return Verdict{}, false
	}
	// the cached entry may predate its promotion
	if r, found := e.graph.Read(ctx, lib.VerifiedPaperPath(pending.ExistingID)); found {
		if p := lib.PaperFromRecord(pending.ExistingID, r); p.Status == lib.StatusVerified {
			e.Register(p, true)
			pending.Decision, pending.Verified = Reject, true
		}
	}
	return *pending, true
}

// scan() compares the candidate against every paper currently visible in the store
func (e *Engine) scan(ctx context.Context, fp Fingerprint, exclude []string) Verdict {
	papers, pending := e.snapshot(ctx)
	words := SignificantWords(fp.NormalizedTitle)
	var bestVerified, bestPending, corroborated Verdict
	consider := func(id string, r lib.Record, verified bool) *Verdict {
		if slices.Contains(exclude, id) {
			return nil
		}
		p := lib.PaperFromRecord(id, r)
		// warm the caches with whatever the scan saw
		e.Register(p, verified)
		other := FingerprintOf(p)
		// exact content or abstract matches count like cache hits
		for _, exact := range []struct {
			source Source
			a, b   string
		}{
			{SourceContent, fp.ContentHash, other.ContentHash},
			{SourceAbstract, fp.AbstractHash, other.AbstractHash},
		} {
			if exact.a != "" && exact.a == exact.b {
				return &Verdict{Decision: decide(verified), ExistingID: id, Similarity: 1, Source: exact.source, Verified: verified}
			}
		}
		sim := fp.similarity(other, words)
		best := &bestPending
		if verified {
			best = &bestVerified
			// a verified paper of the same length with a close title corroborates a duplicate
			if fp.WordCount > 0 && fp.WordCount == other.WordCount && sim >= e.config.CorroboratedThreshold && sim > corroborated.Similarity {
				corroborated = Verdict{Decision: Reject, ExistingID: id, Similarity: sim, Source: SourceWordCount, Verified: true}
			}
		}
		if sim > best.Similarity {
			*best = Verdict{ExistingID: id, Similarity: sim, Source: SourceScan, Verified: verified}
		}
		return nil
	}
	for id, r := range papers {
		if lib.PaperStatus(r.String(lib.FieldStatus)) != lib.StatusVerified {
			continue
		}
		if v := consider(id, r, true); v != nil {
			return *v
		}
	}
	for id, r := range pending {
		// tombstones and terminal copies are represented under papers
		if s := lib.PaperStatus(r.String(lib.FieldStatus)); s != "" && s != lib.StatusMempool {
			continue
		}
		if v := consider(id, r, false); v != nil {
			return *v
		}
	}
	// a cached same-length verified paper the scan didn't see may still corroborate
	if corroborated.ExistingID == "" {
		corroborated = e.corroborateFromRegistry(ctx, fp, papers, exclude)
	}
	switch {
	case bestVerified.Similarity >= e.config.RejectThreshold:
		bestVerified.Decision = Reject
		return bestVerified
	case corroborated.ExistingID != "":
		return corroborated
	}
	best := bestVerified
	if bestPending.Similarity > best.Similarity {
		best = bestPending
	}
	if best.Similarity >= e.config.WarnThreshold {
		best.Decision = Warn
		return best
	}
	return Verdict{Decision: Accept, Similarity: best.Similarity, Source: SourceNone}
}

// corroborateFromRegistry() looks up a verified paper of the same length in the registry and returns a rejection
// if its title is close enough; papers already in the scanned snapshot are skipped
func (e *Engine) corroborateFromRegistry(ctx context.Context, fp Fingerprint, seen map[string]lib.Record, exclude []string) Verdict {
	if fp.WordCount == 0 {
		return Verdict{}
	}
	entry, ok := e.registry.Lookup(SourceWordCount, strconv.Itoa(fp.WordCount))
	if !ok || !entry.Verified || slices.Contains(exclude, entry.PaperID) {
		return Verdict{}
	}
	if _, scanned := seen[entry.PaperID]; scanned {
		return Verdict{}
	}
	r, found := e.graph.Read(ctx, lib.VerifiedPaperPath(entry.PaperID))
	if !found {
		return Verdict{}
	}
	other := FingerprintOf(lib.PaperFromRecord(entry.PaperID, r))
	if sim := fp.similarity(other, SignificantWords(fp.NormalizedTitle)); sim >= e.config.CorroboratedThreshold {
		return Verdict{Decision: Reject, ExistingID: entry.PaperID, Similarity: sim, Source: SourceWordCount, Verified: true}
	}
	return Verdict{}
}

// snapshot() settle-reads the verified collection and the mempool concurrently within the scan budget
func (e *Engine) snapshot(ctx context.Context) (papers, pending map[string]lib.Record) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.config.ScanSettleMS)*time.Millisecond)
	defer cancel()
	var eg errgroup.Group
	eg.Go(func() error {
		papers = e.graph.MapChildren(ctx, lib.PapersPath)
		return nil
	})
	eg.Go(func() error {
		pending = e.graph.MapChildren(ctx, lib.MempoolPath)
		return nil
	})
	_ = eg.Wait()
	return
}

// similarity() compares two fingerprints by title
func (f Fingerprint) similarity(other Fingerprint, words map[string]struct{}) float64 {
	if f.NormalizedTitle != "" && f.NormalizedTitle == other.NormalizedTitle {
		return 1
	}
	return Jaccard(words, SignificantWords(other.NormalizedTitle))
}

// decide() maps an exact match to its decision
func decide(verified bool) Decision {
	if verified {
		return Reject
	}
	return Warn
}
