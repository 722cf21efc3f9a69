package dedup

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/store"
	"github.com/stretchr/testify/require"
)

const swarmTitle = "Emergent Consensus Dynamics in Decentralized Research Swarms"

func TestCheckExactVerifiedTitle(t *testing.T) {
	e, _ := newTestEngine(t)
	// pre-define a verified paper known to the registry
	e.Register(&lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400)}, true)
	// execute the function call with a byline variant of the same title
	got := e.Check(context.Background(), swarmTitle+" - by Agent Smith", testContent("two", 400))
	// compare got vs expected
	require.Equal(t, Reject, got.Decision)
	require.Equal(t, "p1", got.ExistingID)
	require.Equal(t, 1.0, got.Similarity)
	require.Equal(t, SourceTitle, got.Source)
}

func TestCheckExactPendingTitle(t *testing.T) {
	e, _ := newTestEngine(t)
	// pre-define a pending paper known to the registry
	e.Register(&lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400)}, false)
	// execute the function call
	got := e.Check(context.Background(), swarmTitle, testContent("two", 400))
	// a pending match only warns
	require.Equal(t, Warn, got.Decision)
	require.Equal(t, "p1", got.ExistingID)
	require.Equal(t, 1.0, got.Similarity)
}

func TestCheckPendingEntryPromotedSince(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	// the registry only saw the pending copy
	p := &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusMempool}
	e.Register(p, false)
	// but the paper was verified by another node
	p.Status = lib.StatusVerified
	require.NoError(t, g.Put(ctx, lib.VerifiedPaperPath("p1"), p.ToRecord()))
	// execute the function call
	got := e.Check(ctx, swarmTitle, testContent("two", 400))
	// compare got vs expected
	require.Equal(t, Reject, got.Decision)
	require.True(t, got.Verified)
}

func TestCheckScan(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		stored     *lib.Paper
		title      string
		content    string
		exclude    []string
		decision   Decision
		source     Source
		similarity float64
	}{
		{
			name:       "reordered title of verified paper",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Decentralized Research Swarms: Emergent Consensus Dynamics",
			content:    testContent("two", 380),
			decision:   Reject,
			source:     SourceScan,
			similarity: 1,
		},
		{
			name:       "reordered title of pending paper",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusMempool},
			title:      "Decentralized Research Swarms: Emergent Consensus Dynamics",
			content:    testContent("two", 380),
			decision:   Warn,
			source:     SourceScan,
			similarity: 1,
		},
		{
			name:       "similar title",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Emergent Consensus Dynamics in Decentralized Research Swarm Networks",
			content:    testContent("two", 380),
			decision:   Warn,
			source:     SourceScan,
			similarity: 0.625,
		},
		{
			name:       "unrelated",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Thermal Behaviour of Lithium Battery Packs",
			content:    testContent("two", 380),
			decision:   Accept,
			source:     SourceNone,
			similarity: 0,
		},
		{
			name:       "revision excludes its parent",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      swarmTitle,
			content:    testContent("one", 400),
			exclude:    []string{"p1"},
			decision:   Accept,
			source:     SourceNone,
			similarity: 0,
		},
		{
			name:       "same content under a new title",
			stored:     &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Thermal Behaviour of Lithium Battery Packs",
			content:    "Author: someone else\n" + testContent("one", 400),
			decision:   Reject,
			source:     SourceContent,
			similarity: 1,
		},
		{
			name:       "close title corroborated by word count",
			stored:     &lib.Paper{ID: "p1", Title: "Scalable Federated Learning Protocols Heterogeneous Edge Devices", Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Scalable Federated Learning Protocols Heterogeneous Edge Devices Networks",
			content:    testContent("two", 400),
			decision:   Reject,
			source:     SourceWordCount,
			similarity: 0.875,
		},
		{
			name:       "close title with a different length",
			stored:     &lib.Paper{ID: "p1", Title: "Scalable Federated Learning Protocols Heterogeneous Edge Devices", Content: testContent("one", 400), Status: lib.StatusVerified},
			title:      "Scalable Federated Learning Protocols Heterogeneous Edge Devices Networks",
			content:    testContent("two", 380),
			decision:   Warn,
			source:     SourceScan,
			similarity: 0.875,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// a fresh engine with empty caches over a store holding the paper
			e, g := newTestEngine(t)
			path := lib.MempoolPaperPath(test.stored.ID)
			if test.stored.Status == lib.StatusVerified {
				path = lib.VerifiedPaperPath(test.stored.ID)
			}
			require.NoError(t, g.Put(ctx, path, test.stored.ToRecord()))
			// execute the function call
			got := e.Check(ctx, test.title, test.content, test.exclude...)
			// compare got vs expected
			require.Equal(t, test.decision, got.Decision)
			require.Equal(t, test.source, got.Source)
			require.InDelta(t, test.similarity, got.Similarity, 1e-9)
			if test.decision != Accept {
				require.Equal(t, test.stored.ID, got.ExistingID)
			}
		})
	}
}

func TestRebuild(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	// pre-define a verified paper and a pending paper in the store
	verified := &lib.Paper{ID: "p1", Title: swarmTitle, Content: testContent("one", 400), Status: lib.StatusVerified}
	pending := &lib.Paper{ID: "p2", Title: "Thermal Behaviour of Lithium Battery Packs", Content: testContent("two", 400), Status: lib.StatusMempool}
	require.NoError(t, g.Put(ctx, lib.VerifiedPaperPath("p1"), verified.ToRecord()))
	require.NoError(t, g.Put(ctx, lib.MempoolPaperPath("p2"), pending.ToRecord()))
	// execute the function call
	require.Equal(t, 2, e.Rebuild(ctx))
	// compare got vs expected
	entry, ok := e.registry.Lookup(SourceTitle, NormalizeTitle(swarmTitle))
	require.True(t, ok)
	require.Equal(t, Entry{PaperID: "p1", Verified: true}, entry)
	entry, ok = e.registry.Lookup(SourceTitle, NormalizeTitle(pending.Title))
	require.True(t, ok)
	require.False(t, entry.Verified)
}

func TestRegistryNeverDowngrades(t *testing.T) {
	r, err := NewRegistry(100)
	require.NoError(t, err)
	defer r.Close()
	fp := Fingerprint{NormalizedTitle: "a title"}
	// execute the function calls
	r.Register("p1", fp, true)
	r.Register("p2", fp, false)
	// compare got vs expected
	entry, ok := r.Lookup(SourceTitle, "a title")
	require.True(t, ok)
	require.Equal(t, Entry{PaperID: "p1", Verified: true}, entry)
}

// newTestEngine() creates an engine over a single in-memory replica
func newTestEngine(t *testing.T) (*Engine, *store.Graph) {
	config := lib.DefaultConfig()
	config.SettleMS, config.WriteTimeoutMS = 200, 200
	g, err := store.NewGraph(config, nil, lib.NewNullLogger(), store.NewMemReplica("r1"))
	require.NoError(t, err)
	e, err := New(config.DedupConfig, g, nil, lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, g
}

// testContent() builds a paper body with a seed specific abstract and exactly n words
func testContent(seed string, n int) string {
	head := fmt.Sprintf("## Abstract\nThis abstract is about %s.\n## Introduction\n", seed)
	remaining := n - lib.WordCount(head)
	words := make([]string, 0, remaining)
	for i := 0; i < remaining; i++ {
		words = append(words, fmt.Sprintf("%s%d", seed, i))
	}
	return head + strings.Join(words, " ") + "\n"
}
