package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{
			name:     "punctuation and case",
			title:    "Emergent  Consensus: Dynamics, in SWARMS!",
			expected: "emergent consensus dynamics in swarms",
		},
		{
			name:     "separated byline",
			title:    "Emergent Consensus Dynamics - by Agent Smith",
			expected: "emergent consensus dynamics",
		},
		{
			name:     "agent byline",
			title:    "Emergent Consensus Dynamics by node-42",
			expected: "emergent consensus dynamics",
		},
		{
			name:     "bracketed credit",
			title:    "[Credit: Alice] Emergent Consensus Dynamics (by Bob)",
			expected: "emergent consensus dynamics",
		},
		{
			name:     "accents",
			title:    "Théorie des Réseaux Café",
			expected: "theorie des reseaux cafe",
		},
		{
			name:     "plain by is kept",
			title:    "Learning by Doing",
			expected: "learning by doing",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, NormalizeTitle(test.title))
		})
	}
}

func TestTitleSimilaritySymmetric(t *testing.T) {
	titles := []string{
		"Emergent Consensus Dynamics in Decentralized Research Swarms",
		"Decentralized Research Swarms: Emergent Consensus Dynamics",
		"Emergent Consensus Dynamics in Decentralized Research Swarm Networks",
		"A Study of Tokenization",
		"AI",
		"",
	}
	for _, a := range titles {
		for _, b := range titles {
			require.Equal(t, TitleSimilarity(a, b), TitleSimilarity(b, a), "%q vs %q", a, b)
		}
	}
}

func TestTitleSimilarity(t *testing.T) {
	// reordered words are the same title
	require.Equal(t, 1.0, TitleSimilarity(
		"Emergent Consensus Dynamics in Decentralized Research Swarms",
		"Decentralized Research Swarms: Emergent Consensus Dynamics"))
	// 5 shared significant words out of 8
	require.InDelta(t, 0.625, TitleSimilarity(
		"Emergent Consensus Dynamics in Decentralized Research Swarms",
		"Emergent Consensus Dynamics in Decentralized Research Swarm Networks"), 1e-9)
	// identical short titles are equal even without significant words
	require.Equal(t, 1.0, TitleSimilarity("AI ML", "ai, ml"))
	// two empty titles are not similar
	require.Equal(t, 0.0, TitleSimilarity("", ""))
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		out := make(map[string]struct{})
		for _, w := range words {
			out[w] = struct{}{}
		}
		return out
	}
	require.Equal(t, 0.0, Jaccard(set(), set()))
	require.Equal(t, 0.0, Jaccard(set("alpha"), set()))
	require.Equal(t, 1.0, Jaccard(set("alpha", "beta"), set("beta", "alpha")))
	require.InDelta(t, 1.0/3, Jaccard(set("alpha", "beta"), set("beta", "gamma")), 1e-9)
}

func TestContentHashIgnoresByline(t *testing.T) {
	body := "## Abstract\nWe study swarms.\n\n## Results\nSwarms converge [1].\n"
	a := "**Author:** Alice\nDate: 2025-01-01\nInvestigation: inv-1\nby Alice Smith\n\n" + body
	b := "Author: Bob\nDate: 2026-02-02\nAgent ID: agent-9\n\n" + body
	// compare got vs expected
	require.Equal(t, ContentHash(a), ContentHash(b))
	require.NotEqual(t, ContentHash(a), ContentHash(body+"\nExtra finding.\n"))
	// the abstract hash only depends on the abstract
	require.Equal(t, AbstractHash(a), AbstractHash("## Abstract\nWe   study swarms.\n## Other\nx"))
	require.Empty(t, AbstractHash("no sections at all"))
}

func TestFingerprint(t *testing.T) {
	fp := NewFingerprint("A Title - by x", "## Abstract\none two three\n")
	require.Equal(t, "a title", fp.NormalizedTitle)
	require.Equal(t, 5, fp.WordCount)
	require.NotEmpty(t, fp.ContentHash)
	require.NotEmpty(t, fp.AbstractHash)
}
