package fsm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/p2pclaw/hive/archive"
	"github.com/p2pclaw/hive/dedup"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/reputation"
	"github.com/p2pclaw/hive/store"
	"github.com/p2pclaw/hive/warden"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	// execute the function call
	receipt, err := n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("alpha", 1500), AuthorID: "author"})
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, lib.StatusMempool, receipt.Status)
	require.Equal(t, 1, receipt.Version)
	require.Nil(t, receipt.Warning)
	rec, found := n.graph.Read(ctx, lib.MempoolPaperPath(receipt.PaperID))
	require.True(t, found)
	p := lib.PaperFromRecord(receipt.PaperID, rec)
	require.Equal(t, lib.StatusMempool, p.Status)
	require.Equal(t, "author", p.AuthorID)
	require.Zero(t, p.NetworkValidations)
	require.Equal(t, 1500, p.WordCount)
	require.Equal(t, TierFinal, p.Tier)
	require.NotEmpty(t, p.ContentHash)
	// the mempool lists it
	pending := n.sm.Mempool(ctx, 10)
	require.Len(t, pending, 1)
	require.Equal(t, receipt.PaperID, pending[0].ID)
	require.Empty(t, pending[0].Content)
}

func TestSubmitSimilarPendingWarns(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	first := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	// the same title while the first is still pending
	receipt, err := n.sm.Submit(ctx, Submission{Title: "Gossip Convergence in Agent Swarms!", Content: testPaper("beta", 1500), AuthorID: "other"})
	require.NoError(t, err)
	require.NotNil(t, receipt.Warning)
	require.Equal(t, dedup.Warn, receipt.Warning.Decision)
	require.Equal(t, first, receipt.Warning.ExistingID)
}

func TestSubmitDuplicateOfVerified(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	n.verify(t, id)
	// execute the function call with an identical title
	sub := Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("beta", 1500), AuthorID: "other"}
	_, err := n.sm.Submit(ctx, sub)
	// compare got vs expected
	require.Error(t, err)
	require.Equal(t, lib.ReasonDuplicate, err.Reason())
	verdict, ok := err.Data().(dedup.Verdict)
	require.True(t, ok)
	require.Equal(t, id, verdict.ExistingID)
	require.Equal(t, 1.0, verdict.Similarity)
	// force pushes it through with a warning
	sub.Force = true
	receipt, err := n.sm.Submit(ctx, sub)
	require.NoError(t, err)
	require.NotNil(t, receipt.Warning)
	require.Equal(t, dedup.Reject, receipt.Warning.Decision)
}

func TestSubmitModeration(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	// a policy violation in the body
	content := strings.Replace(testPaper("alpha", 1500), "## Results\n", "## Results\nget rich with this one trick\n", 1)
	_, err := n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: content, AuthorID: "spammer"})
	require.Error(t, err)
	require.Equal(t, lib.ReasonModerationRejected, err.Reason())
	// a banned author
	for i := 0; i < 3; i++ {
		_, e := n.warden.Inspect(ctx, "banned", "free money")
		require.NoError(t, e)
	}
	_, err = n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("beta", 1500), AuthorID: "banned"})
	require.Error(t, err)
	require.Equal(t, lib.ReasonBanned, err.Reason())
}

func TestValidateTwoValidators(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	// the first approval
	got, err := n.sm.Validate(ctx, id, "v1", true, 0.8)
	require.NoError(t, err)
	require.Equal(t, Result{PaperID: id, Status: lib.StatusMempool, NetworkValidations: 1, AverageScore: 0.8}, got)
	// the second approval crosses the threshold
	got, err = n.sm.Validate(ctx, id, "v2", true, 0.6)
	require.NoError(t, err)
	require.Equal(t, lib.StatusVerified, got.Status)
	require.Equal(t, 2, got.NetworkValidations)
	require.InDelta(t, 0.7, got.AverageScore, 1e-9)
	// the verified copy exists with an archive reference
	rec, found := n.graph.Read(ctx, lib.VerifiedPaperPath(id))
	require.True(t, found)
	verified := lib.PaperFromRecord(id, rec)
	require.Equal(t, lib.StatusVerified, verified.Status)
	require.Equal(t, []string{"v1", "v2"}, verified.ValidatorIDs)
	require.True(t, strings.HasPrefix(verified.ArchiveCID, "bafkrei"))
	// the mempool copy is a tombstone
	rec, found = n.graph.Read(ctx, lib.MempoolPaperPath(id))
	require.True(t, found)
	require.Equal(t, string(lib.StatusPromoted), rec.String(lib.FieldStatus))
	require.Empty(t, n.sm.Mempool(ctx, 10))
	require.Len(t, n.sm.Verified(ctx, 10), 1)
	// the author is credited once
	author, _ := n.rank.Agent(ctx, "author")
	require.Equal(t, 1, author.Contributions)
	require.InDelta(t, 0.7, author.Credits[id], 1e-9)
	// the validators are credited with a validation
	v1, _ := n.rank.Agent(ctx, "v1")
	require.Equal(t, 1, v1.ValidationsDone)
	// a third approval changes nothing
	got, err = n.sm.Validate(ctx, id, "v3", true, 1)
	require.NoError(t, err)
	require.Equal(t, lib.StatusVerified, got.Status)
	require.Equal(t, 2, got.NetworkValidations)
	author, _ = n.rank.Agent(ctx, "author")
	require.Equal(t, 1, author.Contributions)
	// promotion itself is idempotent
	p, err := n.sm.Paper(ctx, id)
	require.NoError(t, err)
	again, err := n.sm.promote(ctx, p)
	require.NoError(t, err)
	require.Equal(t, lib.StatusVerified, again.Status)
	author, _ = n.rank.Agent(ctx, "author")
	require.Equal(t, 1, author.Contributions)
}

func TestConcurrentValidationsPromoteOnce(t *testing.T) {
	r1, r2 := store.NewMemReplica("r1"), store.NewMemReplica("r2")
	a := newTestNodeOver(t, "node-a", r1, r2)
	b := newTestNodeOver(t, "node-b", r2, r1)
	ctx := context.Background()
	id := a.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	// the two approvals land on different nodes at the same time
	var wg sync.WaitGroup
	errs := make([]lib.ErrorI, 2)
	for i, vote := range []struct {
		node      *testNode
		validator string
		score     float64
	}{{a, "v1", 0.8}, {b, "v2", 0.6}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = vote.node.sm.Validate(ctx, id, vote.validator, true, vote.score)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// the verified copy carries both approvals whichever node promoted it
	rec, found := a.graph.Read(ctx, lib.VerifiedPaperPath(id))
	require.True(t, found)
	verified := lib.PaperFromRecord(id, rec)
	require.Equal(t, lib.StatusVerified, verified.Status)
	require.Equal(t, []string{"v1", "v2"}, verified.ValidatorIDs)
	require.Equal(t, 2, verified.NetworkValidations)
	require.InDelta(t, 0.7, verified.AverageScore, 1e-9)
	require.True(t, strings.HasPrefix(verified.ArchiveCID, "bafkrei"))
	// both nodes agree on the outcome
	for _, n := range []*testNode{a, b} {
		p, err := n.sm.Paper(ctx, id)
		require.NoError(t, err)
		require.Equal(t, lib.StatusVerified, p.Status)
	}
	// the author is credited once even if both nodes promoted
	author, _ := a.rank.Agent(ctx, "author")
	require.Equal(t, 1, author.Contributions)
	archived := a.archive.calls.Load() + b.archive.calls.Load()
	require.GreaterOrEqual(t, archived, int32(1))
	require.LessOrEqual(t, archived, int32(2))
}

func TestValidateStoreFailureDoesNotConsumeTheVote(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	// the next write to the paper is lost
	n.sm.graph = &failingGraph{GraphI: n.graph, path: lib.MempoolPaperPath(id), fails: 1}
	// execute the function call
	_, err := n.sm.Validate(ctx, id, "v1", true, 0.8)
	// compare got vs expected
	require.Error(t, err)
	require.Equal(t, lib.ReasonStoreUnavailable, err.Reason())
	_, found := n.graph.Read(ctx, lib.ValidationPath(id, "v1"))
	require.False(t, found)
	// the validator can retry
	got, err := n.sm.Validate(ctx, id, "v1", true, 0.8)
	require.NoError(t, err)
	require.Equal(t, Result{PaperID: id, Status: lib.StatusMempool, NetworkValidations: 1, AverageScore: 0.8}, got)
	_, found = n.graph.Read(ctx, lib.ValidationPath(id, "v1"))
	require.True(t, found)
	// a second attempt after success is a duplicate
	_, err = n.sm.Validate(ctx, id, "v1", true, 0.8)
	require.Equal(t, lib.ReasonAlreadyValidated, err.Reason())
}

func TestValidateBannedValidator(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	for range 3 {
		_, err := n.warden.Penalize(ctx, "v1", "spam")
		require.NoError(t, err)
	}
	// execute the function call
	_, err := n.sm.Validate(ctx, id, "v1", true, 0.8)
	// compare got vs expected
	require.Equal(t, lib.ReasonInsufficientRank, err.Reason())
	p, e := n.sm.Paper(ctx, id)
	require.NoError(t, e)
	require.Zero(t, p.NetworkValidations)
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name        string
		detail      string
		paperID     string // empty uses the submitted paper
		validatorID string
		score       float64
		prepare     func(t *testing.T, n *testNode, id string)
		reason      lib.Reason
	}{
		{
			name:        "self validation",
			detail:      "authors cannot validate their own paper",
			validatorID: "author",
			score:       0.9,
			reason:      lib.ReasonSelfValidation,
		},
		{
			name:        "double validation",
			detail:      "a validator judges a paper once",
			validatorID: "v1",
			score:       0.9,
			prepare: func(t *testing.T, n *testNode, id string) {
				_, err := n.sm.Validate(context.Background(), id, "v1", true, 0.9)
				require.NoError(t, err)
			},
			reason: lib.ReasonAlreadyValidated,
		},
		{
			name:        "flag then approve",
			detail:      "a flag also counts as the validator's judgement",
			validatorID: "v1",
			score:       0.9,
			prepare: func(t *testing.T, n *testNode, id string) {
				_, err := n.sm.Validate(context.Background(), id, "v1", false, 0.1)
				require.NoError(t, err)
			},
			reason: lib.ReasonAlreadyValidated,
		},
		{
			name:        "insufficient rank",
			detail:      "an agent without a verified paper has no vote",
			validatorID: "newcomer",
			score:       0.9,
			reason:      lib.ReasonInsufficientRank,
		},
		{
			name:        "banned validator",
			detail:      "a banned agent has no vote",
			validatorID: "v1",
			score:       0.9,
			prepare: func(t *testing.T, n *testNode, _ string) {
				for i := 0; i < 3; i++ {
					_, err := n.warden.Inspect(context.Background(), "v1", "casino")
					require.NoError(t, err)
				}
			},
			reason: lib.ReasonInsufficientRank,
		},
		{
			name:        "not found",
			detail:      "an unknown paper",
			paperID:     "missing",
			validatorID: "v1",
			score:       0.9,
			reason:      lib.ReasonNotFound,
		},
		{
			name:        "bad score",
			detail:      "quality scores are in [0,1]",
			validatorID: "v1",
			score:       1.5,
			reason:      lib.ReasonValidationFailed,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// pre-define a node with a pending paper
			n := newTestNode(t)
			id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
			if test.prepare != nil {
				test.prepare(t, n, id)
			}
			if test.paperID != "" {
				id = test.paperID
			}
			// execute the function call
			_, err := n.sm.Validate(context.Background(), id, test.validatorID, true, test.score)
			// compare got vs expected
			require.Error(t, err)
			require.Equal(t, test.reason, err.Reason())
		})
	}
}

func TestThreeFlagsReject(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	id := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	n.seedValidator(t, "v3")
	// execute three flags
	for i, v := range []string{"v1", "v2", "v3"} {
		got, err := n.sm.Validate(ctx, id, v, false, 0.1)
		require.NoError(t, err)
		require.Equal(t, i+1, got.FlagCount)
		if i < 2 {
			require.Equal(t, lib.StatusMempool, got.Status)
		} else {
			require.Equal(t, lib.StatusRejected, got.Status)
		}
	}
	// the terminal copy is written
	rec, found := n.graph.Read(ctx, lib.VerifiedPaperPath(id))
	require.True(t, found)
	require.Equal(t, string(lib.StatusRejected), rec.String(lib.FieldStatus))
	// later validations see the terminal state
	n.seedValidator(t, "v4")
	got, err := n.sm.Validate(ctx, id, "v4", true, 1)
	require.NoError(t, err)
	require.Equal(t, lib.StatusRejected, got.Status)
	require.Empty(t, n.sm.Mempool(ctx, 0))
	// the author earned nothing
	author, _ := n.rank.Agent(ctx, "author")
	require.Zero(t, author.Contributions)
}

func TestRevision(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()
	parent := n.submit(t, "alpha", "Gossip convergence in agent swarms", "author")
	// a pending parent cannot be revised
	_, err := n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("beta", 400), AuthorID: "author", ParentID: parent})
	require.Error(t, err)
	require.Equal(t, lib.CodeParentNotVerified, err.Code())
	n.verify(t, parent)
	// only the author may revise
	_, err = n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("beta", 400), AuthorID: "v1", ParentID: parent})
	require.Error(t, err)
	require.Equal(t, lib.CodeRevisionAuthor, err.Code())
	// execute the revision: same title, draft length
	receipt, err := n.sm.Submit(ctx, Submission{Title: "Gossip convergence in agent swarms", Content: testPaper("beta", 400), AuthorID: "author", ParentID: parent})
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, 2, receipt.Version)
	require.Equal(t, parent, receipt.ParentID)
	require.Nil(t, receipt.Warning)
	p, err := n.sm.Paper(ctx, receipt.PaperID)
	require.NoError(t, err)
	require.Equal(t, TierRevision, p.Tier)
	require.Equal(t, parent, p.ParentID)
}

func TestPaperNotFound(t *testing.T) {
	n := newTestNode(t)
	_, err := n.sm.Paper(context.Background(), "missing")
	require.Equal(t, lib.ReasonNotFound, err.Reason())
}

// testNode is a state machine wired to real engines over one in-memory replica
// failingGraph loses the next fails writes to path
type failingGraph struct {
	lib.GraphI
	path  string
	fails int
}

func (f *failingGraph) Put(ctx context.Context, path string, fields lib.Record) lib.ErrorI {
	if path == f.path && f.fails > 0 {
		f.fails--
		return store.ErrNoWriteAck(path, errors.New("unreachable"))
	}
	return f.GraphI.Put(ctx, path, fields)
}

// countingArchiver counts archive requests
type countingArchiver struct {
	archive.ArchiverI
	calls atomic.Int32
}

func (c *countingArchiver) Archive(ctx context.Context, content string) string {
	c.calls.Add(1)
	return c.ArchiverI.Archive(ctx, content)
}

type testNode struct {
	sm      *StateMachine
	graph   *store.Graph
	rank    *reputation.Engine
	warden  *warden.Warden
	archive *countingArchiver
}

// newTestNode() creates a test node with two validators that hold a vote
func newTestNode(t *testing.T) *testNode {
	return newTestNodeOver(t, "node-a", store.NewMemReplica("r1"))
}

// newTestNodeOver() creates a node with the given id over the given replicas
func newTestNodeOver(t *testing.T, nodeID string, replicas ...store.ReplicaI) *testNode {
	config := lib.DefaultConfig()
	config.NodeID = nodeID
	config.SettleMS, config.WriteTimeoutMS = 200, 200
	log := lib.NewNullLogger()
	g, err := store.NewGraph(config, nil, log, replicas...)
	require.NoError(t, err)
	d, err := dedup.New(config.DedupConfig, g, nil, log)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	w, err := warden.New(config.WardenConfig, g, nil, log)
	require.NoError(t, err)
	r := reputation.New(config.ReputationConfig, g, w, nil, log)
	a := &countingArchiver{ArchiverI: archive.NewLocalArchiver(log)}
	n := &testNode{
		sm:      New(config.ConsensusConfig, g, d, r, w, a, nil, log),
		graph:   g,
		rank:    r,
		warden:  w,
		archive: a,
	}
	n.seedValidator(t, "v1")
	n.seedValidator(t, "v2")
	return n
}

// seedValidator() gives the agent one verified contribution so it can vote
func (n *testNode) seedValidator(t *testing.T, id string) {
	require.NoError(t, n.rank.Credit(context.Background(), id, "seed-"+id, 0.8))
}

// submit() submits a final paper and returns its id
func (n *testNode) submit(t *testing.T, seed, title, author string) string {
	receipt, err := n.sm.Submit(context.Background(), Submission{Title: title, Content: testPaper(seed, 1500), AuthorID: author})
	require.NoError(t, err)
	return receipt.PaperID
}

// verify() approves the paper by both seeded validators
func (n *testNode) verify(t *testing.T, id string) {
	for _, v := range []string{"v1", "v2"} {
		_, err := n.sm.Validate(context.Background(), id, v, true, 0.8)
		require.NoError(t, err)
	}
}

// testPaper() builds a well formed paper of exactly n words
func testPaper(seed string, n int) string { return buildPaper(seed, n, 3, "") }

// testPaperWithout() builds a paper missing one section
func testPaperWithout(seed string, n int, skip string) string { return buildPaper(seed, n, 3, skip) }

// testPaperWithRefs() builds a paper citing refs references
func testPaperWithRefs(seed string, n, refs int) string { return buildPaper(seed, n, refs, "") }

// buildPaper() lays out the required sections and pads the introduction to exactly n words
func buildPaper(seed string, n, refs int, skip string) string {
	references := make([]string, 0, refs)
	for i := 1; i <= refs; i++ {
		references = append(references, fmt.Sprintf("[%d] Source number %d.", i, i))
	}
	sections := []struct{ name, body string }{
		{"Abstract", fmt.Sprintf("We study %s gossip dynamics.", seed)},
		{"Introduction", "%s"},
		{"Methodology", "We simulate the network."},
		{"Results", "The network converges."},
		{"Discussion", "Convergence holds under churn."},
		{"Conclusion", fmt.Sprintf("This study shows %s gossip dynamics converge.", seed)},
		{"References", strings.Join(references, "\n")},
	}
	var b strings.Builder
	for _, s := range sections {
		if s.name == skip {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n", s.name, s.body)
	}
	scaffold := b.String()
	filler := make([]string, 0, n)
	for i := lib.WordCount(strings.Replace(scaffold, "%s", "", 1)); i < n; i++ {
		filler = append(filler, fmt.Sprintf("%s%d", seed, i))
	}
	return strings.Replace(scaffold, "%s", strings.Join(filler, " "), 1)
}
