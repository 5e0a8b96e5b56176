package workspace

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/validate"
)

func fn(path, name string, returns ...string) graph.Node {
	n := graph.Node{
		ID:        graph.NodeIDFor(path, name),
		Kind:      graph.NodeKindFunction,
		Name:      name,
		FilePath:  path,
		StartLine: 1,
		EndLine:   10,
		Signature: graph.SignatureInfo{Returns: returns},
	}
	n.SignatureHash = graph.HashSignature(n)
	n.BodyHash = graph.HashBody(name + " body")
	return n
}

// newWorkspace builds a workspace over foo -> bar with a MemStore behind it.
func newWorkspace(t *testing.T) (w *Workspace, store *graph.MemStore, foo, bar graph.Node) {
	t.Helper()
	g := graph.New()
	foo = fn("src/lib.rs", "foo", "i32")
	bar = fn("src/lib.rs", "bar", "i32")
	require.NoError(t, g.InsertNode(foo))
	require.NoError(t, g.InsertNode(bar))
	require.NoError(t, g.UpsertEdge(graph.Edge{SourceID: foo.ID, TargetID: bar.ID, Type: graph.EdgeCalls}))

	store = graph.NewMemStore()
	t.Cleanup(func() { _ = store.Close() })
	w = New(g, Options{Store: store})
	return w, store, foo, bar
}

func TestWorkspace_BeginProposal(t *testing.T) {
	w, _, foo, _ := newWorkspace(t)

	id, err := w.BeginProposal()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.ProposalID())

	fut, err := w.Future()
	require.NoError(t, err)
	assert.True(t, fut.HasNode(foo.ID), "future starts as a clone of current")

	_, err = w.BeginProposal()
	assert.ErrorIs(t, err, ErrProposalInFlight)
}

func TestWorkspace_OperationsRequireProposal(t *testing.T) {
	w, _, foo, _ := newWorkspace(t)
	ctx := context.Background()

	assert.ErrorIs(t, w.ApplyEdit(Edit{EntityID: foo.ID, Action: ActionDelete}), ErrNoProposal)
	_, err := w.ComputeAffectedSet()
	assert.ErrorIs(t, err, ErrNoProposal)
	_, err = w.Validate()
	assert.ErrorIs(t, err, ErrNoProposal)
	assert.ErrorIs(t, w.Commit(ctx), ErrNoProposal)
	assert.ErrorIs(t, w.Discard(), ErrNoProposal)
}

func TestWorkspace_EditFlowsThroughMirrorRows(t *testing.T) {
	w, _, _, bar := newWorkspace(t)
	_, err := w.BeginProposal()
	require.NoError(t, err)

	edited := bar
	edited.Signature.Returns = []string{"bool"}
	edited.SignatureHash = ""
	edited.BodyHash = ""
	require.NoError(t, w.ApplyEdit(Edit{
		EntityID:   bar.ID,
		Action:     ActionEdit,
		FutureCode: "fn bar() -> bool { true }",
		Node:       &edited,
	}))

	rows := w.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, RowPendingEdit, rows[0].State())
	assert.True(t, rows[0].FutureInd, "future_action != none implies future_ind")
	assert.True(t, rows[0].CurrentInd)
	assert.Equal(t, "fn bar() -> bool { true }", rows[0].FutureCode)

	fut, err := w.Future()
	require.NoError(t, err)
	got, err := fut.GetNode(bar.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bool"}, got.Signature.Returns)
	assert.NotEqual(t, bar.SignatureHash, got.SignatureHash, "hash recomputed from the proposed interface")
}

func TestWorkspace_ComputeAffectedSet(t *testing.T) {
	w, _, foo, bar := newWorkspace(t)
	_, err := w.BeginProposal()
	require.NoError(t, err)

	// bar's return type changes: foo must be in the blast radius.
	edited := bar
	edited.Signature.Returns = []string{"bool"}
	edited.SignatureHash = ""
	edited.BodyHash = ""
	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionEdit, FutureCode: "fn bar() -> bool {}", Node: &edited}))

	set, err := w.ComputeAffectedSet()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{foo.ID, bar.ID}, set.Red)
	require.Len(t, set.Actions, 1)
	assert.Equal(t, bar.ID, set.Actions[0].EntityID)
}

func TestWorkspace_BodyOnlyEditAffectsOnlyItself(t *testing.T) {
	w, _, _, bar := newWorkspace(t)
	_, err := w.BeginProposal()
	require.NoError(t, err)

	edited := bar // signature untouched, so SignatureHash is still valid
	edited.BodyHash = ""
	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionEdit, FutureCode: "fn bar() -> i32 { log(); 1 }", Node: &edited}))

	set, err := w.ComputeAffectedSet()
	require.NoError(t, err)
	assert.Equal(t, []string{bar.ID}, set.Red)
}

func TestWorkspace_CommitSwapsAndPersists(t *testing.T) {
	w, store, _, bar := newWorkspace(t)
	ctx := context.Background()
	_, err := w.BeginProposal()
	require.NoError(t, err)

	edited := bar
	edited.Signature.Returns = []string{"bool"}
	edited.SignatureHash = ""
	edited.BodyHash = ""
	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionEdit, FutureCode: "fn bar() -> bool {}", Node: &edited}))

	require.NoError(t, w.Commit(ctx))

	// Current now carries the new signature; proposal state is gone.
	cur := w.Current()
	got, err := cur.GetNode(bar.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bool"}, got.Signature.Returns)
	assert.Equal(t, graph.StatusCurrent, got.Status)
	assert.Empty(t, w.ProposalID())
	_, err = w.Future()
	assert.ErrorIs(t, err, ErrNoProposal)

	// Rows reset to Unchanged with the committed code promoted.
	rows := w.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, RowUnchanged, rows[0].State())
	assert.Equal(t, "fn bar() -> bool {}", rows[0].CurrentCode)
	assert.False(t, rows[0].FutureInd)

	// Persisted state matches the committed graph.
	loaded, err := graph.LoadGraph(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, cur.Fingerprint(), loaded.Fingerprint())
}

func TestWorkspace_CommitRejectsDanglingReference(t *testing.T) {
	w, store, foo, _ := newWorkspace(t)
	ctx := context.Background()
	before := w.Current().Fingerprint()

	_, err := w.BeginProposal()
	require.NoError(t, err)

	// foo gains a call to an entity nobody created.
	missing := graph.NodeIDFor("src/lib.rs", "ghost")
	edited := foo
	require.NoError(t, w.ApplyEdit(Edit{
		EntityID:   foo.ID,
		Action:     ActionEdit,
		FutureCode: "fn foo() -> i32 { ghost() }",
		Node:       &edited,
		Edges:      []graph.Edge{{SourceID: foo.ID, TargetID: missing, Type: graph.EdgeCalls}},
	}))

	err = w.Commit(ctx)
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	require.NotEmpty(t, commitErr.Violations)
	v := commitErr.Violations[0]
	assert.Equal(t, validate.RuleReferenceResolution, v.RuleID)
	assert.Contains(t, v.NodeIDs, missing, "violation names the offending id")

	// Nothing was applied or persisted; the proposal is still pending.
	assert.Equal(t, before, w.Current().Fingerprint())
	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.NotEmpty(t, w.ProposalID(), "workspace stays pending for revision")

	// Revision loop: create the missing entity and retry.
	ghost := fn("src/lib.rs", "ghost", "i32")
	require.NoError(t, w.ApplyEdit(Edit{EntityID: ghost.ID, Action: ActionCreate, FutureCode: "fn ghost() -> i32 { 0 }", Node: &ghost}))
	require.NoError(t, w.Commit(ctx))
	assert.True(t, w.Current().HasNode(ghost.ID))
}

func TestWorkspace_CommitRejectsEdgeToDeletedEntity(t *testing.T) {
	w, store, foo, bar := newWorkspace(t)
	ctx := context.Background()
	before := w.Current().Fingerprint()

	_, err := w.BeginProposal()
	require.NoError(t, err)

	// Delete bar, then stage a fresh edge pointing at it: the reference
	// must not resolve through the pre-deletion current side.
	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionDelete}))
	edited := foo
	require.NoError(t, w.ApplyEdit(Edit{
		EntityID: foo.ID,
		Action:   ActionEdit,
		Node:     &edited,
		Edges:    []graph.Edge{{SourceID: foo.ID, TargetID: bar.ID, Type: graph.EdgeCalls}},
	}))

	violations, err := w.Validate()
	require.NoError(t, err)
	require.NotEmpty(t, validate.Blocking(violations))
	assert.Equal(t, validate.RuleReferenceResolution, violations[0].RuleID)
	assert.Contains(t, violations[0].NodeIDs, bar.ID)

	err = w.Commit(ctx)
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)

	// Current is untouched and every committed edge endpoint resolves.
	assert.Equal(t, before, w.Current().Fingerprint())
	for _, e := range w.Current().Edges() {
		assert.True(t, w.Current().HasNode(e.SourceID))
		assert.True(t, w.Current().HasNode(e.TargetID))
	}
	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap, "nothing persisted from the rejected commit")
}

// rejectingStore refuses the atomic swap so commit persistence fails.
type rejectingStore struct {
	*graph.MemStore
}

func (s *rejectingStore) ReplaceAll(context.Context, map[string][]byte) error {
	return fmt.Errorf("disk full: %w", graph.ErrCommitConflict)
}

func TestWorkspace_FailedPersistKeepsStatuses(t *testing.T) {
	g := graph.New()
	foo := fn("src/lib.rs", "foo", "i32")
	require.NoError(t, g.InsertNode(foo))

	store := &rejectingStore{MemStore: graph.NewMemStore()}
	t.Cleanup(func() { _ = store.Close() })
	w := New(g, Options{Store: store})
	ctx := context.Background()

	_, err := w.BeginProposal()
	require.NoError(t, err)

	created := fn("src/lib.rs", "fresh", "i32")
	require.NoError(t, w.ApplyEdit(Edit{EntityID: created.ID, Action: ActionCreate, FutureCode: "fn fresh() -> i32 { 0 }", Node: &created}))
	edited := foo
	require.NoError(t, w.ApplyEdit(Edit{EntityID: foo.ID, Action: ActionEdit, FutureCode: "fn foo() -> i32 { 1 }", Node: &edited}))

	err = w.Commit(ctx)
	require.ErrorIs(t, err, graph.ErrCommitConflict)

	// The proposal is still pending and every staged status survived the
	// rollback untouched, including the created entity's future-only mark.
	assert.NotEmpty(t, w.ProposalID())
	fut, err := w.Future()
	require.NoError(t, err)
	gotCreated, err := fut.GetNode(created.ID)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusFuture, gotCreated.Status)
	gotEdited, err := fut.GetNode(foo.ID)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusBoth, gotEdited.Status)

	// Current side never saw the proposal.
	cur, err := w.Current().GetNode(foo.ID)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusCurrent, cur.Status)
	assert.False(t, w.Current().HasNode(created.ID))
}

func TestWorkspace_DiscardRestoresEverything(t *testing.T) {
	w, _, _, bar := newWorkspace(t)
	before := w.Current().Fingerprint()

	_, err := w.BeginProposal()
	require.NoError(t, err)
	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionDelete}))

	require.NoError(t, w.Discard())

	assert.Equal(t, before, w.Current().Fingerprint(), "current is hash-for-hash identical")
	assert.Empty(t, w.ProposalID())
	for _, row := range w.Rows() {
		assert.Equal(t, RowUnchanged, row.State())
	}
}

func TestWorkspace_DeleteCascadesInFuture(t *testing.T) {
	w, _, foo, bar := newWorkspace(t)
	_, err := w.BeginProposal()
	require.NoError(t, err)

	require.NoError(t, w.ApplyEdit(Edit{EntityID: bar.ID, Action: ActionDelete}))

	fut, err := w.Future()
	require.NoError(t, err)
	assert.False(t, fut.HasNode(bar.ID))
	assert.Zero(t, fut.EdgeCount(), "foo's call edge went with bar")

	// foo is red: its dependency's interface vanished.
	set, err := w.ComputeAffectedSet()
	require.NoError(t, err)
	assert.Equal(t, []string{foo.ID}, set.Red)

	require.NoError(t, w.Commit(context.Background()))
	assert.False(t, w.Current().HasNode(bar.ID))
	assert.Empty(t, w.Rows(), "the deleted entity's row is gone after commit")
}

func TestWorkspace_CreateRequiresNode(t *testing.T) {
	w, _, foo, _ := newWorkspace(t)
	_, err := w.BeginProposal()
	require.NoError(t, err)

	err = w.ApplyEdit(Edit{EntityID: "x", Action: ActionCreate})
	assert.Error(t, err)

	err = w.ApplyEdit(Edit{EntityID: foo.ID, Action: FutureAction("explode")})
	assert.Error(t, err)

	// Creating over an existing id is a duplicate.
	dup := foo
	err = w.ApplyEdit(Edit{EntityID: foo.ID, Action: ActionCreate, Node: &dup})
	assert.ErrorIs(t, err, graph.ErrDuplicateID)

	// Editing a missing id is not found.
	ghost := fn("g.rs", "ghost")
	err = w.ApplyEdit(Edit{EntityID: ghost.ID, Action: ActionEdit, Node: &ghost})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestWorkspace_BlockingCycleStopsCommit(t *testing.T) {
	g := graph.New()
	ma := graph.Node{ID: graph.NodeIDFor("a", "mod_a"), Kind: graph.NodeKindModule, Name: "mod_a", FilePath: "a"}
	ma.SignatureHash = graph.HashSignature(ma)
	ma.BodyHash = graph.HashBody("a")
	mb := graph.Node{ID: graph.NodeIDFor("b", "mod_b"), Kind: graph.NodeKindModule, Name: "mod_b", FilePath: "b"}
	mb.SignatureHash = graph.HashSignature(mb)
	mb.BodyHash = graph.HashBody("b")
	require.NoError(t, g.InsertNode(ma))
	require.NoError(t, g.InsertNode(mb))
	require.NoError(t, g.UpsertEdge(graph.Edge{SourceID: ma.ID, TargetID: mb.ID, Type: graph.EdgeDependsOn}))

	w := New(g, Options{
		CycleEdgeTypes: []graph.EdgeType{graph.EdgeDependsOn},
		BlockingCycles: true,
	})
	_, err := w.BeginProposal()
	require.NoError(t, err)

	// Close the loop: mod_b gains a dependency back onto mod_a.
	edited := mb
	require.NoError(t, w.ApplyEdit(Edit{
		EntityID: mb.ID,
		Action:   ActionEdit,
		Node:     &edited,
		Edges:    []graph.Edge{{SourceID: mb.ID, TargetID: ma.ID, Type: graph.EdgeDependsOn}},
	}))

	err = w.Commit(context.Background())
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, validate.RuleAcyclicity, commitErr.Violations[0].RuleID)

	// The same proposal commits fine when cycles are advisory.
	require.NoError(t, w.Discard())
	advisory := New(g, Options{CycleEdgeTypes: []graph.EdgeType{graph.EdgeDependsOn}})
	_, err = advisory.BeginProposal()
	require.NoError(t, err)
	edited2 := mb
	require.NoError(t, advisory.ApplyEdit(Edit{
		EntityID: mb.ID,
		Action:   ActionEdit,
		Node:     &edited2,
		Edges:    []graph.Edge{{SourceID: mb.ID, TargetID: ma.ID, Type: graph.EdgeDependsOn}},
	}))
	violations, err := advisory.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, violations, "cycle still reported")
	assert.Empty(t, validate.Blocking(violations))
	assert.NoError(t, advisory.Commit(context.Background()))
}
