package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/sigraph/internal/graph"
)

func batchNode(path, name string, body string, returns ...string) graph.Node {
	n := graph.Node{
		Kind:      graph.NodeKindFunction,
		Name:      name,
		FilePath:  path,
		StartLine: 1,
		EndLine:   5,
		Signature: graph.SignatureInfo{Returns: returns},
	}
	return finishNode(n, body)
}

func TestIngestBatch_PartialSuccess(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)

	good := batchNode("src/lib.rs", "foo", "fn foo() {}")
	noName := batchNode("src/lib.rs", "", "fn ??? {}")
	badID := batchNode("src/lib.rs", "bar", "fn bar() {}")
	badID.ID = "not-derived-from-path-and-name"

	report, err := in.IngestBatch(context.Background(), Batch{Nodes: []graph.Node{good, noName, badID}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AcceptedNodes)
	require.Len(t, report.Skipped, 2)
	assert.True(t, g.HasNode(good.ID))
	assert.Equal(t, 1, g.NodeCount())
}

func TestIngestBatch_UnresolvedEdgeSkipped(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)

	foo := batchNode("src/lib.rs", "foo", "fn foo() { bar() }")
	bar := batchNode("src/util.rs", "bar", "fn bar() {}")

	report, err := in.IngestBatch(context.Background(), Batch{
		Nodes: []graph.Node{foo, bar},
		Edges: []graph.Edge{
			// Raw symbol name from the extractor, resolvable by name.
			{SourceID: foo.ID, TargetID: "bar", Type: graph.EdgeCalls},
			{SourceID: foo.ID, TargetID: "vanished", Type: graph.EdgeCalls},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AcceptedEdges)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "vanished")

	out := g.OutEdges(foo.ID)
	require.Len(t, out, 1)
	assert.Equal(t, bar.ID, out[0].TargetID)
}

func TestIngestBatch_IdempotentReingestAllGreen(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)
	batch := Batch{Nodes: []graph.Node{
		batchNode("src/lib.rs", "foo", "fn foo() -> i32 { bar() }", "i32"),
		batchNode("src/lib.rs", "bar", "fn bar() -> i32 { 0 }", "i32"),
	}}

	first, err := in.IngestBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, first.Red, 2, "everything is new, everything is red")

	second, err := in.IngestBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Empty(t, second.Red, "identical re-ingest leaves every node green")
	assert.Equal(t, 0, second.RemovedNodes)
}

func TestIngestBatch_BodyOnlyChangeIsolated(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)
	foo := batchNode("src/lib.rs", "foo", "fn foo() -> i32 { bar() }", "i32")
	bar := batchNode("src/lib.rs", "bar", "fn bar() -> i32 { 0 }", "i32")
	_, err := in.IngestBatch(context.Background(), Batch{
		Nodes: []graph.Node{foo, bar},
		Edges: []graph.Edge{{SourceID: foo.ID, TargetID: bar.ID, Type: graph.EdgeCalls}},
	})
	require.NoError(t, err)

	// Same signature, new body.
	bar2 := batchNode("src/lib.rs", "bar", "fn bar() -> i32 { 0 } // refactored", "i32")
	report, err := in.IngestBatch(context.Background(), Batch{Nodes: []graph.Node{foo, bar2}})
	require.NoError(t, err)
	assert.Equal(t, []string{bar.ID}, report.Red)
}

func TestIngestBatch_SignatureChangePropagates(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)
	foo := batchNode("src/lib.rs", "foo", "fn foo() -> i32 { bar() }", "i32")
	bar := batchNode("src/lib.rs", "bar", "fn bar() -> i32 { 0 }", "i32")
	_, err := in.IngestBatch(context.Background(), Batch{
		Nodes: []graph.Node{foo, bar},
		Edges: []graph.Edge{{SourceID: foo.ID, TargetID: bar.ID, Type: graph.EdgeCalls}},
	})
	require.NoError(t, err)

	// bar now returns bool: foo's call site is invalidated too.
	bar2 := batchNode("src/lib.rs", "bar", "fn bar() -> bool { true }", "bool")
	report, err := in.IngestBatch(context.Background(), Batch{Nodes: []graph.Node{foo, bar2}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{foo.ID, bar.ID}, report.Red)
}

func TestIngestBatch_FileScopedRemoval(t *testing.T) {
	g := graph.New()
	in := NewIngestor(g, nil)
	foo := batchNode("src/lib.rs", "foo", "fn foo() { bar() }")
	bar := batchNode("src/lib.rs", "bar", "fn bar() {}")
	other := batchNode("src/util.rs", "helper", "fn helper() {}")
	_, err := in.IngestBatch(context.Background(), Batch{
		Nodes: []graph.Node{foo, bar, other},
		Edges: []graph.Edge{{SourceID: foo.ID, TargetID: bar.ID, Type: graph.EdgeCalls}},
	})
	require.NoError(t, err)

	// Re-ingest of lib.rs no longer contains bar; util.rs is untouched.
	report, err := in.IngestBatch(context.Background(), Batch{Nodes: []graph.Node{foo}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RemovedNodes)
	assert.False(t, g.HasNode(bar.ID))
	assert.True(t, g.HasNode(other.ID))
	assert.Contains(t, report.Red, foo.ID, "dependent of a deleted node is red")
}

func TestIngestBatch_MissingStoredHashFailsLoudly(t *testing.T) {
	g := graph.New()
	corrupt := batchNode("src/lib.rs", "foo", "fn foo() {}")
	corrupt.SignatureHash = ""
	corrupt.BodyHash = ""
	// Bypass ingest validation to simulate corrupt stored state.
	require.NoError(t, g.UpsertNode(corrupt))

	in := NewIngestor(g, nil)
	fresh := batchNode("src/lib.rs", "foo", "fn foo() {}")
	_, err := in.IngestBatch(context.Background(), Batch{Nodes: []graph.Node{fresh}})
	assert.ErrorIs(t, err, graph.ErrHashMismatch)
}

// stubExtractor emits one module node per file without parsing anything.
type stubExtractor struct {
	seen []string
}

func (s *stubExtractor) Extract(_ context.Context, unit SourceUnit) (Batch, error) {
	s.seen = append(s.seen, unit.Path)
	n := graph.Node{
		Kind:      graph.NodeKindModule,
		Name:      filepath.Base(unit.Path),
		FilePath:  unit.Path,
		StartLine: 1,
		EndLine:   1,
	}
	return Batch{Nodes: []graph.Node{finishNode(n, string(unit.Source))}}, nil
}

func (s *stubExtractor) Languages() []Language { return []Language{LanguageGo, LanguageRust} }
func (s *stubExtractor) Close() error          { return nil }

func TestIngestDir_WalksAndExcludes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target"), 0o755))
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	write("src/lib.rs", "fn a() {}")
	write("src/util.go", "package util")
	write("src/notes.txt", "not source")
	write("target/gen.rs", "fn generated() {}")

	g := graph.New()
	ext := &stubExtractor{}
	report, err := IngestDir(context.Background(), NewIngestor(g, nil), ext, root, DirOptions{Concurrency: 1})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"src/lib.rs", "src/util.go"}, ext.seen)
	assert.Equal(t, 2, report.AcceptedNodes)
	assert.Equal(t, 2, g.NodeCount())
}
