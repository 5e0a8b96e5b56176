package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/workspace"
)

func TestCollect(t *testing.T) {
	g := graph.New()
	foo := graph.Node{
		ID:       graph.NodeIDFor("src/lib.rs", "foo"),
		Kind:     graph.NodeKindFunction,
		Name:     "foo",
		FilePath: "src/lib.rs",
		Color:    graph.ColorRed,
	}
	foo.SignatureHash = graph.HashSignature(foo)
	foo.BodyHash = graph.HashBody("foo")
	mod := graph.Node{
		ID:       graph.NodeIDFor("src/lib.rs", "lib"),
		Kind:     graph.NodeKindModule,
		Name:     "lib",
		FilePath: "src/lib.rs",
	}
	mod.SignatureHash = graph.HashSignature(mod)
	mod.BodyHash = graph.HashBody("lib")
	require.NoError(t, g.InsertNode(foo))
	require.NoError(t, g.InsertNode(mod))

	ws := workspace.New(g, workspace.Options{})
	s := Collect(ws)
	assert.Equal(t, 2, s.Nodes)
	assert.Equal(t, 1, s.Red)
	assert.Equal(t, 1, s.Green)
	assert.Equal(t, 1, s.ByKind["function"])
	assert.Equal(t, 1, s.ByKind["module"])
	assert.Empty(t, s.ProposalID)

	out := s.Render()
	assert.Contains(t, out, "2 nodes")
	assert.Contains(t, out, "no proposal in flight")

	id, err := ws.BeginProposal()
	require.NoError(t, err)
	require.NoError(t, ws.ApplyEdit(workspace.Edit{EntityID: foo.ID, Action: workspace.ActionDelete}))

	s = Collect(ws)
	assert.Equal(t, id, s.ProposalID)
	assert.Equal(t, 1, s.PendingActions)
	assert.Contains(t, s.Render(), id)
}
