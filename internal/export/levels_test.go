package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// sampleGraph builds two functions and a generic type across two files:
// handler -> parse (Calls), handler -> Codec (Uses).
func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	parse := graph.Node{
		ID:       graph.NodeIDFor("src/parse.rs", "parse"),
		Kind:     graph.NodeKindFunction,
		Name:     "parse",
		FilePath: "src/parse.rs",
		// body text "fn parse { ... }" is hashed, never stored
		StartLine:  10,
		EndLine:    42,
		Visibility: "pub",
		Doc:        "Parses one record.",
		Signature: graph.SignatureInfo{
			Params:  []graph.Param{{Name: "input", Type: "&str"}},
			Returns: []string{"Result<Record, Error>"},
		},
	}
	parse.SignatureHash = graph.HashSignature(parse)
	parse.BodyHash = graph.HashBody("fn parse { ... }")

	handler := graph.Node{
		ID:         graph.NodeIDFor("src/http.rs", "handler"),
		Kind:       graph.NodeKindFunction,
		Name:       "handler",
		FilePath:   "src/http.rs",
		StartLine:  5,
		EndLine:    30,
		Visibility: "pub",
	}
	handler.SignatureHash = graph.HashSignature(handler)
	handler.BodyHash = graph.HashBody("fn handler { ... }")

	codec := graph.Node{
		ID:         graph.NodeIDFor("src/parse.rs", "Codec"),
		Kind:       graph.NodeKindType,
		Name:       "Codec",
		FilePath:   "src/parse.rs",
		StartLine:  1,
		EndLine:    8,
		Visibility: "pub",
		Types: graph.TypeInfo{
			Generics:     []graph.GenericParam{{Name: "T", Bounds: []string{"Serialize"}}},
			Lifetimes:    []graph.LifetimeParam{{Name: "'a"}},
			WhereClauses: []string{"T: Send + Sync"},
		},
	}
	codec.SignatureHash = graph.HashSignature(codec)
	codec.BodyHash = graph.HashBody("struct Codec { ... }")

	for _, n := range []graph.Node{parse, handler, codec} {
		require.NoError(t, g.UpsertNode(n))
	}
	require.NoError(t, g.UpsertEdge(graph.Edge{SourceID: handler.ID, TargetID: parse.ID, Type: graph.EdgeCalls}))
	require.NoError(t, g.UpsertEdge(graph.Edge{SourceID: handler.ID, TargetID: codec.ID, Type: graph.EdgeUses}))
	return g
}

func TestExport_Level0IsEdgesOnly(t *testing.T) {
	g := sampleGraph(t)

	doc, err := Project(g, graph.Level0, nil)
	require.NoError(t, err)

	assert.Empty(t, doc.Nodes)
	require.Len(t, doc.Edges, 2)
	for _, e := range doc.Edges {
		assert.NotEmpty(t, e.FromKey)
		assert.NotEmpty(t, e.ToKey)
		assert.NotEmpty(t, e.EdgeType)
	}
}

func TestExport_Level1HasSignaturesNoTypeSystem(t *testing.T) {
	g := sampleGraph(t)

	doc, err := Project(g, graph.Level1, nil)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)

	var parse, codec *NodeRecord
	for i := range doc.Nodes {
		switch doc.Nodes[i].Name {
		case "parse":
			parse = &doc.Nodes[i]
		case "Codec":
			codec = &doc.Nodes[i]
		}
	}
	require.NotNil(t, parse)
	require.NotNil(t, codec)

	assert.Equal(t, "pub", parse.Visibility)
	assert.Equal(t, "Parses one record.", parse.Doc)
	assert.Equal(t, [2]int{10, 42}, parse.LineRange)
	require.NotNil(t, parse.Signature)
	assert.Equal(t, []string{"Result<Record, Error>"}, parse.Signature.Returns)

	assert.Empty(t, codec.Generics, "no type-system detail at level 1")
	assert.Empty(t, codec.WhereClauses)
}

func TestExport_Level2HasFullTypeSystem(t *testing.T) {
	g := sampleGraph(t)

	doc, err := Project(g, graph.Level2, nil)
	require.NoError(t, err)

	var codec *NodeRecord
	for i := range doc.Nodes {
		if doc.Nodes[i].Name == "Codec" {
			codec = &doc.Nodes[i]
		}
	}
	require.NotNil(t, codec)
	require.Len(t, codec.Generics, 1)
	assert.Equal(t, "T", codec.Generics[0].Name)
	assert.Equal(t, []string{"Serialize"}, codec.Generics[0].Bounds)
	assert.Equal(t, []string{"T: Send + Sync"}, codec.WhereClauses)
	require.Len(t, codec.Lifetimes, 1)
	assert.Equal(t, "'a", codec.Lifetimes[0].Name)
}

func TestExport_NoBodiesAtAnyLevel(t *testing.T) {
	g := sampleGraph(t)

	for _, level := range []graph.Level{graph.Level0, graph.Level1, graph.Level2} {
		out, err := Marshal(g, level, nil)
		require.NoError(t, err)
		assert.NotContains(t, string(out), "fn parse {", "level %d leaked a body", level)
		assert.NotContains(t, string(out), "struct Codec {", "level %d leaked a body", level)
	}
}

func TestExport_Deterministic(t *testing.T) {
	g := sampleGraph(t)

	for _, level := range []graph.Level{graph.Level0, graph.Level1, graph.Level2} {
		first, err := Marshal(g.Snapshot(), level, nil)
		require.NoError(t, err)
		second, err := Marshal(g.Snapshot(), level, nil)
		require.NoError(t, err)
		assert.Equal(t, first, second, "level %d export must be byte-identical", level)
	}
}

func TestExport_SortedByID(t *testing.T) {
	g := sampleGraph(t)

	doc, err := Project(g, graph.Level1, nil)
	require.NoError(t, err)
	for i := 1; i < len(doc.Nodes); i++ {
		assert.True(t, doc.Nodes[i-1].ID < doc.Nodes[i].ID, "nodes sorted by id")
	}
	for i := 1; i < len(doc.Edges); i++ {
		prev := doc.Edges[i-1].FromKey + ":" + doc.Edges[i-1].ToKey + ":" + doc.Edges[i-1].EdgeType
		cur := doc.Edges[i].FromKey + ":" + doc.Edges[i].ToKey + ":" + doc.Edges[i].EdgeType
		assert.True(t, prev < cur, "edges sorted by key")
	}
}

func TestExport_FilterScopesNodesAndEdges(t *testing.T) {
	g := sampleGraph(t)

	doc, err := Project(g, graph.Level1, PathPrefixFilter("src/parse.rs"))
	require.NoError(t, err)

	assert.Len(t, doc.Nodes, 2, "parse and Codec live in src/parse.rs")
	assert.Empty(t, doc.Edges, "handler is filtered out, so its edges are too")

	doc, err = Project(g, graph.Level1, KindFilter(graph.NodeKindFunction))
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1, "only handler->parse survives a function-only filter")
	assert.Equal(t, "CALLS", doc.Edges[0].EdgeType)
}

func TestExport_InvalidLevel(t *testing.T) {
	g := sampleGraph(t)
	_, err := Project(g, graph.Level(7), nil)
	assert.Error(t, err)
}

func TestExport_StableFieldNames(t *testing.T) {
	g := sampleGraph(t)

	out, err := Marshal(g, graph.Level1, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	nodes := decoded["nodes"].([]any)
	first := nodes[0].(map[string]any)
	for _, field := range []string{"id", "kind", "name", "file_path", "line_range", "signature_hash", "body_hash"} {
		assert.Contains(t, first, field)
	}
	edges := decoded["edges"].([]any)
	e := edges[0].(map[string]any)
	for _, field := range []string{"from_key", "to_key", "edge_type"} {
		assert.Contains(t, e, field)
	}
}

func TestGenerateMermaid(t *testing.T) {
	g := sampleGraph(t)

	out, err := GenerateMermaid(g, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `["parse"]`)
	assert.Contains(t, out, "-->|CALLS|")
}
