// Package export projects a graph snapshot into the three progressive
// disclosure levels. Output is deterministic: the same graph state, level
// and filter always produce byte-identical JSON, records sorted by id.
// Implementation bodies are never exported at any level; they remain
// addressable only through body_hash.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// Filter scopes the exported node set. A nil Filter admits every node.
// An edge is exported iff both endpoints pass. Filters never alter level
// semantics, only membership.
type Filter func(graph.Node) bool

// EdgeRecord is one level-0 record. Field names are stable across calls for
// machine consumption.
type EdgeRecord struct {
	FromKey  string `json:"from_key"`
	ToKey    string `json:"to_key"`
	EdgeType string `json:"edge_type"`
}

// SignatureRecord carries level-1 parameter/return metadata.
type SignatureRecord struct {
	Receiver string        `json:"receiver,omitempty"`
	Params   []graph.Param `json:"params,omitempty"`
	Returns  []string      `json:"returns,omitempty"`
}

// NodeRecord is one level-1/level-2 record. Level-2-only fields are
// omitted at level 1.
type NodeRecord struct {
	ID            string           `json:"id"`
	Kind          string           `json:"kind"`
	Name          string           `json:"name"`
	Visibility    string           `json:"visibility,omitempty"`
	FilePath      string           `json:"file_path"`
	LineRange     [2]int           `json:"line_range"`
	ModulePath    string           `json:"module_path,omitempty"`
	Doc           string           `json:"doc,omitempty"`
	Signature     *SignatureRecord `json:"signature,omitempty"`
	SignatureHash string           `json:"signature_hash"`
	BodyHash      string           `json:"body_hash"`

	// Level 2 only.
	Generics     []graph.GenericParam  `json:"generics,omitempty"`
	Lifetimes    []graph.LifetimeParam `json:"lifetimes,omitempty"`
	WhereClauses []string              `json:"where_clauses,omitempty"`
	TraitBounds  []string              `json:"trait_bounds,omitempty"`
	Implements   []string              `json:"implements,omitempty"`
}

// Document is the full export payload for one level.
type Document struct {
	Level int          `json:"level"`
	Nodes []NodeRecord `json:"nodes,omitempty"`
	Edges []EdgeRecord `json:"edges"`
}

// Project builds the level projection of g scoped by filter. g should be a
// snapshot so concurrent mutation cannot tear the view.
func Project(g *graph.Graph, level graph.Level, filter Filter) (*Document, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("export: invalid level %d", int(level))
	}

	admitted := make(map[string]bool)
	var nodes []NodeRecord
	for _, n := range g.Nodes() {
		if filter != nil && !filter(n) {
			continue
		}
		admitted[n.ID] = true
		if level >= graph.Level1 {
			nodes = append(nodes, nodeRecord(n, level))
		}
	}

	edges := make([]EdgeRecord, 0)
	for _, e := range g.Edges() {
		if !admitted[e.SourceID] || !admitted[e.TargetID] {
			continue
		}
		edges = append(edges, EdgeRecord{
			FromKey:  e.SourceID,
			ToKey:    e.TargetID,
			EdgeType: string(e.Type),
		})
	}

	return &Document{Level: int(level), Nodes: nodes, Edges: edges}, nil
}

func nodeRecord(n graph.Node, level graph.Level) NodeRecord {
	rec := NodeRecord{
		ID:            n.ID,
		Kind:          string(n.Kind),
		Name:          n.Name,
		Visibility:    n.Visibility,
		FilePath:      n.FilePath,
		LineRange:     [2]int{n.StartLine, n.EndLine},
		ModulePath:    n.ModulePath,
		Doc:           n.Doc,
		SignatureHash: n.SignatureHash,
		BodyHash:      n.BodyHash,
	}
	sig := n.Signature
	if sig.Receiver != "" || len(sig.Params) > 0 || len(sig.Returns) > 0 {
		rec.Signature = &SignatureRecord{
			Receiver: sig.Receiver,
			Params:   sig.Params,
			Returns:  sig.Returns,
		}
	}
	if level >= graph.Level2 {
		rec.Generics = n.Types.Generics
		rec.Lifetimes = n.Types.Lifetimes
		rec.WhereClauses = n.Types.WhereClauses
		rec.TraitBounds = n.Types.TraitBounds
		rec.Implements = n.Types.Implements
	}
	return rec
}

// Marshal renders a projection as indented JSON with a trailing newline.
// encoding/json emits struct fields in declaration order and the record
// slices are pre-sorted, so output is byte-identical for identical input.
func Marshal(g *graph.Graph, level graph.Level, filter Filter) ([]byte, error) {
	doc, err := Project(g, level, filter)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("export: encode level %d: %w", int(level), err)
	}
	return buf.Bytes(), nil
}

// PathPrefixFilter admits nodes whose file path starts with prefix.
func PathPrefixFilter(prefix string) Filter {
	return func(n graph.Node) bool {
		return len(n.FilePath) >= len(prefix) && n.FilePath[:len(prefix)] == prefix
	}
}

// KindFilter admits nodes of the given kinds.
func KindFilter(kinds ...graph.NodeKind) Filter {
	set := make(map[graph.NodeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(n graph.Node) bool { return set[n.Kind] }
}
