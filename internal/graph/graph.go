package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Graph is an arena of nodes addressed by stable string IDs, with edges kept
// in an independent table of ID pairs. Edges are indexed by both source and
// target so traversal works in either direction. Thread-safe via
// sync.RWMutex; a single writer owns each instance.
type Graph struct {
	mu       sync.RWMutex
	nodes    map[string]Node
	edges    map[string]Edge            // key: Edge.Key()
	out      map[string]map[string]bool // sourceID -> edge keys
	in       map[string]map[string]bool // targetID -> edge keys
	version  uint64
	readOnly bool
}

// New returns an empty mutable graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string]Edge),
		out:   make(map[string]map[string]bool),
		in:    make(map[string]map[string]bool),
	}
}

// Version returns the mutation counter. It increases monotonically with
// every successful write.
func (g *Graph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// ReadOnly reports whether the graph is a frozen snapshot.
func (g *Graph) ReadOnly() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.readOnly
}

// InsertNode adds a node and fails with ErrDuplicateID if the ID exists.
func (g *Graph) InsertNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("insert node %s: %w", n.ID, ErrDuplicateID)
	}
	g.putNodeLocked(n)
	return nil
}

// UpsertNode adds or overwrites a node.
func (g *Graph) UpsertNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	g.putNodeLocked(n)
	return nil
}

func (g *Graph) putNodeLocked(n Node) {
	if n.Color == "" {
		n.Color = ColorGreen
	}
	if n.Status == "" {
		n.Status = StatusCurrent
	}
	g.nodes[n.ID] = n
	g.version++
}

// GetNode returns the node with the given ID or ErrNodeNotFound.
func (g *Graph) GetNode(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("get node %s: %w", id, ErrNodeNotFound)
	}
	return n, nil
}

// HasNode reports whether the ID resolves to a node.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// UpsertEdge adds an edge. Both endpoints must already resolve; a dangling
// endpoint yields a *ReferenceError. Duplicate (source, target, type)
// triples collapse to one edge.
func (g *Graph) UpsertEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	if _, ok := g.nodes[e.SourceID]; !ok {
		return &ReferenceError{Edge: e, Missing: e.SourceID}
	}
	if _, ok := g.nodes[e.TargetID]; !ok {
		return &ReferenceError{Edge: e, Missing: e.TargetID}
	}
	key := e.Key()
	if _, ok := g.edges[key]; ok {
		return nil
	}
	g.edges[key] = e
	if g.out[e.SourceID] == nil {
		g.out[e.SourceID] = make(map[string]bool)
	}
	g.out[e.SourceID][key] = true
	if g.in[e.TargetID] == nil {
		g.in[e.TargetID] = make(map[string]bool)
	}
	g.in[e.TargetID][key] = true
	g.version++
	return nil
}

// StageEdge inserts an edge without endpoint validation. Proposal staging
// uses it: a proposed edit may reference an entity that does not exist yet,
// and resolution is deferred to the consistency validator before commit.
func (g *Graph) StageEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	key := e.Key()
	if _, ok := g.edges[key]; ok {
		return nil
	}
	g.edges[key] = e
	if g.out[e.SourceID] == nil {
		g.out[e.SourceID] = make(map[string]bool)
	}
	g.out[e.SourceID][key] = true
	if g.in[e.TargetID] == nil {
		g.in[e.TargetID] = make(map[string]bool)
	}
	g.in[e.TargetID][key] = true
	g.version++
	return nil
}

// DeleteEdge removes an edge if present.
func (g *Graph) DeleteEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	g.deleteEdgeLocked(e.Key())
	return nil
}

func (g *Graph) deleteEdgeLocked(key string) {
	e, ok := g.edges[key]
	if !ok {
		return
	}
	delete(g.edges, key)
	delete(g.out[e.SourceID], key)
	delete(g.in[e.TargetID], key)
	g.version++
}

// DeleteNode removes a node and all incident edges atomically with it.
// Returns ErrNodeNotFound if the ID does not resolve.
func (g *Graph) DeleteNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("delete node %s: %w", id, ErrNodeNotFound)
	}
	for key := range g.out[id] {
		g.deleteEdgeLocked(key)
	}
	for key := range g.in[id] {
		g.deleteEdgeLocked(key)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	g.version++
	return nil
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges sorted by (source, target, type).
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// OutEdges returns the edges whose source is id, sorted by key.
func (g *Graph) OutEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesByIndexLocked(g.out[id])
}

// InEdges returns the edges whose target is id, sorted by key.
func (g *Graph) InEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesByIndexLocked(g.in[id])
}

func (g *Graph) edgesByIndexLocked(keys map[string]bool) []Edge {
	out := make([]Edge, 0, len(keys))
	for key := range keys {
		out = append(out, g.edges[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// QueryByLevel returns the nodes matching filter, projected to the given
// level and sorted by ID. A nil filter matches every node.
func (g *Graph) QueryByLevel(level Level, filter func(Node) bool) []Node {
	nodes := g.Nodes()
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if filter != nil && !filter(n) {
			continue
		}
		out = append(out, n.AtLevel(level))
	}
	return out
}

// SetColor recolors a node in place.
func (g *Graph) SetColor(id string, c Color) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set color %s: %w", id, ErrNodeNotFound)
	}
	n.Color = c
	g.nodes[id] = n
	return nil
}

// ResetColors marks every node green.
func (g *Graph) ResetColors() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, n := range g.nodes {
		n.Color = ColorGreen
		g.nodes[id] = n
	}
}

// SetStatus restamps a node's status in place.
func (g *Graph) SetStatus(id string, s NodeStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readOnly {
		return ErrReadOnly
	}
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set status %s: %w", id, ErrNodeNotFound)
	}
	n.Status = s
	g.nodes[id] = n
	return nil
}

// SetAllStatus stamps every node with the given status.
func (g *Graph) SetAllStatus(s NodeStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, n := range g.nodes {
		n.Status = s
		g.nodes[id] = n
	}
}

// Clone returns a deep, mutable copy of the graph. The clone starts with
// the source's version counter so hash-for-hash comparisons line up.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.copyLocked(false)
}

// Snapshot returns a frozen point-in-time copy. Reads against a snapshot
// observe a single consistent state regardless of later mutation of the
// source; mutating the snapshot itself fails with ErrReadOnly.
func (g *Graph) Snapshot() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.copyLocked(true)
}

func (g *Graph) copyLocked(frozen bool) *Graph {
	c := &Graph{
		nodes:    make(map[string]Node, len(g.nodes)),
		edges:    make(map[string]Edge, len(g.edges)),
		out:      make(map[string]map[string]bool, len(g.out)),
		in:       make(map[string]map[string]bool, len(g.in)),
		version:  g.version,
		readOnly: frozen,
	}
	for id, n := range g.nodes {
		c.nodes[id] = n
	}
	for key, e := range g.edges {
		c.edges[key] = e
	}
	for id, keys := range g.out {
		m := make(map[string]bool, len(keys))
		for k := range keys {
			m[k] = true
		}
		c.out[id] = m
	}
	for id, keys := range g.in {
		m := make(map[string]bool, len(keys))
		for k := range keys {
			m[k] = true
		}
		c.in[id] = m
	}
	return c
}

// Fingerprint digests the full graph state: IDs, hashes, statuses and the
// edge table in sorted order. Two graphs with equal fingerprints are
// hash-for-hash identical.
func (g *Graph) Fingerprint() string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		fmt.Fprintf(&b, "n|%s|%s|%s|%s\n", n.ID, n.SignatureHash, n.BodyHash, n.Status)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "e|%s\n", e.Key())
	}
	return HashBytes([]byte(b.String()))
}
