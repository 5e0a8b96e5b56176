package graph

import "sort"

// HashDelta records how one node's fingerprints moved between two graph
// states.
type HashDelta struct {
	NodeID      string `json:"nodeId"`
	SigChanged  bool   `json:"sigChanged"`
	BodyChanged bool   `json:"bodyChanged"`
	Created     bool   `json:"created"`
	Deleted     bool   `json:"deleted"`
}

// Changed reports whether the node moved at all.
func (d HashDelta) Changed() bool {
	return d.SigChanged || d.BodyChanged || d.Created || d.Deleted
}

// DiffHashes compares the stored hashes of prior against next and returns
// one delta per changed node, sorted by ID. Created nodes and deleted nodes
// count as signature changes: their interface appeared or vanished.
func DiffHashes(prior, next *Graph) []HashDelta {
	var deltas []HashDelta
	for _, n := range next.Nodes() {
		old, err := prior.GetNode(n.ID)
		if err != nil {
			deltas = append(deltas, HashDelta{NodeID: n.ID, Created: true, SigChanged: true, BodyChanged: true})
			continue
		}
		d := HashDelta{
			NodeID:      n.ID,
			SigChanged:  old.SignatureHash != n.SignatureHash,
			BodyChanged: old.BodyHash != n.BodyHash,
		}
		if d.Changed() {
			deltas = append(deltas, d)
		}
	}
	for _, old := range prior.Nodes() {
		if !next.HasNode(old.ID) {
			deltas = append(deltas, HashDelta{NodeID: old.ID, Deleted: true, SigChanged: true})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].NodeID < deltas[j].NodeID })
	return deltas
}

// TrackResult is the outcome of one propagation run.
type TrackResult struct {
	// Colors holds the final color of every node in the tracked graph.
	Colors map[string]Color `json:"colors"`

	// Red lists the affected node IDs, sorted.
	Red []string `json:"red"`

	// Passes is the number of fixpoint iterations taken, including the
	// final pass that observed no change.
	Passes int `json:"passes"`
}

// Tracker computes red/green coloring from hash deltas. Sensitivity can be
// overridden per edge type; unlisted types fall back to the defaults.
type Tracker struct {
	sensitive map[EdgeType]bool
}

// NewTracker returns a Tracker with the default sensitivity classification.
func NewTracker() *Tracker {
	return &Tracker{sensitive: DefaultSensitivity()}
}

// NewTrackerWithOverrides returns a Tracker whose sensitivity table has the
// given per-type overrides applied on top of the defaults.
func NewTrackerWithOverrides(overrides map[EdgeType]bool) *Tracker {
	s := DefaultSensitivity()
	for t, v := range overrides {
		s[t] = v
	}
	return &Tracker{sensitive: s}
}

// Sensitive reports whether edges of type t propagate signature changes.
func (t *Tracker) Sensitive(et EdgeType) bool {
	return t.sensitive[et]
}

// Track colors g from the given deltas and writes the colors back onto its
// nodes. prior supplies the incident edges of deleted nodes, whose
// dependents must still go red even though the edges were cascaded away; it
// may be nil when no delta is a deletion.
//
// Directly changed nodes go red. Redness then propagates along
// signature-sensitive edges, but only out of signature-suspect nodes: a node
// whose own signature hash moved, or one that was reddened through a
// signature-sensitive edge (revising it may change its signature in turn).
// Body-only changes redden the node itself and nothing else. The fixpoint
// terminates within diameter-of-graph passes, bounded by node + edge count.
func (t *Tracker) Track(g *Graph, prior *Graph, deltas []HashDelta) TrackResult {
	g.ResetColors()

	red := make(map[string]bool)
	sigSuspect := make(map[string]bool)

	for _, d := range deltas {
		if d.Deleted {
			// The node is gone from g; its dependents lost an interface.
			if prior != nil {
				for _, e := range prior.InEdges(d.NodeID) {
					if t.sensitive[e.Type] && g.HasNode(e.SourceID) {
						red[e.SourceID] = true
						sigSuspect[e.SourceID] = true
					}
				}
			}
			continue
		}
		if !g.HasNode(d.NodeID) {
			continue
		}
		red[d.NodeID] = true
		if d.SigChanged {
			sigSuspect[d.NodeID] = true
		}
	}

	// Fixpoint: an edge (X -> Y) of a sensitive type makes X red when Y is
	// red and signature-suspect. Iterate until a pass changes nothing.
	edges := g.Edges()
	passes := 1
	for {
		changed := false
		for _, e := range edges {
			if !t.sensitive[e.Type] {
				continue
			}
			if red[e.TargetID] && sigSuspect[e.TargetID] && !red[e.SourceID] {
				red[e.SourceID] = true
				sigSuspect[e.SourceID] = true
				changed = true
			}
		}
		if !changed {
			break
		}
		passes++
	}

	colors := make(map[string]Color, g.NodeCount())
	var redIDs []string
	for _, n := range g.Nodes() {
		c := ColorGreen
		if red[n.ID] {
			c = ColorRed
			redIDs = append(redIDs, n.ID)
		}
		colors[n.ID] = c
		_ = g.SetColor(n.ID, c)
	}
	sort.Strings(redIDs)

	return TrackResult{Colors: colors, Red: redIDs, Passes: passes}
}
