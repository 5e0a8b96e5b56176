// Package ingest turns source files into graph batches and applies them to
// a live graph with partial-success semantics: malformed entries are logged
// and skipped, the rest land. Hash diffing and red/green tracking run once
// per applied batch.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// Language tags a source unit for extractor dispatch.
type Language string

const (
	LanguageGo   Language = "go"
	LanguageRust Language = "rust"
)

// SourceUnit is one file handed to an extractor.
type SourceUnit struct {
	Path     string
	Source   []byte
	Language Language
}

// Batch is the raw output of extraction: candidate nodes plus candidate
// edges. Edge targets may be unresolved symbol names rather than node IDs;
// the ingestor resolves them against the graph and skips what it cannot.
type Batch struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// Merge appends another batch's entries onto b.
func (b *Batch) Merge(other Batch) {
	b.Nodes = append(b.Nodes, other.Nodes...)
	b.Edges = append(b.Edges, other.Edges...)
}

// Extractor produces a batch from one source unit.
type Extractor interface {
	Extract(ctx context.Context, unit SourceUnit) (Batch, error)
	Languages() []Language
	Close() error
}

// SkippedEntry records one rejected batch entry and why.
type SkippedEntry struct {
	NodeID  string `json:"nodeId,omitempty"`
	EdgeKey string `json:"edgeKey,omitempty"`
	Reason  string `json:"reason"`
}

// Report aggregates the outcome of one IngestBatch call.
type Report struct {
	AcceptedNodes int            `json:"acceptedNodes"`
	AcceptedEdges int            `json:"acceptedEdges"`
	RemovedNodes  int            `json:"removedNodes"`
	Skipped       []SkippedEntry `json:"skipped,omitempty"`
	Red           []string       `json:"red,omitempty"`
	Passes        int            `json:"passes"`
}

// Ingestor applies batches to a graph.
type Ingestor struct {
	g       *graph.Graph
	tracker *graph.Tracker
}

// NewIngestor wraps a mutable graph. A nil tracker uses the default
// sensitivity classification.
func NewIngestor(g *graph.Graph, tracker *graph.Tracker) *Ingestor {
	if tracker == nil {
		tracker = graph.NewTracker()
	}
	return &Ingestor{g: g, tracker: tracker}
}

// IngestBatch validates and applies one batch. Node entries replace the
// graph's view of every file the batch covers: nodes previously extracted
// from a covered file but absent from the batch are removed. Malformed
// entries and unresolvable edges are skipped, logged, and reported; an
// existing node with a blank stored hash fails the whole batch with
// ErrHashMismatch before anything is mutated.
func (in *Ingestor) IngestBatch(ctx context.Context, batch Batch) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	accepted := make([]graph.Node, 0, len(batch.Nodes))
	files := make(map[string]bool)
	for _, n := range batch.Nodes {
		if reason := validateNode(n); reason != "" {
			log.Printf("ingest: skipping node %q (%s): %s", n.Name, n.FilePath, reason)
			report.Skipped = append(report.Skipped, SkippedEntry{NodeID: n.ID, Reason: reason})
			continue
		}
		accepted = append(accepted, n)
		files[n.FilePath] = true
	}

	// Corrupt stored state is not skippable: a node that exists without
	// hashes cannot be diffed, so the caller must repair before re-ingesting.
	for _, n := range accepted {
		stored, err := in.g.GetNode(n.ID)
		if err != nil {
			continue
		}
		if stored.SignatureHash == "" || stored.BodyHash == "" {
			return nil, fmt.Errorf("ingest node %s: stored hashes missing: %w", n.ID, graph.ErrHashMismatch)
		}
	}

	prior := in.g.Clone()

	for _, n := range accepted {
		if err := in.g.UpsertNode(n); err != nil {
			return nil, fmt.Errorf("ingest node %s: %w", n.ID, err)
		}
		report.AcceptedNodes++
	}

	// File-scoped replacement: anything previously extracted from a covered
	// file and not re-emitted no longer exists in the source.
	batchIDs := make(map[string]bool, len(accepted))
	for _, n := range accepted {
		batchIDs[n.ID] = true
	}
	for _, n := range prior.Nodes() {
		if files[n.FilePath] && !batchIDs[n.ID] {
			if err := in.g.DeleteNode(n.ID); err != nil {
				return nil, fmt.Errorf("ingest remove %s: %w", n.ID, err)
			}
			report.RemovedNodes++
		}
	}

	names := in.nameIndex()
	for _, e := range batch.Edges {
		resolved, reason := in.resolveEdge(e, names)
		if reason != "" {
			log.Printf("ingest: skipping edge %s: %s", e.Key(), reason)
			report.Skipped = append(report.Skipped, SkippedEntry{EdgeKey: e.Key(), Reason: reason})
			continue
		}
		if err := in.g.UpsertEdge(resolved); err != nil {
			return nil, fmt.Errorf("ingest edge %s: %w", resolved.Key(), err)
		}
		report.AcceptedEdges++
	}

	deltas := graph.DiffHashes(prior, in.g)
	res := in.tracker.Track(in.g, prior, deltas)
	report.Red = res.Red
	report.Passes = res.Passes
	sort.Slice(report.Skipped, func(i, j int) bool {
		a, b := report.Skipped[i], report.Skipped[j]
		return a.NodeID+a.EdgeKey < b.NodeID+b.EdgeKey
	})
	return report, nil
}

// nameIndex maps symbol names to node IDs, keeping only unambiguous names.
func (in *Ingestor) nameIndex() map[string]string {
	idx := make(map[string]string)
	ambiguous := make(map[string]bool)
	for _, n := range in.g.Nodes() {
		if prev, ok := idx[n.Name]; ok && prev != n.ID {
			ambiguous[n.Name] = true
			continue
		}
		idx[n.Name] = n.ID
	}
	for name := range ambiguous {
		delete(idx, name)
	}
	return idx
}

// resolveEdge maps an extractor edge onto graph node IDs. Endpoints that
// are not node IDs are treated as symbol names and looked up by name;
// extraction is best effort, so an unresolvable endpoint is a skip, not an
// error.
func (in *Ingestor) resolveEdge(e graph.Edge, names map[string]string) (graph.Edge, string) {
	if e.SourceID == "" || e.TargetID == "" {
		return e, "missing endpoint"
	}
	if !e.Type.Valid() {
		return e, fmt.Sprintf("unknown edge type %q", e.Type)
	}
	if !in.g.HasNode(e.SourceID) {
		id, ok := names[e.SourceID]
		if !ok {
			return e, fmt.Sprintf("unresolved reference %q", e.SourceID)
		}
		e.SourceID = id
	}
	if in.g.HasNode(e.TargetID) {
		return e, ""
	}
	if id, ok := names[e.TargetID]; ok {
		e.TargetID = id
		return e, ""
	}
	return e, fmt.Sprintf("unresolved reference %q", e.TargetID)
}

func validateNode(n graph.Node) string {
	switch {
	case n.Name == "":
		return "empty name"
	case n.FilePath == "":
		return "empty file path"
	case !n.Kind.Valid():
		return fmt.Sprintf("unknown kind %q", n.Kind)
	case n.ID != graph.NodeIDFor(n.FilePath, n.Name):
		return "id does not match file path and name"
	case n.SignatureHash == "" || n.BodyHash == "":
		return "missing content hashes"
	case n.StartLine <= 0 || n.EndLine < n.StartLine:
		return "invalid line range"
	}
	return ""
}
