// Package status summarizes a workspace for humans and tools: node and
// edge counts, color distribution, and the in-flight proposal if any.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/workspace"
)

// Summary is a point-in-time view of a workspace.
type Summary struct {
	Version     uint64         `json:"version"`
	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	ByKind      map[string]int `json:"byKind"`
	Red         int            `json:"red"`
	Green       int            `json:"green"`
	Fingerprint string         `json:"fingerprint"`

	ProposalID     string `json:"proposalId,omitempty"`
	PendingActions int    `json:"pendingActions,omitempty"`
}

// Collect builds a summary from the workspace's current graph and any
// pending proposal.
func Collect(ws *workspace.Workspace) Summary {
	g := ws.Current()
	s := Summary{
		Version:     g.Version(),
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		ByKind:      make(map[string]int),
		Fingerprint: g.Fingerprint(),
		ProposalID:  ws.ProposalID(),
	}
	for _, n := range g.Nodes() {
		s.ByKind[string(n.Kind)]++
		if n.Color == graph.ColorRed {
			s.Red++
		} else {
			s.Green++
		}
	}
	for _, row := range ws.Rows() {
		if row.State() != workspace.RowUnchanged {
			s.PendingActions++
		}
	}
	return s
}

// Render formats a summary as aligned text for terminal output.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph v%d: %d nodes, %d edges (%d red, %d green)\n",
		s.Version, s.Nodes, s.Edges, s.Red, s.Green)

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-10s %d\n", k, s.ByKind[k])
	}

	if s.ProposalID != "" {
		fmt.Fprintf(&b, "proposal %s: %d pending action(s)\n", s.ProposalID, s.PendingActions)
	} else {
		b.WriteString("no proposal in flight\n")
	}
	return b.String()
}
