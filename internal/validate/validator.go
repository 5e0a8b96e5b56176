// Package validate runs batteries of independent consistency checks
// against a graph. Checks report violations as data instead of failing;
// callers decide which violations block a commit.
package validate

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// Rule identifiers. Stable strings: violation consumers key on them.
const (
	RuleReferenceResolution = "reference-resolution"
	RuleRedGreen            = "red-green"
	RuleAcyclicity          = "acyclicity"
)

// Violation is one finding from one check. Every violation names the
// offending node and/or edge identities so the caller can target a precise
// revision.
type Violation struct {
	RuleID   string   `json:"rule_id"`
	NodeIDs  []string `json:"offending_ids,omitempty"`
	EdgeKeys []string `json:"offending_edges,omitempty"`
	Message  string   `json:"message"`
	Blocking bool     `json:"blocking"`
}

// Check is one independent consistency rule.
type Check interface {
	RuleID() string
	Run(g *graph.Graph) []Violation
}

// Validator runs a battery of checks and concatenates their findings.
type Validator struct {
	checks []Check
}

// New builds a validator over the given checks.
func New(checks ...Check) *Validator {
	return &Validator{checks: checks}
}

// Run executes every check. The result is sorted by rule then message so
// repeated runs over the same graph compare equal.
func (v *Validator) Run(g *graph.Graph) []Violation {
	var out []Violation
	for _, c := range v.checks {
		out = append(out, c.Run(g)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Blocking filters a violation list down to the commit-blocking entries.
func Blocking(violations []Violation) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.Blocking {
			out = append(out, v)
		}
	}
	return out
}

// --- Reference resolution ---

// ReferenceCheck verifies every edge endpoint resolves to a node in the
// checked graph. A dual-graph session validates its future side, which
// starts as a full clone of current, so an endpoint that does not resolve
// is either a reference to something that never existed or to something
// the session deleted; both must block. Always blocking.
type ReferenceCheck struct{}

func (c *ReferenceCheck) RuleID() string { return RuleReferenceResolution }

func (c *ReferenceCheck) Run(g *graph.Graph) []Violation {
	var out []Violation
	for _, e := range g.Edges() {
		for _, id := range []string{e.SourceID, e.TargetID} {
			if g.HasNode(id) {
				continue
			}
			out = append(out, Violation{
				RuleID:   RuleReferenceResolution,
				NodeIDs:  []string{id},
				EdgeKeys: []string{e.Key()},
				Message:  fmt.Sprintf("edge %s: endpoint %s does not resolve", e.Key(), id),
				Blocking: true,
			})
		}
	}
	return out
}

// --- Red/green correctness ---

// RedGreenCheck verifies no node is green while a signature-changed red
// upstream neighbor reaches it over a signature-sensitive edge.
type RedGreenCheck struct {
	// Tracker supplies the sensitivity classification in effect.
	Tracker *graph.Tracker

	// SigChanged marks the nodes whose signature hash moved in the pending
	// change set.
	SigChanged map[string]bool
}

func (c *RedGreenCheck) RuleID() string { return RuleRedGreen }

func (c *RedGreenCheck) Run(g *graph.Graph) []Violation {
	tr := c.Tracker
	if tr == nil {
		tr = graph.NewTracker()
	}
	var out []Violation
	for _, e := range g.Edges() {
		if !tr.Sensitive(e.Type) {
			continue
		}
		up, err := g.GetNode(e.TargetID)
		if err != nil {
			continue // reference check owns dangling endpoints
		}
		if up.Color != graph.ColorRed || !c.SigChanged[up.ID] {
			continue
		}
		down, err := g.GetNode(e.SourceID)
		if err != nil {
			continue
		}
		if down.Color == graph.ColorGreen {
			out = append(out, Violation{
				RuleID:   RuleRedGreen,
				NodeIDs:  []string{down.ID},
				EdgeKeys: []string{e.Key()},
				Message:  fmt.Sprintf("node %s is green but depends on red signature-changed %s", down.ID, up.ID),
				Blocking: false,
			})
		}
	}
	return out
}

// --- Acyclicity ---

// CycleCheck reports cycles formed by the designated edge types. Advisory
// by default; Blocking makes findings commit-blocking.
type CycleCheck struct {
	EdgeTypes []graph.EdgeType
	Blocking  bool
}

func (c *CycleCheck) RuleID() string { return RuleAcyclicity }

func (c *CycleCheck) Run(g *graph.Graph) []Violation {
	include := make(map[graph.EdgeType]bool, len(c.EdgeTypes))
	for _, t := range c.EdgeTypes {
		include[t] = true
	}

	adj := make(map[string][]string)
	for _, e := range g.Edges() {
		if include[e.Type] {
			adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		}
	}

	// Iterative DFS with three colors; on finding a back edge, report the
	// stack segment forming the cycle.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int)
	var out []Violation

	var stack []string
	onStack := make(map[string]int) // id -> index in stack

	var visit func(id string)
	visit = func(id string) {
		state[id] = gray
		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch state[next] {
			case white:
				visit(next)
			case gray:
				start := onStack[next]
				members := make([]string, len(stack)-start)
				copy(members, stack[start:])
				sort.Strings(members)
				out = append(out, Violation{
					RuleID:   RuleAcyclicity,
					NodeIDs:  members,
					Message:  fmt.Sprintf("cycle of %d node(s) via %v", len(members), c.EdgeTypes),
					Blocking: c.Blocking,
				})
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		state[id] = black
	}

	for _, n := range g.Nodes() {
		if state[n.ID] == white {
			visit(n.ID)
		}
	}
	return out
}
