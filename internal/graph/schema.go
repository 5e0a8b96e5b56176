package graph

// --- Enums ---

// NodeKind classifies entities in the interface signature graph.
type NodeKind string

const (
	NodeKindFunction NodeKind = "function"
	NodeKindMethod   NodeKind = "method"
	NodeKindType     NodeKind = "type"
	NodeKindTrait    NodeKind = "trait"
	NodeKindModule   NodeKind = "module"
	NodeKindConstant NodeKind = "constant"
)

// KnownNodeKinds lists every kind the engine accepts at ingestion.
var KnownNodeKinds = []NodeKind{
	NodeKindFunction,
	NodeKindMethod,
	NodeKindType,
	NodeKindTrait,
	NodeKindModule,
	NodeKindConstant,
}

// Valid reports whether k is a recognized node kind.
func (k NodeKind) Valid() bool {
	for _, known := range KnownNodeKinds {
		if k == known {
			return true
		}
	}
	return false
}

// NodeStatus records which side of a dual-graph session a node belongs to.
type NodeStatus string

const (
	StatusCurrent NodeStatus = "current"
	StatusFuture  NodeStatus = "future"
	StatusBoth    NodeStatus = "both"
)

// Color is the per-node invalidation flag. A red node is affected by a
// pending change and needs revalidation; a green node is not.
type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
)

// EdgeType classifies relationships between nodes.
type EdgeType string

const (
	EdgeCalls      EdgeType = "CALLS"
	EdgeImplements EdgeType = "IMPLEMENTS"
	EdgeUses       EdgeType = "USES"
	EdgeInherits   EdgeType = "INHERITS"
	EdgeDependsOn  EdgeType = "DEPENDS_ON"
)

// KnownEdgeTypes lists every edge type the engine accepts at ingestion.
var KnownEdgeTypes = []EdgeType{
	EdgeCalls,
	EdgeImplements,
	EdgeUses,
	EdgeInherits,
	EdgeDependsOn,
}

// Valid reports whether t is a recognized edge type.
func (t EdgeType) Valid() bool {
	for _, known := range KnownEdgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultSensitivity is the signature-sensitivity classification per edge
// type. Signature-sensitive edges propagate red coloring when the upstream
// node's signature changes. DependsOn couples whole modules, not individual
// signatures, so it does not propagate.
func DefaultSensitivity() map[EdgeType]bool {
	return map[EdgeType]bool{
		EdgeCalls:      true,
		EdgeImplements: true,
		EdgeUses:       true,
		EdgeInherits:   true,
		EdgeDependsOn:  false,
	}
}

// --- Models ---

// Param is one parameter of a function or method signature.
type Param struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// SignatureInfo is the level-1 interface metadata of a node: everything a
// caller binds to, without generic or lifetime detail.
type SignatureInfo struct {
	Receiver string   `json:"receiver,omitempty"`
	Params   []Param  `json:"params,omitempty"`
	Returns  []string `json:"returns,omitempty"`
}

// GenericParam is a generic type parameter and its bounds.
type GenericParam struct {
	Name   string   `json:"name"`
	Bounds []string `json:"bounds,omitempty"`
}

// LifetimeParam is a lifetime parameter and its outlives constraints.
type LifetimeParam struct {
	Name     string   `json:"name"`
	Outlives []string `json:"outlives,omitempty"`
}

// TypeInfo is the level-2 type-system metadata of a node.
type TypeInfo struct {
	Generics     []GenericParam  `json:"generics,omitempty"`
	Lifetimes    []LifetimeParam `json:"lifetimes,omitempty"`
	WhereClauses []string        `json:"whereClauses,omitempty"`
	TraitBounds  []string        `json:"traitBounds,omitempty"`
	Implements   []string        `json:"implements,omitempty"`
}

// Node is one interface unit (function, type, trait, module) in the graph.
// The ID is derived from file path and name and is stable across runs.
// SignatureHash and BodyHash are independent fingerprints: the first covers
// the externally visible interface, the second the implementation. Bodies
// themselves are never stored; they remain addressable only through BodyHash.
type Node struct {
	ID         string        `json:"id"`
	Kind       NodeKind      `json:"kind"`
	Name       string        `json:"name"`
	FilePath   string        `json:"filePath"`
	ModulePath string        `json:"modulePath,omitempty"`
	StartLine  int           `json:"startLine"`
	EndLine    int           `json:"endLine"`
	Visibility string        `json:"visibility,omitempty"`
	Doc        string        `json:"doc,omitempty"`
	Signature  SignatureInfo `json:"signature,omitempty"`
	Types      TypeInfo      `json:"types,omitempty"`

	SignatureHash string     `json:"signatureHash"`
	BodyHash      string     `json:"bodyHash"`
	Status        NodeStatus `json:"status"`
	Color         Color      `json:"color"`
}

// Edge is a directed, typed relation between two nodes. Edges are unique
// per (source, target, type) triple.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Type     EdgeType `json:"type"`
}

// Key returns the canonical identity of the edge. Node IDs are hex digests,
// so ":" can never collide with ID content.
func (e Edge) Key() string {
	return e.SourceID + ":" + e.TargetID + ":" + string(e.Type)
}

// Level selects how much detail a projection of the graph carries.
type Level int

const (
	// Level0 exposes edges only: a cheap architecture overview.
	Level0 Level = iota

	// Level1 adds interface signatures: name, kind, visibility, location,
	// docs, parameter and return metadata.
	Level1

	// Level2 adds full type-system detail: generics, lifetimes,
	// where-clauses, trait bounds and implementations.
	Level2
)

// Valid reports whether l is one of the three defined levels.
func (l Level) Valid() bool {
	return l >= Level0 && l <= Level2
}

// AtLevel returns a copy of n carrying only the metadata visible at the
// given level. Identity fields, hashes and location are always retained.
func (n Node) AtLevel(l Level) Node {
	out := n
	if l < Level2 {
		out.Types = TypeInfo{}
	}
	if l < Level1 {
		out.Visibility = ""
		out.Doc = ""
		out.ModulePath = ""
		out.Signature = SignatureInfo{}
	}
	return out
}
