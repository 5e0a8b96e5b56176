package mcptools

import (
	"github.com/dusk-indust/sigraph/internal/export"
	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/ingest"
	"github.com/dusk-indust/sigraph/internal/status"
	"github.com/dusk-indust/sigraph/internal/validate"
	"github.com/dusk-indust/sigraph/internal/workspace"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// IngestSourceInput is the input for the ingest_source MCP tool.
type IngestSourceInput struct {
	RepoPath    string   `json:"repoPath,omitempty" jsonschema:"absolute path of a source tree to ingest"`
	Path        string   `json:"path,omitempty" jsonschema:"file path for inline ingestion of a single unit"`
	Source      string   `json:"source,omitempty" jsonschema:"source text for inline ingestion; requires path"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directory names to exclude when walking repoPath"`
}

// IngestSourceOutput is the result of the ingest_source MCP tool.
type IngestSourceOutput struct {
	Report ingest.Report `json:"report"`
}

// ExportGraphInput is the input for the export_graph MCP tool.
type ExportGraphInput struct {
	Level      int      `json:"level" jsonschema:"disclosure level: 0 edges only, 1 adds signatures, 2 adds type-system metadata"`
	PathPrefix string   `json:"pathPrefix,omitempty" jsonschema:"restrict the export to nodes whose file path starts with this prefix"`
	Kinds      []string `json:"kinds,omitempty" jsonschema:"restrict the export to these node kinds"`
	Format     string   `json:"format,omitempty" jsonschema:"json (default) or mermaid"`
}

// ExportGraphOutput is the result of the export_graph MCP tool.
type ExportGraphOutput struct {
	Document *export.Document `json:"document,omitempty"`
	Mermaid  string           `json:"mermaid,omitempty"`
}

// GetNodeInput is the input for the get_node MCP tool.
type GetNodeInput struct {
	NodeID string `json:"nodeId" jsonschema:"node ID to look up"`
	Level  int    `json:"level,omitempty" jsonschema:"disclosure level for the returned node (default: 2)"`
}

// GetNodeOutput is the result of the get_node MCP tool.
type GetNodeOutput struct {
	Node graph.Node `json:"node"`
}

// GraphStatusInput is the input for the graph_status MCP tool.
type GraphStatusInput struct{}

// GraphStatusOutput is the result of the graph_status MCP tool.
type GraphStatusOutput struct {
	Status status.Summary `json:"status"`
}

// BeginProposalInput is the input for the begin_proposal MCP tool.
type BeginProposalInput struct{}

// BeginProposalOutput is the result of the begin_proposal MCP tool.
type BeginProposalOutput struct {
	ProposalID string `json:"proposalId"`
}

// ApplyEditInput is the input for the apply_edit MCP tool.
type ApplyEditInput struct {
	EntityID   string       `json:"entityId" jsonschema:"ID of the entity being created, edited or deleted"`
	Action     string       `json:"action" jsonschema:"create, edit or delete"`
	FutureCode string       `json:"futureCode,omitempty" jsonschema:"proposed code text for the entity"`
	Node       *graph.Node  `json:"node,omitempty" jsonschema:"proposed interface metadata; required for create and edit"`
	Edges      []graph.Edge `json:"edges,omitempty" jsonschema:"proposed outgoing edges of the entity"`
}

// ApplyEditOutput is the result of the apply_edit MCP tool.
type ApplyEditOutput struct {
	EntityID string             `json:"entityId"`
	State    workspace.RowState `json:"state"`
}

// ComputeAffectedSetInput is the input for the compute_affected_set MCP tool.
type ComputeAffectedSetInput struct{}

// ComputeAffectedSetOutput is the result of the compute_affected_set MCP tool.
type ComputeAffectedSetOutput struct {
	AffectedSet workspace.AffectedSet `json:"affectedSet"`
}

// ValidateProposalInput is the input for the validate_proposal MCP tool.
type ValidateProposalInput struct{}

// ValidateProposalOutput is the result of the validate_proposal MCP tool.
type ValidateProposalOutput struct {
	Violations []validate.Violation `json:"violations"`
	Blocking   int                  `json:"blocking"`
}

// CommitProposalInput is the input for the commit_proposal MCP tool.
type CommitProposalInput struct{}

// CommitProposalOutput is the result of the commit_proposal MCP tool. A
// rejected commit is a result, not a protocol error: the violation list
// tells the caller what to revise.
type CommitProposalOutput struct {
	Committed  bool                 `json:"committed"`
	Violations []validate.Violation `json:"violations,omitempty"`
}

// DiscardProposalInput is the input for the discard_proposal MCP tool.
type DiscardProposalInput struct{}

// DiscardProposalOutput is the result of the discard_proposal MCP tool.
type DiscardProposalOutput struct {
	Discarded bool `json:"discarded"`
}
