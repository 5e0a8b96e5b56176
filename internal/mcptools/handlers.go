package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/sigraph/internal/export"
	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/ingest"
	"github.com/dusk-indust/sigraph/internal/status"
	"github.com/dusk-indust/sigraph/internal/workspace"
)

// Service holds the workspace and extractor used by MCP tool handlers.
type Service struct {
	ws        *workspace.Workspace
	extractor ingest.Extractor
	tracker   *graph.Tracker
}

// NewService wraps a workspace. A nil tracker uses the default sensitivity
// classification; a nil extractor disables ingest_source.
func NewService(ws *workspace.Workspace, extractor ingest.Extractor, tracker *graph.Tracker) *Service {
	if tracker == nil {
		tracker = graph.NewTracker()
	}
	return &Service{ws: ws, extractor: extractor, tracker: tracker}
}

// IngestSource ingests a source tree or a single inline source unit into
// the current graph. Refused while a proposal is in flight.
func (s *Service) IngestSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestSourceInput,
) (*mcp.CallToolResult, IngestSourceOutput, error) {
	if s.extractor == nil {
		return nil, IngestSourceOutput{}, fmt.Errorf("no extractor configured")
	}
	if input.RepoPath == "" && input.Source == "" {
		return nil, IngestSourceOutput{}, fmt.Errorf("repoPath or path+source is required")
	}

	var report *ingest.Report
	err := s.ws.Mutate(ctx, func(g *graph.Graph) error {
		in := ingest.NewIngestor(g, s.tracker)
		var err error
		if input.Source != "" {
			report, err = s.ingestInline(ctx, in, input)
			return err
		}
		info, statErr := os.Stat(input.RepoPath)
		if statErr != nil {
			return fmt.Errorf("cannot access repoPath: %w", statErr)
		}
		if !info.IsDir() {
			return fmt.Errorf("repoPath is not a directory: %s", input.RepoPath)
		}
		report, err = ingest.IngestDir(ctx, in, s.extractor, input.RepoPath, ingest.DirOptions{
			ExcludeDirs: input.ExcludeDirs,
		})
		return err
	})
	if err != nil {
		return nil, IngestSourceOutput{}, err
	}
	return nil, IngestSourceOutput{Report: *report}, nil
}

func (s *Service) ingestInline(ctx context.Context, in *ingest.Ingestor, input IngestSourceInput) (*ingest.Report, error) {
	lang, ok := ingest.GuessLanguage(input.Path)
	if !ok {
		return nil, fmt.Errorf("cannot determine language for %q", input.Path)
	}
	batch, err := s.extractor.Extract(ctx, ingest.SourceUnit{
		Path:     input.Path,
		Source:   []byte(input.Source),
		Language: lang,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", input.Path, err)
	}
	return in.IngestBatch(ctx, batch)
}

// ExportGraph renders the current graph at a disclosure level, optionally
// scoped by path prefix and node kinds.
func (s *Service) ExportGraph(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExportGraphInput,
) (*mcp.CallToolResult, ExportGraphOutput, error) {
	level := graph.Level(input.Level)
	if !level.Valid() {
		return nil, ExportGraphOutput{}, fmt.Errorf("invalid level %d", input.Level)
	}
	filter := buildFilter(input.PathPrefix, input.Kinds)
	g := s.ws.Current()

	if strings.EqualFold(input.Format, "mermaid") {
		diagram, err := export.GenerateMermaid(g, filter)
		if err != nil {
			return nil, ExportGraphOutput{}, fmt.Errorf("generate mermaid: %w", err)
		}
		return nil, ExportGraphOutput{Mermaid: diagram}, nil
	}

	doc, err := export.Project(g, level, filter)
	if err != nil {
		return nil, ExportGraphOutput{}, fmt.Errorf("project graph: %w", err)
	}
	return nil, ExportGraphOutput{Document: doc}, nil
}

// GetNode looks up one node in the current graph, projected to a level.
func (s *Service) GetNode(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetNodeInput,
) (*mcp.CallToolResult, GetNodeOutput, error) {
	if input.NodeID == "" {
		return nil, GetNodeOutput{}, fmt.Errorf("nodeId is required")
	}
	level := graph.Level2
	if input.Level != 0 {
		level = graph.Level(input.Level)
		if !level.Valid() {
			return nil, GetNodeOutput{}, fmt.Errorf("invalid level %d", input.Level)
		}
	}
	n, err := s.ws.Current().GetNode(input.NodeID)
	if err != nil {
		return nil, GetNodeOutput{}, err
	}
	return nil, GetNodeOutput{Node: n.AtLevel(level)}, nil
}

// GraphStatus summarizes the workspace.
func (s *Service) GraphStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatusInput,
) (*mcp.CallToolResult, GraphStatusOutput, error) {
	return nil, GraphStatusOutput{Status: status.Collect(s.ws)}, nil
}

// BeginProposal opens a speculative-edit session.
func (s *Service) BeginProposal(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ BeginProposalInput,
) (*mcp.CallToolResult, BeginProposalOutput, error) {
	id, err := s.ws.BeginProposal()
	if err != nil {
		return nil, BeginProposalOutput{}, err
	}
	return nil, BeginProposalOutput{ProposalID: id}, nil
}

// ApplyEdit stages one change on the in-flight proposal.
func (s *Service) ApplyEdit(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ApplyEditInput,
) (*mcp.CallToolResult, ApplyEditOutput, error) {
	err := s.ws.ApplyEdit(workspace.Edit{
		EntityID:   input.EntityID,
		Action:     workspace.FutureAction(strings.ToLower(input.Action)),
		FutureCode: input.FutureCode,
		Node:       input.Node,
		Edges:      input.Edges,
	})
	if err != nil {
		return nil, ApplyEditOutput{}, err
	}
	out := ApplyEditOutput{EntityID: input.EntityID, State: workspace.RowUnchanged}
	for _, row := range s.ws.Rows() {
		if row.EntityID == input.EntityID {
			out.State = row.State()
		}
	}
	return nil, out, nil
}

// ComputeAffectedSet returns the proposal's invalidation closure and
// pending action list.
func (s *Service) ComputeAffectedSet(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ComputeAffectedSetInput,
) (*mcp.CallToolResult, ComputeAffectedSetOutput, error) {
	set, err := s.ws.ComputeAffectedSet()
	if err != nil {
		return nil, ComputeAffectedSetOutput{}, err
	}
	return nil, ComputeAffectedSetOutput{AffectedSet: *set}, nil
}

// ValidateProposal runs the consistency battery against the future graph.
func (s *Service) ValidateProposal(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ValidateProposalInput,
) (*mcp.CallToolResult, ValidateProposalOutput, error) {
	violations, err := s.ws.Validate()
	if err != nil {
		return nil, ValidateProposalOutput{}, err
	}
	blocking := 0
	for _, v := range violations {
		if v.Blocking {
			blocking++
		}
	}
	return nil, ValidateProposalOutput{Violations: violations, Blocking: blocking}, nil
}

// CommitProposal atomically promotes the future graph. A validation
// rejection is reported in the output so the caller can revise the still
// pending proposal.
func (s *Service) CommitProposal(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CommitProposalInput,
) (*mcp.CallToolResult, CommitProposalOutput, error) {
	err := s.ws.Commit(ctx)
	if err == nil {
		return nil, CommitProposalOutput{Committed: true}, nil
	}
	var commitErr *workspace.CommitError
	if errors.As(err, &commitErr) {
		return nil, CommitProposalOutput{Committed: false, Violations: commitErr.Violations}, nil
	}
	return nil, CommitProposalOutput{}, err
}

// DiscardProposal drops the in-flight proposal.
func (s *Service) DiscardProposal(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ DiscardProposalInput,
) (*mcp.CallToolResult, DiscardProposalOutput, error) {
	if err := s.ws.Discard(); err != nil {
		return nil, DiscardProposalOutput{}, err
	}
	return nil, DiscardProposalOutput{Discarded: true}, nil
}

// buildFilter combines the path-prefix and kind filters.
func buildFilter(prefix string, kinds []string) export.Filter {
	var filters []export.Filter
	if prefix != "" {
		filters = append(filters, export.PathPrefixFilter(prefix))
	}
	if len(kinds) > 0 {
		ks := make([]graph.NodeKind, 0, len(kinds))
		for _, k := range kinds {
			ks = append(ks, graph.NodeKind(strings.ToLower(k)))
		}
		filters = append(filters, export.KindFilter(ks...))
	}
	if len(filters) == 0 {
		return nil
	}
	return func(n graph.Node) bool {
		for _, f := range filters {
			if !f(n) {
				return false
			}
		}
		return true
	}
}
