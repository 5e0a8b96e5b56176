package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewSigraphMCPServer creates an MCP server with all graph tools registered.
func NewSigraphMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sigraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_source",
		Description: "Ingest a source tree (or one inline source unit) into the signature graph. Extracts interface units and references with tree-sitter, recomputes content hashes, and reports the red set the change produced.",
	}, svc.IngestSource)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_graph",
		Description: "Export the current graph at a progressive-disclosure level: 0 is edges only, 1 adds signatures, 2 adds full type-system metadata. Supports path-prefix and kind scoping, and mermaid output.",
	}, svc.ExportGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_node",
		Description: "Look up one node by ID, projected to a disclosure level.",
	}, svc.GetNode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_status",
		Description: "Summarize the workspace: node and edge counts, red/green distribution, and the in-flight proposal if any.",
	}, svc.GraphStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "begin_proposal",
		Description: "Open a speculative-edit session by cloning the current graph into a future graph. Returns the proposal ID.",
	}, svc.BeginProposal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_edit",
		Description: "Stage one create, edit or delete on the in-flight proposal's future graph. Edits accumulate until commit or discard.",
	}, svc.ApplyEdit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compute_affected_set",
		Description: "Diff the future graph against current and return the red invalidation closure plus the pending action list.",
	}, svc.ComputeAffectedSet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_proposal",
		Description: "Run the consistency battery (reference resolution, red/green coherence, cycle detection) against the future graph.",
	}, svc.ValidateProposal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "commit_proposal",
		Description: "Atomically promote the future graph to current. Blocking violations reject the commit and leave the proposal pending for revision.",
	}, svc.CommitProposal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "discard_proposal",
		Description: "Drop the in-flight proposal with no side effects on the current graph.",
	}, svc.DiscardProposal)

	return server
}

// RunMCPServer starts an HTTP server exposing the graph tools.
func RunMCPServer(ctx context.Context, svc *Service, addr string) error {
	server := NewSigraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
