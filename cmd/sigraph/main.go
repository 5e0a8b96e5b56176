package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/sigraph/internal/config"
	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/workspace"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		projectRoot string
		showVersion bool
	)

	fs := flag.NewFlagSet("sigraph", flag.ContinueOnError)
	fs.StringVar(&projectRoot, "project-root", ".", "path to the target project")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sigraph [flags] <ingest|export|status|serve> [args]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Println(version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "ingest":
		return runIngest(ctx, projectRoot, rest[1:])
	case "export":
		return runExport(ctx, projectRoot, rest[1:])
	case "status":
		return runStatus(ctx, projectRoot)
	case "serve":
		return runServe(ctx, projectRoot, rest[1:])
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// openWorkspace loads the project config, opens the configured store, and
// restores the persisted graph into a workspace. The caller must Close the
// returned store.
func openWorkspace(ctx context.Context, projectRoot string) (*workspace.Workspace, *config.ProjectConfig, graph.Store, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	g, err := graph.LoadGraph(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("load graph: %w", err)
	}
	ws := workspace.New(g, workspace.Options{
		Store:          store,
		Tracker:        cfg.Tracker(),
		CycleEdgeTypes: cfg.CycleTypes(),
		BlockingCycles: cfg.BlockingCycles,
	})
	return ws, cfg, store, nil
}
