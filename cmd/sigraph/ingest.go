package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/ingest"
)

func runIngest(ctx context.Context, projectRoot string, args []string) error {
	fs := flag.NewFlagSet("sigraph ingest", flag.ContinueOnError)
	var exclude stringList
	fs.Var(&exclude, "exclude", "directory name to exclude (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root := projectRoot
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	ws, cfg, store, err := openWorkspace(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	extractor := ingest.NewTreeSitterExtractor()
	defer extractor.Close()

	var report *ingest.Report
	err = ws.Mutate(ctx, func(g *graph.Graph) error {
		in := ingest.NewIngestor(g, cfg.Tracker())
		var ierr error
		report, ierr = ingest.IngestDir(ctx, in, extractor, root, ingest.DirOptions{
			ExcludeDirs: append(append([]string(nil), cfg.ExcludeDirs...), exclude...),
		})
		return ierr
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", root, err)
	}

	fmt.Printf("ingested %s: %d node(s), %d edge(s), %d removed, %d skipped, %d red\n",
		root, report.AcceptedNodes, report.AcceptedEdges, report.RemovedNodes,
		len(report.Skipped), len(report.Red))
	return nil
}

// stringList is a repeatable flag value.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
