package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dusk-indust/sigraph/internal/export"
	"github.com/dusk-indust/sigraph/internal/graph"
)

func runExport(ctx context.Context, projectRoot string, args []string) error {
	fs := flag.NewFlagSet("sigraph export", flag.ContinueOnError)
	level := fs.Int("level", 1, "disclosure level: 0 edges only, 1 signatures, 2 full type metadata")
	prefix := fs.String("path-prefix", "", "restrict to nodes under this file path prefix")
	mermaid := fs.Bool("mermaid", false, "emit a mermaid diagram instead of JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, _, store, err := openWorkspace(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	var filter export.Filter
	if *prefix != "" {
		filter = export.PathPrefixFilter(*prefix)
	}
	g := ws.Current()

	if *mermaid {
		diagram, err := export.GenerateMermaid(g, filter)
		if err != nil {
			return fmt.Errorf("generate mermaid: %w", err)
		}
		fmt.Print(diagram)
		return nil
	}

	data, err := export.Marshal(g, graph.Level(*level), filter)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
