package main

import (
	"context"
	"flag"
	"log"

	"github.com/dusk-indust/sigraph/internal/ingest"
	"github.com/dusk-indust/sigraph/internal/mcptools"
)

func runServe(ctx context.Context, projectRoot string, args []string) error {
	fs := flag.NewFlagSet("sigraph serve", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:8421", "listen address for the MCP server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, cfg, store, err := openWorkspace(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	extractor := ingest.NewTreeSitterExtractor()
	defer extractor.Close()

	svc := mcptools.NewService(ws, extractor, cfg.Tracker())
	log.Printf("sigraph MCP server listening on %s", *addr)
	return mcptools.RunMCPServer(ctx, svc, *addr)
}
