package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/sigraph/internal/status"
)

func runStatus(ctx context.Context, projectRoot string) error {
	ws, _, store, err := openWorkspace(ctx, projectRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Print(status.Collect(ws).Render())
	return nil
}
