package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DirOptions tunes IngestDir.
type DirOptions struct {
	// ExcludeDirs are directory names pruned from the walk.
	ExcludeDirs []string

	// Concurrency bounds parallel extraction. Zero means 4.
	Concurrency int
}

var defaultExcludes = []string{".git", "node_modules", "target", "vendor"}

// extByLanguage maps file extensions onto extractor languages.
var extByLanguage = map[string]Language{
	".go": LanguageGo,
	".rs": LanguageRust,
}

// IngestDir walks root, extracts every supported source file in parallel,
// and applies the merged result as a single batch so hash diffing and
// tracking happen exactly once.
func IngestDir(ctx context.Context, in *Ingestor, ext Extractor, root string, opts DirOptions) (*Report, error) {
	supported := make(map[Language]bool)
	for _, l := range ext.Languages() {
		supported[l] = true
	}
	excluded := make(map[string]bool)
	for _, d := range append(append([]string(nil), defaultExcludes...), opts.ExcludeDirs...) {
		excluded[d] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := extByLanguage[filepath.Ext(path)]
		if ok && supported[lang] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var merged Batch
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, path := range paths {
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			rel := relTo(root, path)
			batch, err := ext.Extract(ctx, SourceUnit{
				Path:     rel,
				Source:   src,
				Language: extByLanguage[filepath.Ext(path)],
			})
			if err != nil {
				return fmt.Errorf("extract %s: %w", rel, err)
			}
			mu.Lock()
			merged.Merge(batch)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return in.IngestBatch(ctx, merged)
}

// relTo keys nodes by slash-separated paths relative to the walk root, so
// IDs stay stable regardless of where the tree is checked out.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// GuessLanguage returns the extractor language for a path, if any.
func GuessLanguage(path string) (Language, bool) {
	lang, ok := extByLanguage[filepath.Ext(strings.TrimSpace(path))]
	return lang, ok
}
