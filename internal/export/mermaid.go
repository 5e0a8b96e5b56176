package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// GenerateMermaid renders the level-0 projection as a Mermaid graph TD
// diagram. Nodes are grouped by file; edge arrows are labeled with the
// edge type.
func GenerateMermaid(g *graph.Graph, filter Filter) (string, error) {
	doc, err := Project(g, graph.Level1, filter)
	if err != nil {
		return "", err
	}

	// Node ID -> Mermaid ID mapping (alphanumeric only).
	mermaidIDs := make(map[string]string)
	nextID := 0
	getID := func(id string) string {
		if m, ok := mermaidIDs[id]; ok {
			return m
		}
		m := fmt.Sprintf("N%d", nextID)
		nextID++
		mermaidIDs[id] = m
		return m
	}

	// Group nodes by file for subgraphs.
	byFile := make(map[string][]NodeRecord)
	for _, n := range doc.Nodes {
		byFile[n.FilePath] = append(byFile[n.FilePath], n)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, f := range files {
		sb.WriteString(fmt.Sprintf("  subgraph F%d[\"%s\"]\n", i, shortPath(f)))
		for _, n := range byFile[f] {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(n.ID), n.Name))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range doc.Edges {
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", getID(e.FromKey), e.EdgeType, getID(e.ToKey)))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
