package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Key layout in the backing store. Node IDs and edge keys are hex-and-colon
// strings, so the "/" separators are unambiguous.
const (
	nodeKeyPrefix  = "node/"
	edgeKeyPrefix  = "edge/"
	versionMetaKey = "meta/version"
)

// SaveGraph persists the full graph state through the store's atomic
// replace, making persistence all-or-nothing.
func SaveGraph(ctx context.Context, s Store, g *Graph) error {
	entries := make(map[string][]byte, g.NodeCount()+g.EdgeCount()+1)

	for _, n := range g.Nodes() {
		v, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		entries[nodeKeyPrefix+n.ID] = v
	}
	for _, e := range g.Edges() {
		v, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode edge %s: %w", e.Key(), err)
		}
		entries[edgeKeyPrefix+e.Key()] = v
	}
	entries[versionMetaKey] = []byte(strconv.FormatUint(g.Version(), 10))

	return s.ReplaceAll(ctx, entries)
}

// LoadGraph reconstructs a graph from the backing store. A persisted node
// with a missing hash fails loudly with ErrHashMismatch: the stored state
// is corrupt and must not be silently repaired.
func LoadGraph(ctx context.Context, s Store) (*Graph, error) {
	g := New()

	err := s.Scan(ctx, nodeKeyPrefix, func(key string, value []byte) error {
		var n Node
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if n.SignatureHash == "" || n.BodyHash == "" {
			return fmt.Errorf("load node %s: %w", n.ID, ErrHashMismatch)
		}
		return g.UpsertNode(n)
	})
	if err != nil {
		return nil, err
	}

	err = s.Scan(ctx, edgeKeyPrefix, func(key string, value []byte) error {
		var e Edge
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return g.UpsertEdge(e)
	})
	if err != nil {
		return nil, err
	}

	if v, verr := s.Get(ctx, versionMetaKey); verr == nil {
		if ver, perr := strconv.ParseUint(string(v), 10, 64); perr == nil {
			g.mu.Lock()
			g.version = ver
			g.mu.Unlock()
		}
	} else if !errors.Is(verr, ErrKeyNotFound) {
		return nil, verr
	}

	return g, nil
}
