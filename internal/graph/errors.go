package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the graph and backing-store surface. Callers match
// them with errors.Is after unwrapping.
var (
	// ErrNodeNotFound is returned when an ID does not resolve to a node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateID is returned by non-overwriting inserts on ID conflict.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrReadOnly is returned when mutating a frozen snapshot.
	ErrReadOnly = errors.New("graph snapshot is read-only")

	// ErrKeyNotFound is returned by Store.Get for absent keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrHashMismatch indicates a stored hash is missing or corrupt. This is
	// an internal invariant violation and is never auto-recovered.
	ErrHashMismatch = errors.New("stored hash missing or corrupt")

	// ErrCommitConflict indicates the backing store rejected an atomic
	// replace. The caller must retry the whole proposal.
	ErrCommitConflict = errors.New("backing store rejected atomic replace")
)

// ReferenceError reports an edge whose endpoint does not resolve.
type ReferenceError struct {
	Edge    Edge
	Missing string // the unresolved endpoint ID
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("edge %s: endpoint %s does not resolve", e.Edge.Key(), e.Missing)
}
