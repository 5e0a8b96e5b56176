// Package workspace stages speculative edits against a current graph in a
// disposable future clone, tracks per-entity pending actions, and commits
// or discards the whole proposal atomically. One workspace owns one
// current graph and at most one in-flight future graph; there is no
// concurrent mutation of either.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/sigraph/internal/graph"
	"github.com/dusk-indust/sigraph/internal/validate"
)

var (
	// ErrNoProposal is returned by proposal operations with nothing staged.
	ErrNoProposal = errors.New("no proposal in flight")

	// ErrProposalInFlight is returned by BeginProposal when a proposal is
	// already staged; commit or discard it first.
	ErrProposalInFlight = errors.New("proposal already in flight")
)

// CommitError rejects a commit with the full violation list. The workspace
// stays in its pending state so the caller can revise and retry.
type CommitError struct {
	Violations []validate.Violation
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit blocked by %d violation(s)", len(e.Violations))
}

// Options configures a workspace.
type Options struct {
	// Store persists committed state. Nil disables persistence.
	Store graph.Store

	// Tracker supplies the red/green sensitivity classification.
	// Nil uses the defaults.
	Tracker *graph.Tracker

	// CycleEdgeTypes designates the edge types checked for cycles.
	// Empty disables the cycle check.
	CycleEdgeTypes []graph.EdgeType

	// BlockingCycles makes cycle findings commit-blocking. Default
	// advisory.
	BlockingCycles bool
}

// Edit is one proposed change to one entity.
type Edit struct {
	EntityID   string
	Action     FutureAction
	FutureCode string

	// Node carries the proposed interface for create/edit actions. Its ID
	// must match EntityID; hashes are recomputed here if absent.
	Node *graph.Node

	// Edges are the proposed outgoing relations of the entity. Their
	// endpoints may be unresolved until validation.
	Edges []graph.Edge
}

// AffectedSet is the outcome of ComputeAffectedSet: the invalidation
// closure plus the pending action list for review.
type AffectedSet struct {
	Red     []string    `json:"red"`
	Actions []MirrorRow `json:"actions"`
	Passes  int         `json:"passes"`
}

// Workspace owns the current graph and the staging machinery around it.
type Workspace struct {
	mu sync.Mutex

	current *graph.Graph
	future  *graph.Graph
	rows    map[string]*MirrorRow

	proposalID string
	tracker    *graph.Tracker
	opts       Options
}

// New wraps an existing current graph. The workspace takes ownership: all
// further mutation goes through proposals.
func New(current *graph.Graph, opts Options) *Workspace {
	tr := opts.Tracker
	if tr == nil {
		tr = graph.NewTracker()
	}
	return &Workspace{
		current: current,
		rows:    make(map[string]*MirrorRow),
		tracker: tr,
		opts:    opts,
	}
}

// Current returns a read-only snapshot of the current graph.
func (w *Workspace) Current() *graph.Graph {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Snapshot()
}

// Future returns a read-only snapshot of the future graph, or ErrNoProposal.
func (w *Workspace) Future() (*graph.Graph, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return nil, ErrNoProposal
	}
	return w.future.Snapshot(), nil
}

// ProposalID returns the in-flight proposal ID, or "".
func (w *Workspace) ProposalID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proposalID
}

// BeginProposal clones the current graph into a fresh future graph,
// identical to current hash for hash. Fails with ErrProposalInFlight if a
// proposal is already staged.
func (w *Workspace) BeginProposal() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future != nil {
		return "", ErrProposalInFlight
	}
	w.future = w.current.Clone()
	w.future.SetAllStatus(graph.StatusBoth)
	w.proposalID = uuid.NewString()
	return w.proposalID, nil
}

// Mutate runs fn against the live current graph, outside the proposal
// machinery. Ingestion goes through here. It is refused while a proposal is
// in flight so the staged future cannot drift from its base; on success the
// new state is persisted when a store is configured.
func (w *Workspace) Mutate(ctx context.Context, fn func(*graph.Graph) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future != nil {
		return ErrProposalInFlight
	}
	if err := fn(w.current); err != nil {
		return err
	}
	if w.opts.Store != nil {
		if err := graph.SaveGraph(ctx, w.opts.Store, w.current); err != nil {
			return fmt.Errorf("persist after mutate: %w", err)
		}
	}
	return nil
}

// ApplyEdit stages one change on the future graph and records it on the
// entity's mirror row. Edits accumulate; re-editing the same entity
// overwrites its pending action.
func (w *Workspace) ApplyEdit(e Edit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return ErrNoProposal
	}
	if e.EntityID == "" {
		return fmt.Errorf("apply edit: empty entity id")
	}
	if !e.Action.Valid() {
		return fmt.Errorf("apply edit %s: unknown action %q", e.EntityID, e.Action)
	}

	switch e.Action {
	case ActionCreate, ActionEdit:
		if e.Node == nil {
			return fmt.Errorf("apply edit %s: action %s requires a node", e.EntityID, e.Action)
		}
		if e.Node.ID != e.EntityID {
			return fmt.Errorf("apply edit %s: node id %s does not match", e.EntityID, e.Node.ID)
		}
		n := *e.Node
		if e.Action == ActionEdit && !w.future.HasNode(n.ID) {
			return fmt.Errorf("apply edit %s: %w", e.EntityID, graph.ErrNodeNotFound)
		}
		if e.Action == ActionCreate && w.future.HasNode(n.ID) {
			return fmt.Errorf("apply edit %s: %w", e.EntityID, graph.ErrDuplicateID)
		}
		n.Status = graph.StatusFuture
		if e.Action == ActionEdit {
			n.Status = graph.StatusBoth
		}
		if n.SignatureHash == "" {
			n.SignatureHash = graph.HashSignature(n)
		}
		if n.BodyHash == "" {
			n.BodyHash = graph.HashBody(e.FutureCode)
		}
		if err := w.future.UpsertNode(n); err != nil {
			return err
		}
		// Proposed relations may point at entities that do not exist yet;
		// the validator resolves them before commit.
		for _, edge := range e.Edges {
			if edge.SourceID != e.EntityID {
				return fmt.Errorf("apply edit %s: edge source %s is not the edited entity", e.EntityID, edge.SourceID)
			}
			if err := w.future.StageEdge(edge); err != nil {
				return err
			}
		}

	case ActionDelete:
		if err := w.future.DeleteNode(e.EntityID); err != nil {
			return err
		}
	}

	row := w.rowFor(e.EntityID)
	row.FutureAction = e.Action
	row.FutureCode = e.FutureCode
	row.FutureInd = true
	return nil
}

func (w *Workspace) rowFor(id string) *MirrorRow {
	if row, ok := w.rows[id]; ok {
		return row
	}
	row := &MirrorRow{
		EntityID:   id,
		CurrentInd: w.current.HasNode(id),
	}
	w.rows[id] = row
	return row
}

// ComputeAffectedSet diffs current against future signature and body
// hashes, runs the red/green tracker over the future graph, and returns
// the affected closure plus the pending action list.
func (w *Workspace) ComputeAffectedSet() (*AffectedSet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return nil, ErrNoProposal
	}
	deltas := graph.DiffHashes(w.current, w.future)
	res := w.tracker.Track(w.future, w.current, deltas)
	return &AffectedSet{
		Red:     res.Red,
		Actions: w.pendingRowsLocked(),
		Passes:  res.Passes,
	}, nil
}

// Validate runs the consistency battery against the future graph.
func (w *Workspace) Validate() ([]validate.Violation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return nil, ErrNoProposal
	}
	return w.validateLocked(), nil
}

func (w *Workspace) validateLocked() []validate.Violation {
	deltas := graph.DiffHashes(w.current, w.future)
	sigChanged := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		if d.SigChanged {
			sigChanged[d.NodeID] = true
		}
	}
	checks := []validate.Check{
		&validate.ReferenceCheck{},
		&validate.RedGreenCheck{Tracker: w.tracker, SigChanged: sigChanged},
	}
	if len(w.opts.CycleEdgeTypes) > 0 {
		checks = append(checks, &validate.CycleCheck{
			EdgeTypes: w.opts.CycleEdgeTypes,
			Blocking:  w.opts.BlockingCycles,
		})
	}
	return validate.New(checks...).Run(w.future)
}

// Commit atomically replaces current state with future state. Any blocking
// violation rejects the commit with a *CommitError naming the offending
// ids, the workspace keeps its pending state, and the current graph is
// untouched. A backing-store rejection wraps graph.ErrCommitConflict.
func (w *Workspace) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return ErrNoProposal
	}

	if blocking := validate.Blocking(w.validateLocked()); len(blocking) > 0 {
		return &CommitError{Violations: blocking}
	}

	// Snapshot per-node statuses before stamping so a persistence failure
	// restores them exactly; proposal-created nodes must stay StatusFuture.
	prevStatus := make(map[string]graph.NodeStatus)
	for _, n := range w.future.Nodes() {
		prevStatus[n.ID] = n.Status
	}
	w.future.SetAllStatus(graph.StatusCurrent)
	if w.opts.Store != nil {
		if err := graph.SaveGraph(ctx, w.opts.Store, w.future); err != nil {
			for id, s := range prevStatus {
				if serr := w.future.SetStatus(id, s); serr != nil {
					return fmt.Errorf("commit proposal %s: %w (rollback: %v)", w.proposalID, err, serr)
				}
			}
			return fmt.Errorf("commit proposal %s: %w", w.proposalID, err)
		}
	}

	w.current = w.future
	w.future = nil
	w.proposalID = ""

	for id, row := range w.rows {
		if row.FutureAction == ActionDelete {
			delete(w.rows, id)
			continue
		}
		if row.FutureAction == ActionCreate || row.FutureAction == ActionEdit {
			row.CurrentCode = row.FutureCode
			row.CurrentInd = true
		}
		row.FutureCode = ""
		row.FutureAction = ActionNone
		row.FutureInd = false
	}
	return nil
}

// Discard drops the future graph and all pending mirror-row state with
// zero persisted side effects. The current graph is untouched.
func (w *Workspace) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.future == nil {
		return ErrNoProposal
	}
	w.future = nil
	w.proposalID = ""
	for id, row := range w.rows {
		row.FutureCode = ""
		row.FutureAction = ActionNone
		row.FutureInd = false
		if !row.CurrentInd {
			delete(w.rows, id)
		}
	}
	return nil
}

// Rows returns a copy of all mirror rows sorted by entity ID.
func (w *Workspace) Rows() []MirrorRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]MirrorRow, 0, len(w.rows))
	for _, row := range w.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func (w *Workspace) pendingRowsLocked() []MirrorRow {
	var out []MirrorRow
	for _, row := range w.rows {
		if row.FutureAction != ActionNone {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
