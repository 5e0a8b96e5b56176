package workspace

// FutureAction is the pending operation recorded on a mirror row.
type FutureAction string

const (
	ActionNone   FutureAction = "none"
	ActionCreate FutureAction = "create"
	ActionEdit   FutureAction = "edit"
	ActionDelete FutureAction = "delete"
)

// Valid reports whether a is an applicable action for ApplyEdit.
func (a FutureAction) Valid() bool {
	switch a {
	case ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// RowState is the per-entity position in the proposal state machine:
// Unchanged -> PendingCreate | PendingEdit | PendingDelete, resolved by
// commit or discard.
type RowState string

const (
	RowUnchanged     RowState = "unchanged"
	RowPendingCreate RowState = "pending-create"
	RowPendingEdit   RowState = "pending-edit"
	RowPendingDelete RowState = "pending-delete"
)

// MirrorRow tracks one entity across the current/future divide.
//
// CurrentCode is the last code text committed through this workspace; the
// graph itself never stores bodies, so rows are the only place proposed
// text lives while a proposal is open. FutureAction != ActionNone always
// implies FutureInd.
type MirrorRow struct {
	EntityID     string       `json:"entity_id"`
	CurrentCode  string       `json:"current_code,omitempty"`
	FutureCode   string       `json:"future_code,omitempty"`
	FutureAction FutureAction `json:"future_action"`
	CurrentInd   bool         `json:"current_ind"`
	FutureInd    bool         `json:"future_ind"`
}

// State derives the state-machine position from the row's fields.
func (r MirrorRow) State() RowState {
	switch r.FutureAction {
	case ActionCreate:
		return RowPendingCreate
	case ActionEdit:
		return RowPendingEdit
	case ActionDelete:
		return RowPendingDelete
	default:
		return RowUnchanged
	}
}
