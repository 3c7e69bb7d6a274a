// Package screen implements the generic entity CRUD screen.
//
// A Screen owns a create draft, an edit draft, the current result set and the
// edit dialog flag of one entity for one session. Every entity shares the same
// engine; what differs is described by a Schema.
package screen

// State is the busy state of a screen.
type State int

const (
	Idle State = iota
	SubmittingCreate
	SubmittingUpdate
	LoadingList
	Searching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SubmittingCreate:
		return "submitting_create"
	case SubmittingUpdate:
		return "submitting_update"
	case LoadingList:
		return "loading_list"
	case Searching:
		return "searching"
	default:
		return "unknown"
	}
}

// Busy reports whether an operation is outstanding.
func (s State) Busy() bool {
	return s != Idle
}
