package lifecycle

import "github.com/onnwee/tempvoice/registry"

// ActionKind names a step the controller took.
type ActionKind string

const (
	// ActionSweep marks the start of a sweep.
	ActionSweep ActionKind = "sweep"
	// ActionCountFailed means the member count of a tracked channel was unavailable; the entry is kept.
	ActionCountFailed ActionKind = "count_failed"
	// ActionDelete means an empty channel was deleted and dropped from the registry.
	ActionDelete ActionKind = "delete"
	// ActionDeleteFailed means a delete failed; the entry is kept for the next sweep.
	ActionDeleteFailed ActionKind = "delete_failed"
	// ActionForget means the platform no longer knew the channel, so the entry was dropped.
	ActionForget ActionKind = "forget"
	// ActionCreate means a channel was created and registered.
	ActionCreate ActionKind = "create"
	// ActionCreateFailed means channel creation failed and nothing was registered.
	ActionCreateFailed ActionKind = "create_failed"
	// ActionMove means the member was moved into their new channel.
	ActionMove ActionKind = "move"
	// ActionMoveFailed means the move failed; the channel stays registered.
	ActionMoveFailed ActionKind = "move_failed"
)

// Action is one step taken while handling a transition. Err is set on the
// *_failed kinds and on ActionForget.
type Action struct {
	Kind    ActionKind
	Channel registry.Channel
	Err     error
}

// Report lists the actions taken for one transition, in order.
type Report struct {
	Actions []Action
}

func (r *Report) add(a Action) { r.Actions = append(r.Actions, a) }

func (r *Report) merge(o Report) { r.Actions = append(r.Actions, o.Actions...) }

// Kinds returns the kind of every action in order.
func (r Report) Kinds() []ActionKind {
	out := make([]ActionKind, len(r.Actions))
	for i, a := range r.Actions {
		out[i] = a.Kind
	}
	return out
}

// Count returns how many actions of kind k were taken.
func (r Report) Count(k ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == k {
			n++
		}
	}
	return n
}

// Empty reports whether nothing was done.
func (r Report) Empty() bool { return len(r.Actions) == 0 }
