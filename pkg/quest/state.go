package quest

import "github.com/charmbracelet/log"

// State is a request's position in the generation lifecycle.
type State int

const (
	Admitted State = iota
	Generating
	Validating
	Retrying
	Done
	Rejected
)

func (s State) String() string {
	switch s {
	case Admitted:
		return "admitted"
	case Generating:
		return "generating"
	case Validating:
		return "validating"
	case Retrying:
		return "retrying"
	case Done:
		return "done"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Rejected }

type tracker struct {
	logger *log.Logger
	state  State
}

func (t *tracker) to(next State, keyvals ...any) {
	kv := append([]any{"from", t.state, "to", next}, keyvals...)
	if next == Rejected {
		t.logger.Warn("story request", kv...)
	} else {
		t.logger.Debug("story request", kv...)
	}
	t.state = next
}
