package donation

import "fmt"

// Status is the lifecycle state of a donation. It is a closed enum: the only
// legal movements are the edges in transitions below.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// transitions is the full edge set of the lifecycle graph.
//
//	pending → processing → completed → refunded
//	                     → failed
//	pending/processing   → cancelled (explicit only, never via webhook)
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
	StatusFailed:     {},
	StatusRefunded:   {},
	StatusCancelled:  {},
}

// IsValid reports whether s is one of the known states.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the edge s → next exists.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Predecessors returns the states from which target is directly reachable.
// The webhook reconciler uses this as the compare-and-set precondition.
func Predecessors(target Status) []Status {
	var from []Status
	for s, nexts := range transitions {
		for _, t := range nexts {
			if t == target {
				from = append(from, s)
			}
		}
	}
	return from
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}

func (s Status) String() string { return string(s) }
