package controller

import "fmt"

// State is the lifecycle state of a Controller.
type State string

const (
	// StateUninitialized is the state before Enable and after Close.
	StateUninitialized State = "uninitialized"

	// StateEnabled means folding is on but the document has no model,
	// because it exceeds the configured line limit.
	StateEnabled State = "enabled"

	// StateActive means the model holds the latest applied regions.
	StateActive State = "active"

	// StateComputing means a debounce timer is pending or a provider
	// computation is in flight.
	StateComputing State = "computing"
)

// ValidTransitions lists the states reachable from each state.
var ValidTransitions = map[State][]State{
	StateUninitialized: {StateEnabled},
	StateEnabled:       {StateActive, StateUninitialized},
	StateActive:        {StateComputing, StateEnabled, StateUninitialized},
	StateComputing:     {StateActive, StateEnabled, StateUninitialized},
}

// CanTransition checks whether next is reachable from s.
func (s State) CanTransition(next State) error {
	for _, allowed := range ValidTransitions[s] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}

// HasModel reports whether the state carries a folding model.
func (s State) HasModel() bool {
	return s == StateActive || s == StateComputing
}
