package redemption

import "fmt"

// Machine tracks the current state of one redemption attempt and
// validates transitions. Each scanned voucher gets its own instance.
type Machine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, transitioning to the new state if allowed
	Fire(trigger Trigger) error

	// PermittedTriggers returns all triggers valid in the current state
	PermittedTriggers() []Trigger
}

type machine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// redemptionFlow is the fixed transition table for a redemption
// attempt: a linear success path with rejection possible at every
// non-terminal step.
var redemptionFlow = map[State]map[Trigger]State{
	StateScanned: {
		TriggerValidate: StateValidated,
		TriggerReject:   StateRejected,
	},
	StateValidated: {
		TriggerCheckStock: StateStockChecked,
		TriggerReject:     StateRejected,
	},
	StateStockChecked: {
		TriggerDebit:  StateDebited,
		TriggerReject: StateRejected,
	},
	StateDebited: {
		TriggerRecord: StateRecorded,
		TriggerReject: StateRejected,
	},
}

// NewAttempt creates a machine for a freshly scanned voucher.
func NewAttempt() Machine {
	return &machine{current: StateScanned, transitions: redemptionFlow}
}

// State returns the current state
func (m *machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state
func (m *machine) CanFire(trigger Trigger) bool {
	triggers, ok := m.transitions[m.current]
	if !ok {
		return false
	}
	_, ok = triggers[trigger]
	return ok
}

// Fire executes the trigger, transitioning to the new state if allowed
func (m *machine) Fire(trigger Trigger) error {
	triggers, ok := m.transitions[m.current]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from terminal state %s", ErrInvalidTransition, trigger, m.current)
	}

	next, ok := triggers[trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	m.current = next
	return nil
}

// PermittedTriggers returns all triggers valid in the current state
func (m *machine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.transitions[m.current]))
	for t := range m.transitions[m.current] {
		triggers = append(triggers, t)
	}
	return triggers
}
