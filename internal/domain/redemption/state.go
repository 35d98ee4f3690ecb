package redemption

// State represents a step in a single voucher-redemption attempt
type State string

const (
	StateScanned      State = "SCANNED"
	StateValidated    State = "VALIDATED"
	StateStockChecked State = "STOCK_CHECKED"
	StateDebited      State = "DEBITED"
	StateRecorded     State = "RECORDED"
	StateRejected     State = "REJECTED"
)

var validStates = map[State]bool{
	StateScanned:      true,
	StateValidated:    true,
	StateStockChecked: true,
	StateDebited:      true,
	StateRecorded:     true,
	StateRejected:     true,
}

var terminalStates = map[State]bool{
	StateRecorded: true,
	StateRejected: true,
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a recognized redemption state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
