package redemption

// Trigger represents an event that advances a redemption attempt
type Trigger string

const (
	TriggerValidate   Trigger = "VALIDATE"
	TriggerCheckStock Trigger = "CHECK_STOCK"
	TriggerDebit      Trigger = "DEBIT"
	TriggerRecord     Trigger = "RECORD"
	TriggerReject     Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
