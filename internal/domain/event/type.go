package event

// Type identifies the type of domain event
type Type string

const (
	TypeStepSubmitted  Type = "step.submitted"
	TypeStepConfirmed  Type = "step.confirmed"
	TypeStepFailed     Type = "step.failed"
	TypeStateRefreshed Type = "state.refreshed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeStepSubmitted,
		TypeStepConfirmed,
		TypeStepFailed,
		TypeStateRefreshed:
		return true
	default:
		return false
	}
}
