package workflow

// Status is the position of the workflow as derived from a snapshot
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusLoading  Status = "LOADING"
	StatusTerminal Status = "TERMINAL"
)

var validStatuses = map[Status]bool{
	StatusActive:   true,
	StatusLoading:  true,
	StatusTerminal: true,
}

// IsTerminal returns true if every step precondition holds
func (s Status) IsTerminal() bool {
	return s == StatusTerminal
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// StepState is the per-step view used for rendering
type StepState string

const (
	StepSatisfied StepState = "SATISFIED"
	StepActive    StepState = "ACTIVE"
	StepUndecided StepState = "UNDECIDED"
	StepBlocked   StepState = "BLOCKED"
)

// String returns the string representation of the step state
func (s StepState) String() string {
	return string(s)
}
