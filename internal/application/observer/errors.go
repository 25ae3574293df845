package observer

import "errors"

var (
	// ErrDuplicateProducer is returned when two probes produce the same signal
	ErrDuplicateProducer = errors.New("signal produced by more than one probe")

	// ErrMissingProducer is returned when a probe consumes a signal nobody produces
	ErrMissingProducer = errors.New("consumed signal has no producer")

	// ErrProbeCycle is returned when probe inputs form a cycle
	ErrProbeCycle = errors.New("probe dependency cycle")

	// ErrUnknownSignal is returned when a fetch requests a signal nobody produces
	ErrUnknownSignal = errors.New("no probe produces signal")
)
