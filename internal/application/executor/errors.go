package executor

import (
	"errors"
	"fmt"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// ErrBusy is returned when a write is already in flight for the session
var ErrBusy = errors.New("a transaction is already in progress")

// RefreshFailureMessage is shown when a write confirmed but the follow-up read failed
const RefreshFailureMessage = "transaction confirmed but the latest state could not be loaded, refresh to continue"

// Kind classifies where an execution failed
type Kind string

const (
	KindPreparation  Kind = "PREPARATION"
	KindSubmission   Kind = "SUBMISSION"
	KindConfirmation Kind = "CONFIRMATION"
	KindRefresh      Kind = "REFRESH"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// ExecutionError is the single error produced by a failed attempt
type ExecutionError struct {
	Kind    Kind
	StepID  step.ID
	TxHash  string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("%s %s (tx %s): %v", e.StepID, e.Kind, e.TxHash, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.StepID, e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the user
func (e *ExecutionError) UserMessage() string {
	return e.Message
}

// Completed reports whether the write itself succeeded
func (e *ExecutionError) Completed() bool {
	return e.Kind == KindRefresh
}
