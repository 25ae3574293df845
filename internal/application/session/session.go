// Package session holds the ephemeral per-interaction state: which step is
// active, whether a write is in flight, and the last error.
// Nothing here is persisted.
package session

import (
	"math/big"
	"sync"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// View is a point-in-time copy of the session
type View struct {
	ActiveStepID step.ID `json:"active_step_id,omitempty"`
	IsSubmitting bool    `json:"is_submitting"`
	LastError    string  `json:"last_error,omitempty"`
	LuckyNumber  string  `json:"lucky_number"`
}

// Session is the state of one user interaction
type Session struct {
	mu           sync.Mutex
	activeStepID step.ID
	submitting   bool
	luckyNumber  *big.Int

	reporter *ErrorReporter
}

// New creates a session with the given lucky number
func New(luckyNumber *big.Int) *Session {
	return &Session{
		luckyNumber: new(big.Int).Set(luckyNumber),
		reporter:    NewErrorReporter(),
	}
}

// Reporter returns the session's error reporter
func (s *Session) Reporter() *ErrorReporter {
	return s.reporter
}

// LuckyNumber returns a copy of the number drawn for this session
func (s *Session) LuckyNumber() *big.Int {
	return new(big.Int).Set(s.luckyNumber)
}

// TryBegin marks a write in flight. It returns false, changing nothing,
// when one is already in flight.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.submitting = true
	return true
}

// End clears the in-flight mark
func (s *Session) End() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// IsSubmitting reports whether a write is in flight
func (s *Session) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// SetActive records the step the workflow engine selected
func (s *Session) SetActive(id step.ID) {
	s.mu.Lock()
	s.activeStepID = id
	s.mu.Unlock()
}

// View returns a copy of the session state
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		ActiveStepID: s.activeStepID,
		IsSubmitting: s.submitting,
		LuckyNumber:  s.luckyNumber.String(),
	}
	s.mu.Unlock()

	v.LastError, _ = s.reporter.Current()
	return v
}
