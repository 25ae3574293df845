package session

import "sync"

// UserFacing is implemented by errors that carry a message meant for the user
type UserFacing interface {
	UserMessage() string
}

// ErrorReporter holds the last error message shown to the user
type ErrorReporter struct {
	mu  sync.RWMutex
	msg string
	set bool
}

// NewErrorReporter creates an empty reporter
func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{}
}

// Report replaces the current message. Errors implementing UserFacing
// contribute their user message, others their Error text.
func (r *ErrorReporter) Report(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if uf, ok := err.(UserFacing); ok {
		msg = uf.UserMessage()
	}

	r.mu.Lock()
	r.msg, r.set = msg, true
	r.mu.Unlock()
}

// Clear drops the current message
func (r *ErrorReporter) Clear() {
	r.mu.Lock()
	r.msg, r.set = "", false
	r.mu.Unlock()
}

// Current returns the message and whether one is set
func (r *ErrorReporter) Current() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.msg, r.set
}
