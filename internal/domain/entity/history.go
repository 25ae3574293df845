package entity

import "time"

// ExecutionRecord is one line of the write audit trail.
// Records are informational and never used to derive workflow position.
type ExecutionRecord struct {
	ID            int64     `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	StepID        string    `json:"step_id"`
	EventType     string    `json:"event_type"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
