package event

import (
	"testing"
	"time"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      string
	}{
		{"step submitted", TypeStepSubmitted, "step.submitted"},
		{"step confirmed", TypeStepConfirmed, "step.confirmed"},
		{"step failed", TypeStepFailed, "step.failed"},
		{"state refreshed", TypeStateRefreshed, "state.refreshed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("Type.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_IsValid(t *testing.T) {
	if !TypeStepFailed.IsValid() {
		t.Error("TypeStepFailed should be valid")
	}
	if Type("instance.created").IsValid() {
		t.Error("unknown type should be invalid")
	}
	if Type("").IsValid() {
		t.Error("empty type should be invalid")
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeStepSubmitted, "create-account", map[string]interface{}{"method": "createAccount"})

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.CorrelationID == "" {
		t.Error("expected generated correlation ID")
	}
	if evt.Timestamp.Before(before) {
		t.Error("timestamp should not predate creation")
	}
	if evt.StepID != "create-account" {
		t.Errorf("StepID = %q, want create-account", evt.StepID)
	}
	if got := evt.GetPayloadString("method"); got != "createAccount" {
		t.Errorf("GetPayloadString() = %q", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	corr := NewCorrelationID()
	a := NewEventWithCorrelation(TypeStepSubmitted, "buy-ticket", nil, corr)
	b := NewEventWithCorrelation(TypeStepConfirmed, "buy-ticket", nil, corr)

	if a.CorrelationID != b.CorrelationID {
		t.Error("events of one attempt should share a correlation ID")
	}
	if a.ID == b.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEvent_WithPayloadIsImmutable(t *testing.T) {
	original := NewEvent(TypeStepConfirmed, "deposit-collateral", map[string]interface{}{"confirmations": 1})
	updated := original.WithPayload("block", uint64(12))

	if _, ok := original.Payload["block"]; ok {
		t.Error("original payload must not change")
	}
	if got := updated.GetPayloadInt("block"); got != 12 {
		t.Errorf("GetPayloadInt(block) = %d, want 12", got)
	}
	if got := updated.GetPayloadInt("confirmations"); got != 1 {
		t.Errorf("GetPayloadInt(confirmations) = %d, want 1", got)
	}
	if updated.ID != original.ID {
		t.Error("WithPayload should keep the event ID")
	}
}

func TestEvent_WithTxHash(t *testing.T) {
	original := NewEvent(TypeStepSubmitted, "buy-ticket", nil)
	bound := original.WithTxHash("0xabc")

	if original.TxHash != "" {
		t.Error("original must not be modified")
	}
	if bound.TxHash != "0xabc" {
		t.Errorf("TxHash = %q", bound.TxHash)
	}
}

func TestEvent_PayloadDefaults(t *testing.T) {
	evt := NewEvent(TypeStepFailed, "x", map[string]interface{}{"flag": "yes"})

	if evt.GetPayloadBool("flag") {
		t.Error("non-bool payload should read false")
	}
	if evt.GetPayloadInt("missing") != 0 {
		t.Error("missing int should read zero")
	}
	if evt.GetPayloadString("missing") != "" {
		t.Error("missing string should read empty")
	}
}
