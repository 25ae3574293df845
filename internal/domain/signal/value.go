// Package signal models derived facts about remote ledger and indexer state.
//
// A signal is never stored truth: it is recomputed from remote reads and carried
// in an immutable Snapshot. Every value is tri-state at the truth level so that
// "not yet fetched" is never confused with "false".
package signal

import (
	"encoding/json"
	"math/big"
)

// Kind identifies the representation carried by a Value
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindNumber
	KindText
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Truth is the tri-state truth of a value
type Truth int8

const (
	TruthUnknown Truth = iota
	TruthFalse
	TruthTrue
)

// String returns the string representation of the truth value
func (t Truth) String() string {
	switch t {
	case TruthTrue:
		return "true"
	case TruthFalse:
		return "false"
	default:
		return "unknown"
	}
}

// TruthOf converts a known boolean to a Truth
func TruthOf(b bool) Truth {
	if b {
		return TruthTrue
	}
	return TruthFalse
}

// Or is Kleene disjunction: true wins over unknown, false needs both sides known.
func Or(a, b Truth) Truth {
	if a == TruthTrue || b == TruthTrue {
		return TruthTrue
	}
	if a == TruthFalse && b == TruthFalse {
		return TruthFalse
	}
	return TruthUnknown
}

// Value is a single signal value. The zero Value is unknown.
type Value struct {
	kind Kind
	b    bool
	n    *big.Int
	s    string
}

// Unknown returns a value that has not been (successfully) fetched
func Unknown() Value {
	return Value{}
}

// Bool returns a known boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a known numeric value. A nil number is unknown.
func Number(n *big.Int) Value {
	if n == nil {
		return Unknown()
	}
	return Value{kind: KindNumber, n: new(big.Int).Set(n)}
}

// Int64 returns a known numeric value
func Int64(n int64) Value {
	return Value{kind: KindNumber, n: big.NewInt(n)}
}

// Text returns a known text value (addresses, identifiers)
func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

// FromTruth converts a Truth back into a boolean value, unknown stays unknown
func FromTruth(t Truth) Value {
	switch t {
	case TruthTrue:
		return Bool(true)
	case TruthFalse:
		return Bool(false)
	default:
		return Unknown()
	}
}

// Kind returns the representation of the value
func (v Value) Kind() Kind {
	return v.kind
}

// Known reports whether the value has been fetched
func (v Value) Known() bool {
	return v.kind != KindUnknown
}

// Truth returns the tri-state truth of the value.
// Numbers are true when positive, text when non-empty.
func (v Value) Truth() Truth {
	switch v.kind {
	case KindBool:
		return TruthOf(v.b)
	case KindNumber:
		return TruthOf(v.n.Sign() > 0)
	case KindText:
		return TruthOf(v.s != "")
	default:
		return TruthUnknown
	}
}

// AsBool returns the boolean and whether the value is a known boolean
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns a copy of the number and whether the value is a known number
func (v Value) AsNumber() (*big.Int, bool) {
	if v.kind != KindNumber {
		return nil, false
	}
	return new(big.Int).Set(v.n), true
}

// AsText returns the text and whether the value is known text
func (v Value) AsText() (string, bool) {
	return v.s, v.kind == KindText
}

// Equal reports whether two values carry the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n.Cmp(o.n) == 0
	case KindText:
		return v.s == o.s
	default:
		return true
	}
}

// String returns a human readable rendering of the value
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return v.n.String()
	case KindText:
		return v.s
	default:
		return "unknown"
	}
}

// MarshalJSON renders unknown as null and numbers as decimal strings
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n.String())
	case KindText:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}
