package signal

import "strings"

// Predicate is a condition over a snapshot. Eval must report TruthUnknown
// whenever any signal it depends on is unknown.
type Predicate interface {
	Eval(s Snapshot) Truth
	Signals() []Name
	String() string
}

type allTrue struct {
	names []Name
}

// AllTrue is satisfied when every named signal is truthy
func AllTrue(names ...Name) Predicate {
	return allTrue{names: append([]Name(nil), names...)}
}

func (p allTrue) Eval(s Snapshot) Truth {
	result := TruthTrue
	for _, n := range p.names {
		switch s.Truth(n) {
		case TruthUnknown:
			return TruthUnknown
		case TruthFalse:
			result = TruthFalse
		}
	}
	return result
}

func (p allTrue) Signals() []Name {
	return append([]Name(nil), p.names...)
}

func (p allTrue) String() string {
	parts := make([]string, len(p.names))
	for i, n := range p.names {
		parts[i] = string(n)
	}
	return strings.Join(parts, " && ")
}

// Unknowns returns the signals of p that are unknown in s
func Unknowns(p Predicate, s Snapshot) []Name {
	var out []Name
	for _, n := range p.Signals() {
		if !s.Known(n) {
			out = append(out, n)
		}
	}
	return out
}
