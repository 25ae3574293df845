package signal

import (
	"sort"
	"time"
)

// Snapshot is an immutable mapping from signal name to value.
// Names that were never fetched read as Unknown.
type Snapshot struct {
	values  map[Name]Value
	takenAt time.Time
}

// Empty returns a snapshot in which every signal is unknown
func Empty() Snapshot {
	return Snapshot{values: map[Name]Value{}}
}

// Get returns the value of a signal, Unknown if absent
func (s Snapshot) Get(name Name) Value {
	if v, ok := s.values[name]; ok {
		return v
	}
	return Unknown()
}

// Truth returns the tri-state truth of a signal
func (s Snapshot) Truth(name Name) Truth {
	return s.Get(name).Truth()
}

// Known reports whether the signal has a fetched value
func (s Snapshot) Known(name Name) bool {
	return s.Get(name).Known()
}

// TakenAt returns when the snapshot was assembled
func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of known signals
func (s Snapshot) Len() int {
	return len(s.values)
}

// Names returns the known signal names in sorted order
func (s Snapshot) Names() []Name {
	names := make([]Name, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Values returns a copy of the known values
func (s Snapshot) Values() map[Name]Value {
	out := make(map[Name]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// With returns a new snapshot with one signal replaced
func (s Snapshot) With(name Name, v Value) Snapshot {
	return s.Merge(NewBuilder().Set(name, v).Build(), []Name{name})
}

// Merge returns a new snapshot where exactly the listed names take their value
// from update. A name unknown in update becomes unknown in the result; every
// other name keeps its value from s.
func (s Snapshot) Merge(update Snapshot, names []Name) Snapshot {
	values := make(map[Name]Value, len(s.values)+len(names))
	for k, v := range s.values {
		values[k] = v
	}
	for _, n := range names {
		v := update.Get(n)
		if v.Known() {
			values[n] = v
		} else {
			delete(values, n)
		}
	}

	takenAt := s.takenAt
	if update.takenAt.After(takenAt) {
		takenAt = update.takenAt
	}
	return Snapshot{values: values, takenAt: takenAt}
}

// Builder assembles a snapshot. A builder is not safe for concurrent use.
type Builder struct {
	values map[Name]Value
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{values: make(map[Name]Value)}
}

// Set records a value; unknown values are dropped
func (b *Builder) Set(name Name, v Value) *Builder {
	if v.Known() {
		b.values[name] = v
	} else {
		delete(b.values, name)
	}
	return b
}

// SetAll records every value of the map
func (b *Builder) SetAll(values map[Name]Value) *Builder {
	for k, v := range values {
		b.Set(k, v)
	}
	return b
}

// Build returns the snapshot stamped with the current time
func (b *Builder) Build() Snapshot {
	values := make(map[Name]Value, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	return Snapshot{values: values, takenAt: time.Now()}
}
