// Package observer reads remote ledger and indexer state and publishes it as
// an immutable signal snapshot.
//
// Reads are grouped into probes. A probe produces a fixed set of signals and
// may consume signals produced by other probes; probes whose inputs are
// available run concurrently. A failed probe leaves its signals unknown and
// never blocks the rest of the snapshot.
package observer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
)

// ProbeFunc performs the reads of one probe. The input snapshot holds the
// consumed signals, any of which may be unknown. A probe may return partial
// results together with an error; produced signals missing from the result
// are published as unknown.
type ProbeFunc func(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error)

// Probe is a group of reads producing related signals
type Probe struct {
	Name     string
	Produces []signal.Name
	Consumes []signal.Name
	Run      ProbeFunc
}

// Observer owns the current snapshot
type Observer struct {
	probes   []Probe
	levels   []int
	producer map[signal.Name]int
	logger   *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[signal.Snapshot]
}

// Option configures the observer
type Option func(*Observer)

// WithLogger sets the observer logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Observer) {
		o.logger = logger
	}
}

// New validates the probe graph and returns an observer with an empty snapshot
func New(probes []Probe, opts ...Option) (*Observer, error) {
	o := &Observer{
		probes:   append([]Probe(nil), probes...),
		producer: make(map[signal.Name]int),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	for i, p := range o.probes {
		for _, n := range p.Produces {
			if other, exists := o.producer[n]; exists {
				return nil, fmt.Errorf("%w: %s by %s and %s", ErrDuplicateProducer, n, o.probes[other].Name, p.Name)
			}
			o.producer[n] = i
		}
	}
	for _, p := range o.probes {
		for _, n := range p.Consumes {
			if _, ok := o.producer[n]; !ok {
				return nil, fmt.Errorf("%w: %s consumes %s", ErrMissingProducer, p.Name, n)
			}
		}
	}

	levels, err := o.computeLevels()
	if err != nil {
		return nil, err
	}
	o.levels = levels

	empty := signal.Empty()
	o.current.Store(&empty)
	return o, nil
}

func (o *Observer) computeLevels() ([]int, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(o.probes))
	levels := make([]int, len(o.probes))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: through %s", ErrProbeCycle, o.probes[i].Name)
		}
		state[i] = visiting
		level := 0
		for _, n := range o.probes[i].Consumes {
			j := o.producer[n]
			if err := visit(j); err != nil {
				return err
			}
			if levels[j]+1 > level {
				level = levels[j] + 1
			}
		}
		levels[i] = level
		state[i] = done
		return nil
	}

	for i := range o.probes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

// Current returns the last published snapshot
func (o *Observer) Current() signal.Snapshot {
	return *o.current.Load()
}

// Signals returns every signal some probe produces
func (o *Observer) Signals() []signal.Name {
	var names []signal.Name
	for _, p := range o.probes {
		names = append(names, p.Produces...)
	}
	return names
}

// Fetch reads the requested signals, and everything they depend on, from
// scratch. With no names every signal is fetched. All values read are
// published. The returned error lists failed probes; the snapshot is valid
// regardless.
func (o *Observer) Fetch(ctx context.Context, names ...signal.Name) (signal.Snapshot, error) {
	if len(names) == 0 {
		names = o.Signals()
	}
	if err := o.checkNames(names); err != nil {
		return o.Current(), err
	}

	result, ran, err := o.run(ctx, names, signal.Empty(), false)

	var published []signal.Name
	for _, i := range ran {
		published = append(published, o.probes[i].Produces...)
	}
	return o.publish(result, published), err
}

// Refetch re-reads exactly the requested signals. Inputs they depend on are
// taken from the current snapshot; unknown inputs are read for this call only
// and not published. Signals outside the request keep their value.
func (o *Observer) Refetch(ctx context.Context, names ...signal.Name) (signal.Snapshot, error) {
	if len(names) == 0 {
		return o.Current(), nil
	}
	if err := o.checkNames(names); err != nil {
		return o.Current(), err
	}

	result, _, err := o.run(ctx, names, o.Current(), true)
	return o.publish(result, names), err
}

func (o *Observer) checkNames(names []signal.Name) error {
	for _, n := range names {
		if _, ok := o.producer[n]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSignal, n)
		}
	}
	return nil
}

func (o *Observer) publish(result signal.Snapshot, names []signal.Name) signal.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.Current().Merge(result, names)
	o.current.Store(&next)
	return next
}

// plan returns the probes needed for the targets, including the producers of
// their inputs. With reuse, inputs already known in base are not re-read.
func (o *Observer) plan(targets []signal.Name, base signal.Snapshot, reuse bool) map[int]bool {
	needed := make(map[int]bool)
	queue := make([]int, 0, len(targets))
	for _, n := range targets {
		queue = append(queue, o.producer[n])
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if needed[i] {
			continue
		}
		needed[i] = true
		for _, in := range o.probes[i].Consumes {
			if reuse && base.Known(in) {
				continue
			}
			queue = append(queue, o.producer[in])
		}
	}
	return needed
}

func (o *Observer) run(ctx context.Context, targets []signal.Name, base signal.Snapshot, reuse bool) (signal.Snapshot, []int, error) {
	needed := o.plan(targets, base, reuse)

	maxLevel := 0
	for i := range needed {
		if o.levels[i] > maxLevel {
			maxLevel = o.levels[i]
		}
	}

	start := time.Now()
	working := base
	var ran []int
	var errs error

	for level := 0; level <= maxLevel; level++ {
		var batch []int
		for i := range o.probes {
			if needed[i] && o.levels[i] == level {
				batch = append(batch, i)
			}
		}
		if len(batch) == 0 {
			continue
		}

		outputs := make([]map[signal.Name]signal.Value, len(batch))
		failures := make([]error, len(batch))

		var wg conc.WaitGroup
		for k, i := range batch {
			in := working
			wg.Go(func() {
				outputs[k], failures[k] = o.probes[i].Run(ctx, in)
			})
		}
		wg.Wait()

		b := signal.NewBuilder()
		var produced []signal.Name
		for k, i := range batch {
			p := o.probes[i]
			if failures[k] != nil {
				o.logger.Warn("Probe failed",
					zap.String("probe", p.Name),
					zap.Error(failures[k]),
				)
				errs = multierr.Append(errs, fmt.Errorf("probe %s: %w", p.Name, failures[k]))
			}
			for _, n := range p.Produces {
				b.Set(n, outputs[k][n])
			}
			produced = append(produced, p.Produces...)
			ran = append(ran, i)
		}
		working = working.Merge(b.Build(), produced)
	}

	o.logger.Debug("Probes completed",
		zap.Int("probes", len(ran)),
		zap.Int("failed", len(multierr.Errors(errs))),
		zap.Duration("duration", time.Since(start)),
	)
	return working, ran, errs
}
