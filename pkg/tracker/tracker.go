// Package tracker is a small synchronous reactive runtime implementing
// reactobj.Scheduler.
//
// Computations created with Autorun run immediately and re-run after being
// invalidated, when the tracker flushes. Flush alternates between re-running
// invalidated computations and draining AfterFlush callbacks until both
// queues are empty.
//
//	tr := tracker.New()
//	store := reactobj.New(tr, nil)
//	tr.Autorun(func(c *tracker.Computation) {
//	    fmt.Println(store.Get(keypath.New("count")))
//	})
//	tr.Batch(func() {
//	    store.Set(keypath.New("count"), 1)
//	})  // prints 1
//
// A Tracker is not safe for concurrent use.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vango-dev/reactobj/pkg/reactobj"
)

// DefaultMaxCycles is the default bound on flush cycles.
const DefaultMaxCycles = 100

var (
	// ErrFlushLimit is returned by Flush when the queues did not settle
	// within the configured number of cycles, usually because computations
	// keep invalidating each other.
	ErrFlushLimit = errors.New("tracker: flush did not settle")

	// ErrReentrantFlush is returned by Flush when called from inside a
	// flush.
	ErrReentrantFlush = errors.New("tracker: flush already in progress")
)

// Tracker schedules computations and flush callbacks.
type Tracker struct {
	current    *Computation
	pending    []*Computation
	afterFlush []func()

	batchDepth int
	flushing   bool

	maxCycles int
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxCycles bounds the number of cycles a single Flush may run.
func WithMaxCycles(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxCycles = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		maxCycles: DefaultMaxCycles,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ reactobj.Scheduler = (*Tracker)(nil)

// Active reports whether a computation is running.
func (t *Tracker) Active() bool {
	return t.current != nil
}

// Current returns the running computation, or nil.
func (t *Tracker) Current() reactobj.Computation {
	if t.current == nil {
		return nil
	}
	return t.current
}

// CurrentComputation is Current with the concrete type.
func (t *Tracker) CurrentComputation() *Computation {
	return t.current
}

// AfterFlush schedules fn to run during the next flush, after the
// computations invalidated so far have re-run.
func (t *Tracker) AfterFlush(fn func()) {
	t.afterFlush = append(t.afterFlush, fn)
}

// Pending reports whether a flush has work to do.
func (t *Tracker) Pending() bool {
	return len(t.pending) > 0 || len(t.afterFlush) > 0
}

// Autorun creates a computation and runs fn immediately with it as the
// current computation. fn runs again each flush after the computation is
// invalidated, until it is stopped.
func (t *Tracker) Autorun(fn func(c *Computation)) *Computation {
	c := &Computation{
		id:       nextID(),
		tracker:  t,
		fn:       fn,
		firstRun: true,
	}
	c.run()
	c.firstRun = false
	return c
}

// Nonreactive runs fn with no current computation, so reads inside it do
// not register dependencies.
func (t *Tracker) Nonreactive(fn func()) {
	prev := t.current
	t.current = nil
	defer func() { t.current = prev }()
	fn()
}

// Batch runs fn and flushes when the outermost batch returns.
// Batches can be nested; inside a flush, Batch never flushes.
func (t *Tracker) Batch(fn func()) error {
	t.batchDepth++
	func() {
		defer func() { t.batchDepth-- }()
		fn()
	}()

	if t.batchDepth > 0 || t.flushing {
		return nil
	}
	return t.Flush()
}

// Flush re-runs invalidated computations and drains AfterFlush callbacks
// until neither has work left.
func (t *Tracker) Flush() error {
	if t.flushing {
		return ErrReentrantFlush
	}
	t.flushing = true
	defer func() { t.flushing = false }()

	for cycle := 0; t.Pending(); cycle++ {
		if cycle >= t.maxCycles {
			t.logger.Warn("tracker flush did not settle",
				"cycles", cycle,
				"pending_computations", len(t.pending),
				"pending_callbacks", len(t.afterFlush),
			)
			return fmt.Errorf("%w after %d cycles", ErrFlushLimit, cycle)
		}

		comps := t.pending
		t.pending = nil
		for _, c := range comps {
			c.rerun()
		}

		fns := t.afterFlush
		t.afterFlush = nil
		for _, fn := range fns {
			fn()
		}
	}
	return nil
}

func (t *Tracker) schedule(c *Computation) {
	t.pending = append(t.pending, c)
}
