package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/reactobj"
	"github.com/vango-dev/reactobj/pkg/tracker"
	"github.com/vango-dev/reactobj/pkg/valuetree"
)

var (
	// ErrClosed is returned by Hub methods after Close.
	ErrClosed = errors.New("inspect: hub closed")

	// ErrUnknownWatch is returned by Unwatch for an id it does not know.
	ErrUnknownWatch = errors.New("inspect: unknown watch")

	// ErrPanic is returned by Hub methods whose command panicked.
	ErrPanic = errors.New("inspect: hub command panicked")
)

// Update is sent by a watch on every run.
type Update struct {
	Watch string `json:"watch"`
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Value any    `json:"value,omitempty"`
	Run   int    `json:"run"`
}

// Dependency lists the computations depending on a path.
type Dependency struct {
	Path string   `json:"path"`
	IDs  []uint64 `json:"ids"`
}

// command is a function queued for the hub goroutine.
type command struct {
	fn   func()
	done chan error
}

// Hub owns a store and its tracker. Every access runs on the hub's
// goroutine, followed by a tracker flush.
type Hub struct {
	store   *reactobj.Store
	tracker *tracker.Tracker
	logger  *slog.Logger

	commands  chan command
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	watches map[string]*tracker.Computation
}

// NewHub creates a hub around a new store holding initial and starts its
// loop. Call Close to stop it.
func NewHub(initial any, maxCycles int, logger *slog.Logger, opts ...reactobj.Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	tr := tracker.New(tracker.WithMaxCycles(maxCycles), tracker.WithLogger(logger))
	h := &Hub{
		store:    reactobj.New(tr, initial, append([]reactobj.Option{reactobj.WithLogger(logger)}, opts...)...),
		tracker:  tr,
		logger:   logger,
		commands: make(chan command),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		watches:  make(map[string]*tracker.Computation),
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	defer close(h.stopped)
	for {
		select {
		case cmd := <-h.commands:
			cmd.done <- h.execute(cmd.fn)

		case <-h.done:
			for id, c := range h.watches {
				c.Stop()
				delete(h.watches, id)
			}
			if err := h.tracker.Flush(); err != nil {
				h.logger.Warn("hub final flush failed", "error", err)
			}
			return
		}
	}
}

// execute runs fn and settles the tracker. A panic in fn is returned as an
// error wrapping ErrPanic. The tracker is flushed either way; a panic during
// the flush is only logged, since fn already took effect.
func (h *Hub) execute(fn func()) error {
	err := h.guard("command", fn)
	h.guard("flush", func() {
		if err := h.tracker.Flush(); err != nil {
			h.logger.Warn("hub flush failed", "error", err)
		}
	})
	return err
}

func (h *Hub) guard(stage string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("hub "+stage+" panic",
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	fn()
	return nil
}

// do runs fn on the hub goroutine and waits until it returned and the
// tracker settled. ctx only bounds the wait for the hub to accept fn.
func (h *Hub) do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case h.commands <- cmd:
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// A queued command always runs; its results are written by fn.
	return <-cmd.done
}

// Get returns the value at path and whether it exists.
func (h *Hub) Get(ctx context.Context, path keypath.Path) (value any, found bool, err error) {
	err = h.do(ctx, func() {
		value, found = h.store.Lookup(path)
	})
	return value, found, err
}

// Set writes value at path and reports whether the tree changed. Watches
// affected by the write have re-run when Set returns.
func (h *Hub) Set(ctx context.Context, path keypath.Path, value any) (changed bool, err error) {
	err = h.do(ctx, func() {
		before := h.store.Peek(keypath.Root)
		changed = !valuetree.Same(before, h.store.Set(path, value))
	})
	return changed, err
}

// Invalidate marks path dirty.
func (h *Hub) Invalidate(ctx context.Context, path keypath.Path) error {
	return h.do(ctx, func() {
		h.store.Invalidate(path)
	})
}

// Stats returns the store's bookkeeping counts.
func (h *Hub) Stats(ctx context.Context) (stats reactobj.Stats, err error) {
	err = h.do(ctx, func() {
		stats = h.store.Stats()
	})
	return stats, err
}

// Dependencies lists the dependency records of the store, breadth-first.
func (h *Hub) Dependencies(ctx context.Context) (deps []Dependency, err error) {
	err = h.do(ctx, func() {
		h.store.Dependencies(func(path keypath.Path, ids []uint64) {
			deps = append(deps, Dependency{Path: path.String(), IDs: ids})
		})
	})
	return deps, err
}

// Watch starts a computation reading path and returns its id. send is
// called on the hub goroutine with an Update on every run, the first one
// before Watch returns. send must not block.
func (h *Hub) Watch(ctx context.Context, path keypath.Path, send func(Update)) (id string, err error) {
	id = uuid.NewString()
	err = h.do(ctx, func() {
		h.watches[id] = h.tracker.Autorun(func(c *tracker.Computation) {
			value, found := h.store.Lookup(path)
			send(Update{
				Watch: id,
				Path:  path.String(),
				Found: found,
				Value: value,
				Run:   c.Runs(),
			})
		})
	})
	if err != nil {
		return "", err
	}
	h.logger.Debug("watch started", "watch_id", id, "path", path.String())
	return id, nil
}

// Unwatch stops the watch with the given id.
func (h *Hub) Unwatch(ctx context.Context, id string) error {
	var known bool
	err := h.do(ctx, func() {
		c, ok := h.watches[id]
		if !ok {
			return
		}
		known = true
		c.Stop()
		delete(h.watches, id)
	})
	if err != nil {
		return err
	}
	if !known {
		return ErrUnknownWatch
	}
	h.logger.Debug("watch stopped", "watch_id", id)
	return nil
}

// Close stops every watch and the hub goroutine. It is safe to call more
// than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	<-h.stopped
}
