package reactobj

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactobj/pkg/deptrie"
	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/valuetree"
)

// Store is a reactive value tree addressed by key paths.
// Create one with New; the zero value is not usable.
type Store struct {
	sched Scheduler
	root  any
	trie  *deptrie.Trie
	batch batcher

	equal   func(a, b any) bool
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// trie size last pushed to the metrics gauges
	reported deptrie.Stats
}

// Stats describes the store's bookkeeping.
type Stats struct {
	// Nodes is the number of trie nodes, excluding the root.
	Nodes int

	// Records is the number of live dependency records.
	Records int

	// PendingInvalidations is the number of dirty paths awaiting a flush.
	PendingInvalidations int

	// PendingRemovals is the number of paths awaiting a prune pass.
	PendingRemovals int
}

// New creates a store cooperating with sched. A nil or non-container initial
// value is replaced by an empty map.
func New(sched Scheduler, initial any, opts ...Option) *Store {
	if sched == nil {
		panic("reactobj: New called with nil scheduler")
	}
	if !valuetree.IsContainer(initial) {
		initial = map[string]any{}
	}

	s := &Store{
		sched:  sched,
		root:   initial,
		trie:   deptrie.New(),
		equal:  valuetree.Same,
		logger: slog.Default(),
		tracer: defaultTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value at path, or nil if it is absent.
// If a computation is running, it becomes dependent on path.
func (s *Store) Get(path keypath.Path) any {
	v, _ := s.Lookup(path)
	return v
}

// Lookup returns the value at path and whether it exists.
// If a computation is running, it becomes dependent on path, including when
// the path is absent.
func (s *Store) Lookup(path keypath.Path) (any, bool) {
	v, found := valuetree.Resolve(s.root, path)
	s.track(path, v, found)
	return v, found
}

// Peek returns the value at path without registering a dependency.
func (s *Store) Peek(path keypath.Path) any {
	v, _ := valuetree.Resolve(s.root, path)
	return v
}

// Set writes value at path and returns the new root. Missing intermediate
// levels are created as maps. Writing a value that is already in place is a
// no-op and invalidates nobody.
//
// The root path replaces the whole tree.
func (s *Store) Set(path keypath.Path, value any) any {
	root, changed := valuetree.ReplaceFunc(s.root, path, value, s.equal)
	s.metrics.recordWrite(changed)
	if !changed {
		return s.root
	}
	s.root = root
	s.enqueueInvalidation(path)
	return s.root
}

// SetRoot replaces the whole tree.
func (s *Store) SetRoot(value any) any {
	return s.Set(keypath.Root, value)
}

// Update writes fn's result at path. fn receives the current value and
// whether it exists. The read does not register a dependency.
func (s *Store) Update(path keypath.Path, fn func(old any, found bool) any) any {
	old, found := valuetree.Resolve(s.root, path)
	return s.Set(path, fn(old, found))
}

// Invalidate marks path dirty without writing, for callers that mutated the
// tree in place. Dependents of path and of every path beneath it are
// re-checked at the next flush and invalidated if their observed value
// differs from the current one.
func (s *Store) Invalidate(path keypath.Path) {
	s.metrics.recordManualInvalidation()
	s.enqueueInvalidation(path)
}

// GetKey is Get with a loosely typed key: nil, a single string or integer
// segment, a keypath.Path or a slice of segments.
func (s *Store) GetKey(key any) (any, error) {
	path, err := keypath.From(key)
	if err != nil {
		return nil, err
	}
	return s.Get(path), nil
}

// SetKey is Set with a loosely typed key. Exactly one value must be given.
func (s *Store) SetKey(key any, value ...any) (any, error) {
	path, err := keypath.From(key)
	if err != nil {
		return nil, err
	}
	switch len(value) {
	case 0:
		return nil, ErrNoValue
	case 1:
		return s.Set(path, value[0]), nil
	default:
		return nil, fmt.Errorf("%w: expected one value, got %d", ErrInvalidArgument, len(value))
	}
}

// InvalidateKey is Invalidate with a loosely typed key.
func (s *Store) InvalidateKey(key any) error {
	path, err := keypath.From(key)
	if err != nil {
		return err
	}
	s.Invalidate(path)
	return nil
}

// Stats returns the current bookkeeping counts.
func (s *Store) Stats() Stats {
	ts := s.trie.Stats()
	return Stats{
		Nodes:                ts.Nodes,
		Records:              ts.Records,
		PendingInvalidations: len(s.batch.invalidations),
		PendingRemovals:      len(s.batch.removals),
	}
}

// Dependencies calls fn for every trie node holding records, breadth-first,
// with the sorted ids of the dependent computations.
func (s *Store) Dependencies(fn func(path keypath.Path, ids []uint64)) {
	s.trie.Walk(func(path keypath.Path, n *deptrie.Node) {
		if n.NumRecords() > 0 {
			fn(path, n.RecordIDs())
		}
	})
}

// track registers the running computation, if any, as dependent on path.
func (s *Store) track(path keypath.Path, observed any, found bool) {
	if !s.sched.Active() {
		return
	}
	comp := s.sched.Current()
	if comp == nil {
		return
	}

	s.trie.Register(path, comp, observed, found)
	s.reportStats()

	id := comp.ID()
	comp.OnInvalidate(func() {
		s.scheduleRemoval(path, id)
	})
}

// scheduleRemoval drops the record of id at path now and defers the
// structural cleanup of the trie to the next flush.
func (s *Store) scheduleRemoval(path keypath.Path, id uint64) {
	if !s.trie.Remove(path, id) {
		return
	}
	s.reportStats()
	if s.batch.queueRemoval(path) {
		s.sched.AfterFlush(s.pass)
	}
}

func (s *Store) enqueueInvalidation(path keypath.Path) {
	if s.batch.queueInvalidation(path) {
		s.sched.AfterFlush(s.pass)
	}
}

// pass is the deferred flush callback. Invalidation signals go out before
// pruning, so removals triggered by those signals are pruned in the same
// pass.
func (s *Store) pass() {
	s.batch.beginPass()
	s.flushInvalidations()
	s.prune()
}

func (s *Store) prune() {
	paths := s.batch.drainRemovals()
	if len(paths) == 0 {
		return
	}

	span := s.startPruneSpan(len(paths))
	n := s.trie.Prune(paths)
	span.End()

	s.metrics.recordPrune(n)
	s.reportStats()
	s.logger.Debug("reactobj prune",
		"paths", len(paths),
		"pruned", n,
	)
}

// reportStats pushes the change in trie size since the last report.
func (s *Store) reportStats() {
	cur := s.trie.Stats()
	s.metrics.addTrieDelta(cur.Nodes-s.reported.Nodes, cur.Records-s.reported.Records)
	s.reported = cur
}
