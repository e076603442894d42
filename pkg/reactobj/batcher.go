package reactobj

import "github.com/vango-dev/reactobj/pkg/keypath"

// batcher accumulates dirty paths and removal requests between flushes.
// Both queues share one flush callback, scheduled on the first enqueue of
// either queue since the last pass began.
type batcher struct {
	invalidations []keypath.Path
	removals      []keypath.Path
	scheduled     bool
}

// queueInvalidation appends a dirty path and reports whether the caller must
// schedule a pass.
func (b *batcher) queueInvalidation(p keypath.Path) (schedule bool) {
	b.invalidations = append(b.invalidations, p)
	return b.schedule()
}

// queueRemoval appends a path to check for pruning and reports whether the
// caller must schedule a pass.
func (b *batcher) queueRemoval(p keypath.Path) (schedule bool) {
	b.removals = append(b.removals, p)
	return b.schedule()
}

func (b *batcher) schedule() bool {
	if b.scheduled {
		return false
	}
	b.scheduled = true
	return true
}

// beginPass marks the scheduled callback as running. Anything queued from
// here on needs a new callback, except what the running pass drains itself.
func (b *batcher) beginPass() {
	b.scheduled = false
}

// drainInvalidations returns and clears the dirty paths. Paths queued after
// this call belong to the next pass.
func (b *batcher) drainInvalidations() []keypath.Path {
	paths := b.invalidations
	b.invalidations = nil
	return paths
}

// drainRemovals returns and clears the removal paths.
func (b *batcher) drainRemovals() []keypath.Path {
	paths := b.removals
	b.removals = nil
	return paths
}
