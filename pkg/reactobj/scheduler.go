package reactobj

// Computation is a reactive computation as seen by the store.
type Computation interface {
	// ID returns a scheduler-assigned identifier, unique among live
	// computations.
	ID() uint64

	// Invalidate marks the computation stale. The scheduler decides when it
	// re-runs.
	Invalidate()

	// OnInvalidate registers fn to run when the computation is invalidated
	// or stopped.
	OnInvalidate(fn func())
}

// Scheduler is the reactive runtime the store cooperates with.
type Scheduler interface {
	// Active reports whether a computation is currently running.
	Active() bool

	// Current returns the running computation, or nil.
	Current() Computation

	// AfterFlush schedules fn to run once at the end of the current flush
	// cycle, after every write made synchronously before it.
	AfterFlush(fn func())
}
