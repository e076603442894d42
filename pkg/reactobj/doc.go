// Package reactobj provides a fine-grained reactive value store.
//
// A Store holds a nested value tree (maps, sequences and leaves) addressed by
// key paths. Reading a path while a computation is running registers a
// dependency on exactly that path; writing a path invalidates only the
// dependents whose observed value actually changed.
//
// # Reading and writing
//
//	store := reactobj.New(tr, map[string]any{
//	    "a": map[string]any{"b": 1, "c": 2},
//	})
//
//	tr.Autorun(func(c *tracker.Computation) {
//	    fmt.Println(store.Get(keypath.New("a", "b")))  // subscribes to a.b
//	})
//
//	store.Set(keypath.New("a", "b"), 2)  // dependents of a.b will be invalidated
//	store.Set(keypath.New("a", "c"), 2)  // a.c unchanged: nobody is invalidated
//	tr.Flush()
//
// Writes are persistent: each Set produces a new root that shares every
// subtree off the written path with the previous root, so holders of an old
// root never observe a change.
//
// # Batching
//
// Invalidation and dependency pruning are deferred to the scheduler's flush
// (Scheduler.AfterFlush). Any number of writes between two flushes are
// compressed into one pass, and dependents are compared against the values
// visible at flush time: writing a value and restoring it before the flush
// invalidates nobody.
//
// # Scheduler
//
// The store never runs computations. It consumes the small Scheduler and
// Computation interfaces, passed explicitly to New. Package tracker provides
// a ready-to-use implementation.
//
// # Thread Safety
//
// A Store is not safe for concurrent use. All reads, writes and flushes must
// happen on the goroutine that owns the store and its scheduler.
package reactobj
