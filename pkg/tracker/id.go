package tracker

import "sync/atomic"

// idCounter is the source of computation IDs, shared by all trackers so
// that IDs stay unique when computations read from several stores.
var idCounter uint64

// nextID returns the next computation ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}
