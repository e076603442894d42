// Package inspect serves a reactive store over HTTP for inspection and live
// watching.
//
// A Hub owns one reactobj.Store and its tracker.Tracker and runs every
// access on a single goroutine, so the store never sees concurrent use.
// Server exposes the hub:
//
//	GET    /healthz              liveness
//	GET    /v1/value?path=a.b    read a value
//	PUT    /v1/value?path=a.b    write the JSON request body
//	POST   /v1/invalidate?path=a mark a path dirty
//	GET    /v1/stats             trie and queue sizes
//	GET    /v1/dependencies      dependency records per path
//	GET    /v1/watch?path=a.b    WebSocket stream of watch updates
//	GET    /metrics              Prometheus metrics, when enabled
//
// With Config.Snapshots set, named snapshots of the root are available too:
//
//	GET    /v1/snapshots                 list snapshots
//	PUT    /v1/snapshots/{name}          save the current root
//	POST   /v1/snapshots/{name}/restore  replace the root
//	DELETE /v1/snapshots/{name}          delete a snapshot
//
// Paths use the dotted form understood by keypath.Parse; an empty or missing
// path addresses the root.
//
// A watch is a computation on the hub reading its path. It sends an Update
// on its first run and every time the store invalidates it:
//
//	{"watch":"6f1c...","path":"a.b","found":true,"value":2,"run":2}
//
// Example:
//
//	srv := inspect.New(inspect.DefaultConfig(), map[string]any{"count": 0})
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
package inspect
