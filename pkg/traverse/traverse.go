// Package traverse implements the breadth-first walk shared by the dependency
// trie and the dirty-path tree.
//
// The walk keeps no state besides its explicit FIFO work queue: the caller
// supplies a start node and a step function that, given the node being
// visited and the path that led to it, returns the edges to continue into.
// Returning no edges stops that branch.
package traverse

import "github.com/vango-dev/reactobj/pkg/keypath"

// Visit describes the node currently being visited.
type Visit[N any] struct {
	// Node is the visited node.
	Node N

	// Path is the path from the start node to Node. The start node is
	// visited with the path given to WalkFrom (the root for Walk).
	Path keypath.Path

	// Depth is the number of edges between the start node and Node.
	Depth int
}

// Edge is a child to continue into, labelled with the segment that leads
// to it.
type Edge[N any] struct {
	Segment keypath.Segment
	Node    N
}

// StepFunc inspects a visit and returns the edges to enqueue.
type StepFunc[N any] func(v Visit[N]) []Edge[N]

// Walk visits start and its descendants breadth-first.
func Walk[N any](start N, step StepFunc[N]) {
	WalkFrom(start, keypath.Root, step)
}

// WalkFrom is like Walk but reports paths relative to base, so a walk over a
// subtree yields full paths.
func WalkFrom[N any](start N, base keypath.Path, step StepFunc[N]) {
	queue := []Visit[N]{{Node: start, Path: base}}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		// Release the reference so visited nodes can be collected during
		// long walks.
		var zero Visit[N]
		queue[head] = zero

		for _, e := range step(v) {
			queue = append(queue, Visit[N]{
				Node:  e.Node,
				Path:  v.Path.Append(e.Segment),
				Depth: v.Depth + 1,
			})
		}
	}
}

// Pair couples two nodes visited in lock-step.
type Pair[A, B any] struct {
	Left  A
	Right B
}

// Zip walks two trees in lock-step. children returns the segment-labelled
// children of a node of each tree; only segments present on both sides (by
// canonical key) are followed, in the order the left tree reports them. visit
// is called for every matched pair and may return false to stop descending
// from that pair.
func Zip[A, B any](
	left A,
	right B,
	leftChildren func(A) []Edge[A],
	rightChild func(B, keypath.Segment) (B, bool),
	visit func(Visit[Pair[A, B]]) bool,
) {
	Walk(Pair[A, B]{Left: left, Right: right}, func(v Visit[Pair[A, B]]) []Edge[Pair[A, B]] {
		if !visit(v) {
			return nil
		}
		var edges []Edge[Pair[A, B]]
		for _, e := range leftChildren(v.Node.Left) {
			r, ok := rightChild(v.Node.Right, e.Segment)
			if !ok {
				continue
			}
			edges = append(edges, Edge[Pair[A, B]]{
				Segment: e.Segment,
				Node:    Pair[A, B]{Left: e.Node, Right: r},
			})
		}
		return edges
	})
}
