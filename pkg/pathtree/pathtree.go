// Package pathtree compresses a batch of dirty key paths into a prefix tree.
//
// Every dirty path marks its terminal node ALL: the value at that path was
// replaced, so the path itself and everything beneath it may be stale. Nodes
// that only exist because they lie on the way to a dirty path stay EXACT:
// only the value at exactly that path needs checking. A dirty path beneath an
// ALL node is redundant and dropped.
package pathtree

import (
	"slices"

	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/traverse"
)

// Marker is the invalidation scope of a node.
type Marker uint8

const (
	// Exact means only the value at exactly this path is dirty.
	Exact Marker = iota
	// All means this path and every path beneath it are dirty.
	All
)

// String returns the marker name.
func (m Marker) String() string {
	if m == All {
		return "ALL"
	}
	return "EXACT"
}

// Node is a node of the compressed tree.
type Node struct {
	marker   Marker
	children map[string]*Node
	order    []keypath.Segment
}

func newNode() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Marker returns the node's invalidation scope.
func (n *Node) Marker() Marker {
	return n.marker
}

// Child returns the child addressed by seg.
func (n *Node) Child(seg keypath.Segment) (*Node, bool) {
	c, ok := n.children[seg.Canonical()]
	return c, ok
}

// Edges returns the node's children in insertion order. ALL nodes never have
// children.
func (n *Node) Edges() []traverse.Edge[*Node] {
	edges := make([]traverse.Edge[*Node], 0, len(n.order))
	for _, seg := range n.order {
		edges = append(edges, traverse.Edge[*Node]{Segment: seg, Node: n.children[seg.Canonical()]})
	}
	return edges
}

func (n *Node) child(seg keypath.Segment) *Node {
	if c, ok := n.Child(seg); ok {
		return c
	}
	c := newNode()
	n.children[seg.Canonical()] = c
	n.order = append(n.order, seg)
	return c
}

// Tree is the compressed dirty-path tree. A tree built from a batch
// containing the empty path has an ALL root: the whole value was replaced.
type Tree struct {
	root *Node
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// All reports whether the whole value tree is dirty.
func (t *Tree) All() bool {
	return t.root.marker == All
}

// Empty reports whether the tree marks nothing dirty.
func (t *Tree) Empty() bool {
	return t.root.marker == Exact && len(t.root.children) == 0
}

// Build compresses paths into a Tree.
func Build(paths []keypath.Path) *Tree {
	root := newNode()
	for _, p := range paths {
		if p.IsRoot() {
			root.marker = All
			return &Tree{root: root}
		}
	}

	sorted := slices.Clone(paths)
	slices.SortStableFunc(sorted, func(a, b keypath.Path) int {
		return a.Len() - b.Len()
	})

	for _, p := range sorted {
		n := root
		covered := false
		for i := 0; i < p.Len(); i++ {
			n = n.child(p.At(i))
			if n.marker == All {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		// Shorter paths come first, so n has no children yet.
		n.marker = All
	}
	return &Tree{root: root}
}

// Walk visits every node breadth-first with its path.
func (t *Tree) Walk(fn func(path keypath.Path, n *Node)) {
	traverse.Walk(t.root, func(v traverse.Visit[*Node]) []traverse.Edge[*Node] {
		fn(v.Path, v.Node)
		return v.Node.Edges()
	})
}

// Paths returns every node's path and marker in breadth-first order, mostly
// useful for logging and tests.
func (t *Tree) Paths() []Entry {
	var out []Entry
	t.Walk(func(path keypath.Path, n *Node) {
		out = append(out, Entry{Path: path, Marker: n.marker})
	})
	return out
}

// Entry is a flattened tree node.
type Entry struct {
	Path   keypath.Path
	Marker Marker
}
