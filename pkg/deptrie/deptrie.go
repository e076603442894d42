// Package deptrie indexes dependency records by key path.
//
// The trie mirrors the shape of the value tree it guards: one node per path
// that currently holds at least one record or a non-empty subtree. Nodes are
// created lazily on registration and removed by Prune once they are both
// childless and record-less.
//
// A Trie is not safe for concurrent use.
package deptrie

import (
	"slices"

	"github.com/vango-dev/reactobj/pkg/keypath"
	"github.com/vango-dev/reactobj/pkg/traverse"
)

// Computation is the part of a reactive computation the trie needs: a stable
// identity and a way to signal it stale.
type Computation interface {
	ID() uint64
	Invalidate()
}

// Record associates a computation with the value it observed at a path.
type Record struct {
	// Computation is the registering computation.
	Computation Computation

	// Observed is the value read at registration time.
	Observed any

	// Found is false when the path was absent at registration time.
	Found bool
}

// Node is a trie node. The zero value is not usable; nodes are created by
// the Trie.
type Node struct {
	children map[string]*Node
	order    []keypath.Segment
	deps     map[uint64]*Record
}

func newNode() *Node {
	return &Node{
		children: make(map[string]*Node),
		deps:     make(map[uint64]*Record),
	}
}

// Child returns the child addressed by seg.
func (n *Node) Child(seg keypath.Segment) (*Node, bool) {
	c, ok := n.children[seg.Canonical()]
	return c, ok
}

// Edges returns the node's children in insertion order.
func (n *Node) Edges() []traverse.Edge[*Node] {
	edges := make([]traverse.Edge[*Node], 0, len(n.order))
	for _, seg := range n.order {
		edges = append(edges, traverse.Edge[*Node]{Segment: seg, Node: n.children[seg.Canonical()]})
	}
	return edges
}

// Record returns the record registered by the computation with the given id.
func (n *Node) Record(id uint64) (*Record, bool) {
	r, ok := n.deps[id]
	return r, ok
}

// RecordIDs returns the ids of the registered computations in ascending order.
func (n *Node) RecordIDs() []uint64 {
	ids := make([]uint64, 0, len(n.deps))
	for id := range n.deps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NumRecords returns the number of records held at this node.
func (n *Node) NumRecords() int {
	return len(n.deps)
}

// NumChildren returns the number of child nodes.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// IsEmpty reports whether the node holds no records and no children.
func (n *Node) IsEmpty() bool {
	return len(n.deps) == 0 && len(n.children) == 0
}

func (n *Node) addChild(seg keypath.Segment) *Node {
	c := newNode()
	n.children[seg.Canonical()] = c
	n.order = append(n.order, seg)
	return c
}

func (n *Node) deleteChild(seg keypath.Segment) {
	key := seg.Canonical()
	delete(n.children, key)
	for i, s := range n.order {
		if s.Canonical() == key {
			n.order = slices.Delete(n.order, i, i+1)
			return
		}
	}
}

// Stats summarizes the size of a trie.
type Stats struct {
	// Nodes is the number of nodes, not counting the root.
	Nodes int

	// Records is the number of dependency records across all nodes.
	Records int
}

// Trie is the dependency trie.
type Trie struct {
	root    *Node
	nodes   int
	records int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Root returns the root node. The root always exists.
func (t *Trie) Root() *Node {
	return t.root
}

// Stats returns the current node and record counts.
func (t *Trie) Stats() Stats {
	return Stats{Nodes: t.nodes, Records: t.records}
}

// Register stores a record for comp at path, creating nodes along the way.
// A record already registered by the same computation at the same path is
// overwritten (last reader wins).
func (t *Trie) Register(path keypath.Path, comp Computation, observed any, found bool) *Record {
	n := t.root
	for i := 0; i < path.Len(); i++ {
		seg := path.At(i)
		next, ok := n.Child(seg)
		if !ok {
			next = n.addChild(seg)
			t.nodes++
		}
		n = next
	}

	id := comp.ID()
	if _, exists := n.deps[id]; !exists {
		t.records++
	}
	r := &Record{Computation: comp, Observed: observed, Found: found}
	n.deps[id] = r
	return r
}

// Lookup returns the node at path, or nil if none exists.
func (t *Trie) Lookup(path keypath.Path) *Node {
	n := t.root
	for i := 0; i < path.Len(); i++ {
		next, ok := n.Child(path.At(i))
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

// Remove deletes the record registered by id at path. Nodes are left in
// place; call Prune to reclaim the ones that became empty. It reports whether
// a record was removed.
func (t *Trie) Remove(path keypath.Path, id uint64) bool {
	n := t.Lookup(path)
	if n == nil {
		return false
	}
	if _, ok := n.deps[id]; !ok {
		return false
	}
	delete(n.deps, id)
	t.records--
	return true
}

// Prune deletes empty nodes along the given paths and returns how many nodes
// were deleted.
//
// Paths are deduplicated and processed longest-first, so a child's emptiness
// is settled before its parent is tested. For each path the terminal node is
// deleted if empty, then each ancestor that became empty as a result, up to
// (and never including) the root.
func (t *Trie) Prune(paths []keypath.Path) int {
	unique := make([]keypath.Path, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		k := p.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, p)
	}
	slices.SortStableFunc(unique, func(a, b keypath.Path) int {
		return b.Len() - a.Len()
	})

	pruned := 0
	spine := make([]*Node, 0, 8)
	for _, p := range unique {
		if p.IsRoot() {
			continue
		}

		spine = append(spine[:0], t.root)
		n := t.root
		for i := 0; i < p.Len(); i++ {
			next, ok := n.Child(p.At(i))
			if !ok {
				n = nil
				break
			}
			spine = append(spine, next)
			n = next
		}
		if n == nil {
			// Already pruned through a longer path sharing this prefix.
			continue
		}

		for depth := p.Len(); depth > 0; depth-- {
			node := spine[depth]
			if !node.IsEmpty() {
				break
			}
			spine[depth-1].deleteChild(p.At(depth - 1))
			t.nodes--
			pruned++
		}
	}
	return pruned
}

// Descendants calls fn for every node strictly beneath start, breadth-first,
// with the node's full path. base is the path of start.
func Descendants(start *Node, base keypath.Path, fn func(path keypath.Path, n *Node)) {
	traverse.WalkFrom(start, base, func(v traverse.Visit[*Node]) []traverse.Edge[*Node] {
		if v.Depth > 0 {
			fn(v.Path, v.Node)
		}
		return v.Node.Edges()
	})
}

// Walk visits every node of the trie breadth-first, starting at the root.
func (t *Trie) Walk(fn func(path keypath.Path, n *Node)) {
	traverse.Walk(t.root, func(v traverse.Visit[*Node]) []traverse.Edge[*Node] {
		fn(v.Path, v.Node)
		return v.Node.Edges()
	})
}
