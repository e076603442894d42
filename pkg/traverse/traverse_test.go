package traverse

import (
	"reflect"
	"testing"

	"github.com/vango-dev/reactobj/pkg/keypath"
)

type testNode struct {
	name     string
	children []*testNode
}

func (n *testNode) edges() []Edge[*testNode] {
	out := make([]Edge[*testNode], len(n.children))
	for i, c := range n.children {
		out[i] = Edge[*testNode]{Segment: keypath.Key(c.name), Node: c}
	}
	return out
}

func (n *testNode) child(seg keypath.Segment) (*testNode, bool) {
	for _, c := range n.children {
		if c.name == seg.Canonical() {
			return c, true
		}
	}
	return nil, false
}

func tree(name string, children ...*testNode) *testNode {
	return &testNode{name: name, children: children}
}

func TestWalkIsBreadthFirst(t *testing.T) {
	root := tree("",
		tree("a", tree("a1", tree("a1x")), tree("a2")),
		tree("b", tree("b1")),
	)

	var visited []string
	Walk(root, func(v Visit[*testNode]) []Edge[*testNode] {
		visited = append(visited, v.Path.String())
		return v.Node.edges()
	})

	want := []string{"", "a", "b", "a.a1", "a.a2", "b.b1", "a.a1.a1x"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}

func TestWalkStopsBranchOnNoEdges(t *testing.T) {
	root := tree("", tree("a", tree("a1")), tree("b", tree("b1")))

	var visited []string
	Walk(root, func(v Visit[*testNode]) []Edge[*testNode] {
		visited = append(visited, v.Path.String())
		if v.Node.name == "a" {
			return nil
		}
		return v.Node.edges()
	})

	want := []string{"", "a", "b", "b.b1"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}

func TestWalkFromReportsFullPaths(t *testing.T) {
	sub := tree("x", tree("y"))
	var paths []string
	var depths []int
	WalkFrom(sub, keypath.New("base", "x"), func(v Visit[*testNode]) []Edge[*testNode] {
		paths = append(paths, v.Path.String())
		depths = append(depths, v.Depth)
		return v.Node.edges()
	})

	if !reflect.DeepEqual(paths, []string{"base.x", "base.x.y"}) {
		t.Errorf("paths = %v", paths)
	}
	if !reflect.DeepEqual(depths, []int{0, 1}) {
		t.Errorf("depths = %v", depths)
	}
}

func TestZipFollowsSharedSegmentsOnly(t *testing.T) {
	left := tree("", tree("a", tree("b"), tree("missing")), tree("c"))
	right := tree("", tree("a", tree("b", tree("deeper"))), tree("z"))

	var matched []string
	Zip(left, right,
		func(n *testNode) []Edge[*testNode] { return n.edges() },
		func(n *testNode, seg keypath.Segment) (*testNode, bool) { return n.child(seg) },
		func(v Visit[Pair[*testNode, *testNode]]) bool {
			if v.Node.Left.name != v.Node.Right.name {
				t.Errorf("mismatched pair %q/%q", v.Node.Left.name, v.Node.Right.name)
			}
			matched = append(matched, v.Path.String())
			return true
		},
	)

	want := []string{"", "a", "a.b"}
	if !reflect.DeepEqual(matched, want) {
		t.Errorf("matched = %v, want %v", matched, want)
	}
}

func TestZipVisitCanPrune(t *testing.T) {
	left := tree("", tree("a", tree("b")))
	right := tree("", tree("a", tree("b")))

	var matched []string
	Zip(left, right,
		func(n *testNode) []Edge[*testNode] { return n.edges() },
		func(n *testNode, seg keypath.Segment) (*testNode, bool) { return n.child(seg) },
		func(v Visit[Pair[*testNode, *testNode]]) bool {
			matched = append(matched, v.Path.String())
			return v.Depth < 1
		},
	)

	if !reflect.DeepEqual(matched, []string{"", "a"}) {
		t.Errorf("matched = %v", matched)
	}
}
