package deptrie

import (
	"reflect"
	"testing"

	"github.com/vango-dev/reactobj/pkg/keypath"
)

type testComp struct {
	id          uint64
	invalidated int
}

func (c *testComp) ID() uint64  { return c.id }
func (c *testComp) Invalidate() { c.invalidated++ }

func TestRegisterCreatesNodesLazily(t *testing.T) {
	tr := New()
	c := &testComp{id: 1}

	tr.Register(keypath.New("a", "b", "c"), c, 1, true)

	if got := tr.Stats(); got != (Stats{Nodes: 3, Records: 1}) {
		t.Fatalf("Stats() = %+v, want 3 nodes 1 record", got)
	}
	n := tr.Lookup(keypath.New("a", "b", "c"))
	if n == nil {
		t.Fatal("terminal node missing")
	}
	r, ok := n.Record(1)
	if !ok || r.Observed != 1 || !r.Found {
		t.Fatalf("record = %+v, ok=%v", r, ok)
	}
	if tr.Lookup(keypath.New("a", "b")).NumRecords() != 0 {
		t.Error("intermediate nodes hold no records")
	}
}

func TestRegisterAtRoot(t *testing.T) {
	tr := New()
	tr.Register(keypath.Root, &testComp{id: 7}, "root", true)

	if tr.Root().NumRecords() != 1 {
		t.Fatal("root record missing")
	}
	if tr.Stats().Nodes != 0 {
		t.Error("root is not counted as a node")
	}
}

func TestRegisterIsIdempotentPerComputation(t *testing.T) {
	tr := New()
	c := &testComp{id: 1}
	p := keypath.New("a")

	tr.Register(p, c, 1, true)
	tr.Register(p, c, 2, true)

	n := tr.Lookup(p)
	if n.NumRecords() != 1 {
		t.Fatalf("records = %d, want 1", n.NumRecords())
	}
	if r, _ := n.Record(1); r.Observed != 2 {
		t.Errorf("observed = %v, want last reader's 2", r.Observed)
	}
	if tr.Stats().Records != 1 {
		t.Errorf("Stats().Records = %d, want 1", tr.Stats().Records)
	}
}

func TestCanonicalSegmentsShareNodes(t *testing.T) {
	tr := New()
	tr.Register(keypath.New("list", 0), &testComp{id: 1}, nil, false)
	tr.Register(keypath.New("list", "0"), &testComp{id: 2}, nil, false)

	if tr.Stats().Nodes != 2 {
		t.Fatalf("nodes = %d, want 2", tr.Stats().Nodes)
	}
	if tr.Lookup(keypath.New("list", 0)).NumRecords() != 2 {
		t.Error("index and numeric key should share a node")
	}
}

func TestRemove(t *testing.T) {
	tr := New()
	p := keypath.New("a", "b")
	tr.Register(p, &testComp{id: 1}, 1, true)

	if !tr.Remove(p, 1) {
		t.Fatal("Remove should report removal")
	}
	if tr.Remove(p, 1) {
		t.Error("second Remove should be a no-op")
	}
	if tr.Remove(keypath.New("x"), 1) {
		t.Error("Remove on a missing path should be a no-op")
	}
	if tr.Stats().Records != 0 {
		t.Errorf("records = %d", tr.Stats().Records)
	}
	if tr.Lookup(p) == nil {
		t.Error("Remove must not delete nodes")
	}
}

func TestPruneRemovesEmptySpine(t *testing.T) {
	tr := New()
	p := keypath.New("a", "b", "c")
	tr.Register(p, &testComp{id: 1}, 1, true)
	tr.Remove(p, 1)

	if n := tr.Prune([]keypath.Path{p}); n != 3 {
		t.Fatalf("Prune() = %d, want 3", n)
	}
	if tr.Root().NumChildren() != 0 {
		t.Error("no node along the path should remain")
	}
	if tr.Stats().Nodes != 0 {
		t.Errorf("nodes = %d", tr.Stats().Nodes)
	}
}

func TestPruneKeepsOccupiedAncestors(t *testing.T) {
	tr := New()
	tr.Register(keypath.New("a"), &testComp{id: 1}, nil, true)
	tr.Register(keypath.New("a", "b", "c"), &testComp{id: 2}, nil, true)
	tr.Register(keypath.New("a", "x"), &testComp{id: 3}, nil, true)

	tr.Remove(keypath.New("a", "b", "c"), 2)
	pruned := tr.Prune([]keypath.Path{keypath.New("a", "b", "c")})

	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2 (c and b)", pruned)
	}
	if tr.Lookup(keypath.New("a")) == nil {
		t.Fatal("a holds a record and must stay")
	}
	if tr.Lookup(keypath.New("a", "x")) == nil {
		t.Fatal("sibling a.x must stay")
	}
	if tr.Lookup(keypath.New("a", "b")) != nil {
		t.Error("a.b became empty and must be pruned")
	}
}

func TestPruneSkipsNodesRepopulatedBeforePrune(t *testing.T) {
	tr := New()
	p := keypath.New("a", "b")
	tr.Register(p, &testComp{id: 1}, 1, true)
	tr.Remove(p, 1)
	tr.Register(p, &testComp{id: 2}, 1, true)

	if n := tr.Prune([]keypath.Path{p}); n != 0 {
		t.Fatalf("Prune() = %d, want 0", n)
	}
	if tr.Lookup(p) == nil {
		t.Fatal("node re-registered before the prune pass must survive")
	}
}

func TestPruneDeduplicatesAndOrdersLongestFirst(t *testing.T) {
	tr := New()
	short := keypath.New("a")
	long := keypath.New("a", "b")
	tr.Register(short, &testComp{id: 1}, nil, true)
	tr.Register(long, &testComp{id: 2}, nil, true)
	tr.Remove(short, 1)
	tr.Remove(long, 2)

	// Shorter path first in input; a is only empty once a.b is gone.
	pruned := tr.Prune([]keypath.Path{short, long, short, long})
	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
	if tr.Root().NumChildren() != 0 {
		t.Error("trie should be empty")
	}
}

func TestPruneMissingPathIsNoop(t *testing.T) {
	tr := New()
	if n := tr.Prune([]keypath.Path{keypath.New("ghost"), keypath.Root}); n != 0 {
		t.Fatalf("Prune() = %d, want 0", n)
	}
}

func TestEdgesKeepInsertionOrder(t *testing.T) {
	tr := New()
	for i, k := range []string{"z", "a", "m"} {
		tr.Register(keypath.New(k), &testComp{id: uint64(i + 1)}, nil, true)
	}

	var got []string
	for _, e := range tr.Root().Edges() {
		got = append(got, e.Segment.Canonical())
	}
	if !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
		t.Errorf("edges = %v", got)
	}
}

func TestRecordIDsSorted(t *testing.T) {
	tr := New()
	p := keypath.New("a")
	for _, id := range []uint64{9, 3, 5} {
		tr.Register(p, &testComp{id: id}, nil, true)
	}
	if got := tr.Lookup(p).RecordIDs(); !reflect.DeepEqual(got, []uint64{3, 5, 9}) {
		t.Errorf("RecordIDs() = %v", got)
	}
}

func TestDescendants(t *testing.T) {
	tr := New()
	tr.Register(keypath.New("a"), &testComp{id: 1}, nil, true)
	tr.Register(keypath.New("a", "x"), &testComp{id: 2}, nil, true)
	tr.Register(keypath.New("a", "y", "z"), &testComp{id: 3}, nil, true)
	tr.Register(keypath.New("b"), &testComp{id: 4}, nil, true)

	var got []string
	Descendants(tr.Lookup(keypath.New("a")), keypath.New("a"), func(p keypath.Path, _ *Node) {
		got = append(got, p.String())
	})

	want := []string{"a.x", "a.y", "a.y.z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("descendants = %v, want %v", got, want)
	}
}
