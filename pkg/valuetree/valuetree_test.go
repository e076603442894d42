package valuetree

import (
	"testing"

	"github.com/vango-dev/reactobj/pkg/keypath"
)

func sampleTree() map[string]any {
	return map[string]any{
		"a": map[string]any{"b": 1, "c": 2},
		"c": map[string]any{"deep": []any{"x", "y"}},
		"list": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}
}

func TestResolve(t *testing.T) {
	root := sampleTree()

	tests := []struct {
		name      string
		path      keypath.Path
		want      any
		wantFound bool
	}{
		{name: "nested key", path: keypath.New("a", "b"), want: 1, wantFound: true},
		{name: "sequence index", path: keypath.New("list", 1, "name"), want: "second", wantFound: true},
		{name: "numeric key into sequence", path: keypath.New("c", "deep", "0"), want: "x", wantFound: true},
		{name: "missing leaf", path: keypath.New("a", "z"), wantFound: false},
		{name: "missing intermediate", path: keypath.New("nope", "b"), wantFound: false},
		{name: "through a scalar", path: keypath.New("a", "b", "c"), wantFound: false},
		{name: "index out of range", path: keypath.New("list", 5), wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Resolve(root, tt.path)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveRoot(t *testing.T) {
	root := sampleTree()
	got, found := Resolve(root, keypath.Root)
	if !found || !Same(got, root) {
		t.Fatal("empty path should resolve to the root itself")
	}
}

func TestReplaceStructuralSharing(t *testing.T) {
	old := sampleTree()
	oldC := old["c"]
	oldList := old["list"]

	newRoot, changed := Replace(old, keypath.New("a", "b"), 5)
	if !changed {
		t.Fatal("expected a change")
	}

	nr := newRoot.(map[string]any)
	if !Same(nr["c"], oldC) {
		t.Error("sibling subtree c should be shared by reference")
	}
	if !Same(nr["list"], oldList) {
		t.Error("sibling subtree list should be shared by reference")
	}
	if Same(nr["a"], old["a"]) {
		t.Error("containers on the written path must be fresh")
	}
	if Same(newRoot, old) {
		t.Error("root must be fresh")
	}

	if v, _ := Resolve(newRoot, keypath.New("a", "b")); v != 5 {
		t.Errorf("a.b = %v, want 5", v)
	}
	if v, _ := Resolve(newRoot, keypath.New("a", "c")); v != 2 {
		t.Errorf("a.c = %v, want 2", v)
	}
	if v, _ := Resolve(old, keypath.New("a", "b")); v != 1 {
		t.Errorf("old snapshot was mutated: a.b = %v", v)
	}
}

func TestReplaceNoop(t *testing.T) {
	old := sampleTree()
	a := old["a"]

	newRoot, changed := Replace(old, keypath.New("a", "b"), 1)
	if changed || !Same(newRoot, old) {
		t.Fatal("writing the identical scalar should be a no-op")
	}

	newRoot, changed = Replace(old, keypath.New("a"), a)
	if changed || !Same(newRoot, old) {
		t.Fatal("writing the identical container should be a no-op")
	}

	newRoot, changed = Replace(old, keypath.New("a"), map[string]any{"b": 1, "c": 2})
	if !changed || Same(newRoot, old) {
		t.Fatal("an equal but distinct container is a change")
	}
}

func TestReplaceCreatesMissingLevels(t *testing.T) {
	newRoot, changed := Replace(map[string]any{}, keypath.New("x", "y", "z"), true)
	if !changed {
		t.Fatal("expected a change")
	}
	v, found := Resolve(newRoot, keypath.New("x", "y", "z"))
	if !found || v != true {
		t.Fatalf("x.y.z = %v (found %v), want true", v, found)
	}
	if KindOf(newRoot.(map[string]any)["x"]) != KindMap {
		t.Error("missing levels default to maps")
	}
}

func TestReplaceKeepsSequenceKind(t *testing.T) {
	old := sampleTree()
	newRoot, _ := Replace(old, keypath.New("list", 0, "name"), "renamed")

	list := newRoot.(map[string]any)["list"]
	if KindOf(list) != KindSequence {
		t.Fatalf("list kind = %v, want sequence", KindOf(list))
	}
	seq := list.([]any)
	if !Same(seq[1], old["list"].([]any)[1]) {
		t.Error("untouched sequence element should be shared")
	}
	if seq[0].(map[string]any)["name"] != "renamed" {
		t.Error("write did not land")
	}
}

func TestReplaceGrowsSequence(t *testing.T) {
	newRoot, _ := Replace([]any{"a"}, keypath.New(3), "d")
	seq := newRoot.([]any)
	if len(seq) != 4 {
		t.Fatalf("len = %d, want 4", len(seq))
	}
	if seq[0] != "a" || seq[1] != nil || seq[3] != "d" {
		t.Errorf("seq = %v", seq)
	}
}

func TestReplaceFarIndexConvertsToMap(t *testing.T) {
	tests := []struct {
		name string
		idx  int
	}{
		{name: "just past the gap", idx: 2 + MaxSequenceGap + 1},
		{name: "huge", idx: 1 << 62},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := map[string]any{"arr": []any{1, 2}}
			newRoot, changed := Replace(root, keypath.New("arr", tt.idx), "x")
			if !changed {
				t.Fatal("changed = false, want true")
			}
			m, ok := newRoot.(map[string]any)["arr"].(map[string]any)
			if !ok {
				t.Fatalf("arr kind = %T, want map", newRoot.(map[string]any)["arr"])
			}
			if len(m) != 3 || m["0"] != 1 || m["1"] != 2 {
				t.Errorf("arr = %v", m)
			}
			if v, found := Resolve(newRoot, keypath.New("arr", tt.idx)); !found || v != "x" {
				t.Errorf("arr.%d = %v, %v; want x, true", tt.idx, v, found)
			}
		})
	}
}

func TestReplaceGrowsUpToGap(t *testing.T) {
	newRoot, _ := Replace([]any{"a"}, keypath.New(1+MaxSequenceGap), "z")
	seq, ok := newRoot.([]any)
	if !ok {
		t.Fatalf("root kind = %T, want sequence", newRoot)
	}
	if len(seq) != 2+MaxSequenceGap || seq[len(seq)-1] != "z" {
		t.Errorf("len = %d, last = %v", len(seq), seq[len(seq)-1])
	}
}

func TestReplaceKeyOnSequenceConvertsToMap(t *testing.T) {
	newRoot, _ := Replace([]any{"a", "b"}, keypath.New("name"), "n")
	m, ok := newRoot.(map[string]any)
	if !ok {
		t.Fatalf("root kind = %T, want map", newRoot)
	}
	if m["0"] != "a" || m["1"] != "b" || m["name"] != "n" {
		t.Errorf("m = %v", m)
	}
}

func TestReplaceThroughScalar(t *testing.T) {
	newRoot, _ := Replace(map[string]any{"a": 1}, keypath.New("a", "b"), 2)
	if v, _ := Resolve(newRoot, keypath.New("a", "b")); v != 2 {
		t.Errorf("a.b = %v, want 2", v)
	}
}

func TestReplaceRoot(t *testing.T) {
	old := sampleTree()
	next := map[string]any{"fresh": true}
	newRoot, changed := Replace(old, keypath.Root, next)
	if !changed || !Same(newRoot, next) {
		t.Fatal("empty path should replace the root wholesale")
	}
	if _, changed := Replace(old, keypath.Root, old); changed {
		t.Fatal("replacing the root with itself is a no-op")
	}
}

type tagged struct {
	Tags []string
}

type boxed struct {
	V any
}

func TestSame(t *testing.T) {
	m := map[string]any{"a": 1}
	s := []any{1, 2, 3}
	p := &tagged{}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "nil nil", a: nil, b: nil, want: true},
		{name: "nil vs value", a: nil, b: 0, want: false},
		{name: "equal ints", a: 1, b: 1, want: true},
		{name: "different types", a: 1, b: int64(1), want: false},
		{name: "same map", a: m, b: m, want: true},
		{name: "equal distinct maps", a: m, b: map[string]any{"a": 1}, want: false},
		{name: "same slice", a: s, b: s, want: true},
		{name: "resliced", a: s, b: s[:2], want: false},
		{name: "equal distinct slices", a: s, b: []any{1, 2, 3}, want: false},
		{name: "same pointer", a: p, b: p, want: true},
		{name: "distinct pointers", a: p, b: &tagged{}, want: false},
		{name: "non-comparable struct", a: tagged{Tags: []string{"x"}}, b: tagged{Tags: []string{"x"}}, want: true},
		{name: "comparable struct hiding a slice", a: boxed{V: []int{1}}, b: boxed{V: []int{1}}, want: true},
		{name: "strings", a: "x", b: "x", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Same(tt.a, tt.b); got != tt.want {
				t.Errorf("Same(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
