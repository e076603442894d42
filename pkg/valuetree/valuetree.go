// Package valuetree resolves and replaces values inside nested value trees
// with persistent-structure semantics.
//
// A value tree is made of map[string]any containers, []any sequences and
// opaque leaves (anything else). Replace never mutates its input: every
// container along the written path is shallow-copied, and every subtree off
// that path is shared by reference with the previous version.
package valuetree

import (
	"reflect"
	"strconv"

	"github.com/vango-dev/reactobj/pkg/keypath"
)

// Kind classifies a node of a value tree.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindMap
	KindSequence
)

// KindOf reports the container kind of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case map[string]any:
		return KindMap
	case []any:
		return KindSequence
	default:
		return KindLeaf
	}
}

// IsContainer reports whether v is a map or sequence container.
func IsContainer(v any) bool {
	return KindOf(v) != KindLeaf
}

// Child returns the direct child of container v addressed by seg.
// It reports false when v is not a container or the child does not exist.
func Child(v any, seg keypath.Segment) (any, bool) {
	switch c := v.(type) {
	case map[string]any:
		child, ok := c[seg.Canonical()]
		return child, ok
	case []any:
		i, ok := seg.AsIndex()
		if !ok || i >= len(c) {
			return nil, false
		}
		return c[i], true
	default:
		return nil, false
	}
}

// Resolve walks root along path. The empty path resolves to root itself.
// found is false if any segment along the way is missing.
func Resolve(root any, path keypath.Path) (value any, found bool) {
	cur := root
	for i := 0; i < path.Len(); i++ {
		next, ok := Child(cur, path.At(i))
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Replace returns a new root with value stored at path.
//
// When every segment of path already exists and the current value is Same as
// value, Replace returns root unchanged with changed=false. The empty path
// replaces the root wholesale.
func Replace(root any, path keypath.Path, value any) (newRoot any, changed bool) {
	return ReplaceFunc(root, path, value, Same)
}

// ReplaceFunc is like Replace but uses same for the no-op check.
func ReplaceFunc(root any, path keypath.Path, value any, same func(a, b any) bool) (newRoot any, changed bool) {
	if current, ok := Resolve(root, path); ok && same(current, value) {
		return root, false
	}
	if path.IsRoot() {
		return value, true
	}
	return rebuild(root, path, 0, value), true
}

// MaxSequenceGap is the largest number of nil slots a write past the end of
// a sequence may add. Writing further out converts the sequence to a map
// keyed by decimal indices.
const MaxSequenceGap = 1024

// rebuild returns a fresh copy of node with path[i:] set to value.
// Only the spine is copied; untouched siblings are reused by reference.
func rebuild(node any, path keypath.Path, i int, value any) any {
	if i == path.Len() {
		return value
	}
	seg := path.At(i)

	switch c := node.(type) {
	case []any:
		if idx, ok := seg.AsIndex(); ok && idx-len(c) <= MaxSequenceGap {
			size := len(c)
			if idx >= size {
				size = idx + 1
			}
			out := make([]any, size)
			copy(out, c)
			var old any
			if idx < len(c) {
				old = c[idx]
			}
			out[idx] = rebuild(old, path, i+1, value)
			return out
		}
		// A key that is not an index, or an index too far past the end,
		// turns the sequence into a map.
		out := make(map[string]any, len(c)+1)
		for j, v := range c {
			out[strconv.Itoa(j)] = v
		}
		out[seg.Canonical()] = rebuild(nil, path, i+1, value)
		return out
	case map[string]any:
		key := seg.Canonical()
		out := make(map[string]any, len(c)+1)
		for k, v := range c {
			if k != key {
				out[k] = v
			}
		}
		out[key] = rebuild(c[key], path, i+1, value)
		return out
	default:
		// Missing or leaf values are replaced by a map.
		return map[string]any{seg.Canonical(): rebuild(nil, path, i+1, value)}
	}
}

// Same reports whether a and b are the same value.
//
// Containers compare by reference: two maps are the same only if they are the
// same map, two sequences only if they share backing array, length and
// capacity. Comparable values compare with ==. Other non-comparable values
// (structs holding slices, for example) fall back to reflect.DeepEqual.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	switch ta.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return va.Len() == vb.Len() && va.Cap() == vb.Cap() && va.Pointer() == vb.Pointer()
	case reflect.Func:
		return false
	}

	if ta.Comparable() {
		return comparableEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// comparableEqual compares with ==, falling back to reflect.DeepEqual when an
// interface field deep inside a comparable type holds a non-comparable value.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
