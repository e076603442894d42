package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidArgument is returned when a key path argument is malformed.
var ErrInvalidArgument = errors.New("reactobj: invalid argument")

// SegmentKind distinguishes string keys from integer indices.
type SegmentKind uint8

const (
	KindKey SegmentKind = iota + 1
	KindIndex
)

// String returns a human-readable name for the segment kind.
func (k SegmentKind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Segment is a single step in a Path.
// The zero Segment is not valid; build segments with Key or Index.
type Segment struct {
	kind  SegmentKind
	key   string
	index int
}

// Key returns a string key segment.
func Key(k string) Segment {
	return Segment{kind: KindKey, key: k}
}

// Index returns an integer index segment. Negative indices are invalid and
// rejected by From and New.
func Index(i int) Segment {
	return Segment{kind: KindIndex, index: i}
}

// Kind reports whether the segment is a key or an index.
func (s Segment) Kind() SegmentKind {
	return s.kind
}

// IsIndex reports whether the segment was built as an integer index.
func (s Segment) IsIndex() bool {
	return s.kind == KindIndex
}

// Canonical returns the canonical string form of the segment.
// Segments with equal canonical forms address the same location.
func (s Segment) Canonical() string {
	if s.kind == KindIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// AsIndex returns the segment as a sequence index.
// Key segments qualify when their text is a non-negative decimal integer.
func (s Segment) AsIndex() (int, bool) {
	if s.kind == KindIndex {
		return s.index, s.index >= 0
	}
	if s.key == "" {
		return 0, false
	}
	for i := 0; i < len(s.key); i++ {
		if s.key[i] < '0' || s.key[i] > '9' {
			return 0, false
		}
	}
	// Reject leading zeros so "01" and "1" stay distinct keys.
	if len(s.key) > 1 && s.key[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(s.key)
	if err != nil {
		return 0, false
	}
	return n, true
}

// String implements fmt.Stringer.
func (s Segment) String() string {
	return s.Canonical()
}

// Path is an immutable sequence of segments addressing a location in a value
// tree. The zero Path is the root.
type Path struct {
	segs []Segment
}

// Root is the empty path.
var Root = Path{}

// New builds a Path from segments given as string, int or Segment values.
// It panics on invalid input; use From for untrusted input.
func New(segs ...any) Path {
	p, err := fromSlice(segs)
	if err != nil {
		panic(err)
	}
	return p
}

// Of builds a Path from already constructed segments.
func Of(segs ...Segment) Path {
	if len(segs) == 0 {
		return Root
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return Path{segs: out}
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segs)
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return len(p.segs) == 0
}

// At returns the i-th segment.
func (p Path) At(i int) Segment {
	return p.segs[i]
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segs))
	copy(out, p.segs)
	return out
}

// Last returns the final segment. It panics on the root path.
func (p Path) Last() Segment {
	return p.segs[len(p.segs)-1]
}

// Parent returns the path without its final segment.
// The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segs) <= 1 {
		return Root
	}
	return Path{segs: p.segs[:len(p.segs)-1 : len(p.segs)-1]}
}

// Slice returns the sub-path of segments [from, len).
func (p Path) Slice(from int) Path {
	if from >= len(p.segs) {
		return Root
	}
	return Path{segs: p.segs[from:len(p.segs):len(p.segs)]}
}

// Append returns a new path with the given segments appended.
// The receiver is never modified.
func (p Path) Append(segs ...Segment) Path {
	if len(segs) == 0 {
		return p
	}
	out := make([]Segment, 0, len(p.segs)+len(segs))
	out = append(out, p.segs...)
	out = append(out, segs...)
	return Path{segs: out}
}

// Join returns p followed by all segments of q.
func (p Path) Join(q Path) Path {
	return p.Append(q.segs...)
}

// HasPrefix reports whether q is a prefix of p (by canonical segment).
func (p Path) HasPrefix(q Path) bool {
	if len(q.segs) > len(p.segs) {
		return false
	}
	for i, s := range q.segs {
		if s.Canonical() != p.segs[i].Canonical() {
			return false
		}
	}
	return true
}

// Equal reports whether p and q address the same location.
func (p Path) Equal(q Path) bool {
	return len(p.segs) == len(q.segs) && p.HasPrefix(q)
}

// Key returns a canonical, collision-free string identity for the path.
// Used for deduplication; not meant for display.
func (p Path) Key() string {
	if len(p.segs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range p.segs {
		c := s.Canonical()
		b.WriteString(strconv.Itoa(len(c)))
		b.WriteByte(':')
		b.WriteString(c)
	}
	return b.String()
}

// String returns the dotted form of the path. The root renders as "".
// Segments containing dots or backslashes are escaped so Parse round-trips.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		c := s.Canonical()
		if s.kind == KindKey && c == "" {
			b.WriteString(`\e`)
			continue
		}
		for j := 0; j < len(c); j++ {
			if c[j] == '.' || c[j] == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(c[j])
		}
	}
	return b.String()
}

// Values returns the segments as plain values (string or int), the shape
// accepted by From.
func (p Path) Values() []any {
	out := make([]any, len(p.segs))
	for i, s := range p.segs {
		if s.kind == KindIndex {
			out[i] = s.index
		} else {
			out[i] = s.key
		}
	}
	return out
}

// From validates a loosely typed key path.
//
// Accepted forms: nil (the root), a Path, a Segment, a string (a single key
// segment), any integer type (a single index segment), or a slice of those
// scalars ([]any, []string, []int, []Segment). Anything else, and negative
// indices, yield an error wrapping ErrInvalidArgument.
func From(v any) (Path, error) {
	switch t := v.(type) {
	case nil:
		return Root, nil
	case Path:
		return t, nil
	case *Path:
		if t == nil {
			return Root, nil
		}
		return *t, nil
	case Segment:
		if err := validSegment(t); err != nil {
			return Root, err
		}
		return Path{segs: []Segment{t}}, nil
	case []Segment:
		for _, s := range t {
			if err := validSegment(s); err != nil {
				return Root, err
			}
		}
		return Of(t...), nil
	case []string:
		segs := make([]Segment, len(t))
		for i, k := range t {
			segs[i] = Key(k)
		}
		return Path{segs: segs}, nil
	case []int:
		segs := make([]Segment, len(t))
		for i, n := range t {
			if n < 0 {
				return Root, fmt.Errorf("%w: negative index %d in key path", ErrInvalidArgument, n)
			}
			segs[i] = Index(n)
		}
		return Path{segs: segs}, nil
	case []any:
		return fromSlice(t)
	}
	seg, err := segmentOf(v)
	if err != nil {
		return Root, err
	}
	return Path{segs: []Segment{seg}}, nil
}

func fromSlice(vals []any) (Path, error) {
	if len(vals) == 0 {
		return Root, nil
	}
	segs := make([]Segment, len(vals))
	for i, v := range vals {
		seg, err := segmentOf(v)
		if err != nil {
			return Root, fmt.Errorf("segment %d: %w", i, err)
		}
		segs[i] = seg
	}
	return Path{segs: segs}, nil
}

func segmentOf(v any) (Segment, error) {
	var n int64
	switch t := v.(type) {
	case Segment:
		return t, validSegment(t)
	case string:
		return Key(t), nil
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		n = int64(t)
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		if t > uint64(maxInt) {
			return Segment{}, fmt.Errorf("%w: index %d out of range", ErrInvalidArgument, t)
		}
		n = int64(t)
	case float64:
		// encoding/json decodes every number as float64.
		if t != float64(int64(t)) {
			return Segment{}, fmt.Errorf("%w: non-integer index %v", ErrInvalidArgument, t)
		}
		n = int64(t)
	default:
		return Segment{}, fmt.Errorf("%w: unsupported key path segment of type %T", ErrInvalidArgument, v)
	}
	if n < 0 {
		return Segment{}, fmt.Errorf("%w: negative index %d in key path", ErrInvalidArgument, n)
	}
	if n > int64(maxInt) {
		return Segment{}, fmt.Errorf("%w: index %d out of range", ErrInvalidArgument, n)
	}
	return Index(int(n)), nil
}

const maxInt = int(^uint(0) >> 1)

func validSegment(s Segment) error {
	switch s.kind {
	case KindKey:
		return nil
	case KindIndex:
		if s.index < 0 {
			return fmt.Errorf("%w: negative index %d in key path", ErrInvalidArgument, s.index)
		}
		return nil
	default:
		return fmt.Errorf("%w: zero segment in key path", ErrInvalidArgument)
	}
}
