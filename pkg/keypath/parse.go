package keypath

import (
	"fmt"
	"strings"
)

// Parse parses the dotted form produced by Path.String.
//
// Segments are separated by '.'; a backslash escapes a literal '.' or '\',
// and the sequence `\e` denotes an empty key. Segments consisting only of
// decimal digits (without a leading zero) become index segments. The empty
// string is the root.
//
//	Parse("users.0.name")  // users, 0, name
//	Parse(`a\.b.c`)        // "a.b", c
func Parse(s string) (Path, error) {
	if s == "" {
		return Root, nil
	}

	var (
		segs    []Segment
		cur     strings.Builder
		escaped bool
		empty   bool
	)
	flush := func() {
		k := cur.String()
		cur.Reset()
		if empty {
			segs = append(segs, Key(""))
			empty = false
			return
		}
		seg := Key(k)
		if n, ok := seg.AsIndex(); ok {
			seg = Index(n)
		}
		segs = append(segs, seg)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			switch c {
			case '.', '\\':
				cur.WriteByte(c)
			case 'e':
				if cur.Len() != 0 {
					return Root, fmt.Errorf("%w: misplaced \\e at offset %d in %q", ErrInvalidArgument, i, s)
				}
				empty = true
			default:
				return Root, fmt.Errorf("%w: unknown escape \\%c at offset %d in %q", ErrInvalidArgument, c, i, s)
			}
			continue
		}
		switch c {
		case '\\':
			if empty {
				return Root, fmt.Errorf("%w: misplaced \\e in %q", ErrInvalidArgument, s)
			}
			escaped = true
		case '.':
			if cur.Len() == 0 && !empty {
				return Root, fmt.Errorf("%w: empty segment at offset %d in %q", ErrInvalidArgument, i, s)
			}
			flush()
		default:
			if empty {
				return Root, fmt.Errorf("%w: misplaced \\e in %q", ErrInvalidArgument, s)
			}
			cur.WriteByte(c)
		}
	}
	if escaped {
		return Root, fmt.Errorf("%w: trailing backslash in %q", ErrInvalidArgument, s)
	}
	if cur.Len() == 0 && !empty {
		return Root, fmt.Errorf("%w: empty trailing segment in %q", ErrInvalidArgument, s)
	}
	flush()
	return Path{segs: segs}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level path constants.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
