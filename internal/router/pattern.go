package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned when a route pattern cannot be parsed.
var ErrInvalidPattern = errors.New("invalid route pattern")

// SegmentKind identifies how a pattern segment matches a path segment.
type SegmentKind int

// Segment kinds.
const (
	// SegmentLiteral matches one path segment exactly.
	SegmentLiteral SegmentKind = iota
	// SegmentNamed captures one path segment, after an optional literal prefix.
	SegmentNamed
	// SegmentWildcard captures every remaining path segment joined with "/".
	SegmentWildcard
)

// String returns the segment kind name.
func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentNamed:
		return "named"
	case SegmentWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Segment is one element of a parsed pattern.
type Segment struct {
	Kind SegmentKind
	// Value is the literal text for SegmentLiteral and the literal prefix
	// (possibly empty) for SegmentNamed.
	Value string
	// Name is the captured parameter name. Empty for literals and for the
	// anonymous wildcard.
	Name string
}

// Pattern is a parsed route pattern such as "/hls/:id/*path".
type Pattern struct {
	raw      string
	segments []Segment
	names    []string
}

// ParsePattern parses a route pattern. Segments starting with ':' (or
// containing ':' after a literal prefix, as in "info.:extension") capture
// one path segment; a segment starting with '*' captures the rest of the
// path and must be last. Parameter names must be unique within a pattern.
func ParsePattern(pattern string) (*Pattern, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w %q: must start with '/'", ErrInvalidPattern, pattern)
	}

	parts := splitPath(pattern)
	p := &Pattern{
		raw:      pattern,
		segments: make([]Segment, 0, len(parts)),
	}
	seen := make(map[string]bool, len(parts))

	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
		if seg.Kind == SegmentWildcard && i != len(parts)-1 {
			return nil, fmt.Errorf("%w %q: wildcard %q must be the last segment", ErrInvalidPattern, pattern, part)
		}
		if seg.Name != "" {
			if seen[seg.Name] {
				return nil, fmt.Errorf("%w %q: duplicate parameter %q", ErrInvalidPattern, pattern, seg.Name)
			}
			seen[seg.Name] = true
			p.names = append(p.names, seg.Name)
		}
		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(pattern string) *Pattern {
	p, err := ParsePattern(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	if strings.HasPrefix(part, "*") {
		name := part[1:]
		if strings.ContainsAny(name, ":*") {
			return Segment{}, fmt.Errorf("malformed wildcard %q", part)
		}
		return Segment{Kind: SegmentWildcard, Name: name}, nil
	}

	if strings.Contains(part, "*") {
		return Segment{}, fmt.Errorf("'*' is only allowed at the start of a segment in %q", part)
	}

	idx := strings.IndexByte(part, ':')
	if idx < 0 {
		return Segment{Kind: SegmentLiteral, Value: part}, nil
	}

	name := part[idx+1:]
	if name == "" {
		return Segment{}, fmt.Errorf("empty parameter name in %q", part)
	}
	if strings.Contains(name, ":") {
		return Segment{}, fmt.Errorf("more than one parameter in %q", part)
	}
	return Segment{Kind: SegmentNamed, Value: part[:idx], Name: name}, nil
}

// String returns the pattern as registered.
func (p *Pattern) String() string {
	return p.raw
}

// Segments returns the parsed segments.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// ParamNames returns the captured parameter names in pattern order.
func (p *Pattern) ParamNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// IsCatchAll reports whether the pattern is the bare anonymous wildcard "/*".
func (p *Pattern) IsCatchAll() bool {
	return len(p.segments) == 1 && p.segments[0].Kind == SegmentWildcard && p.segments[0].Name == ""
}

// Match matches pre-split path segments against the pattern. Params are
// only allocated on success.
func (p *Pattern) Match(segments []string) (Params, bool) {
	var params Params

	for i, seg := range p.segments {
		if seg.Kind == SegmentWildcard {
			rest := segments[i:]
			if seg.Name == "" {
				return ensureParams(params, 0), true
			}
			if len(rest) == 0 {
				return nil, false
			}
			params = ensureParams(params, len(p.names))
			params[seg.Name] = strings.Join(rest, "/")
			return params, true
		}

		if i >= len(segments) {
			return nil, false
		}

		switch seg.Kind {
		case SegmentLiteral:
			if segments[i] != seg.Value {
				return nil, false
			}
		case SegmentNamed:
			value, ok := strings.CutPrefix(segments[i], seg.Value)
			if !ok || value == "" {
				return nil, false
			}
			params = ensureParams(params, len(p.names))
			params[seg.Name] = value
		}
	}

	if len(segments) != len(p.segments) {
		return nil, false
	}
	return ensureParams(params, 0), true
}

func ensureParams(params Params, size int) Params {
	if params != nil {
		return params
	}
	return make(Params, size)
}

// splitPath splits a path on '/' and drops empty segments, so "/a//b/"
// and "/a/b" produce the same segments.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
