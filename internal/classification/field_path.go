// Package classification holds the static table that maps each data classification
// level to the field selectors whose values must be encrypted.
//
// Selectors are dot paths evaluated from the root of a record ("driver.ssn"). A "*"
// segment matches every member of an object. When a selector crosses an array, the
// rest of the selector applies to each element.
package classification

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/allisson/fleetvault/internal/errors"
)

// Wildcard matches every member of an object at its position.
const Wildcard = "*"

var (
	// ErrInvalidFieldPath indicates a malformed selector.
	ErrInvalidFieldPath = errors.Wrap(errors.ErrInvalidInput, "invalid field path")

	// ErrOverlappingSelector indicates two selectors that could address the same value.
	ErrOverlappingSelector = errors.Wrap(errors.ErrInvalidInput, "overlapping field selectors")

	// ErrInvalidTable indicates a classification table that cannot be loaded.
	ErrInvalidTable = errors.Wrap(errors.ErrInvalidInput, "invalid classification table")
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FieldPath is a parsed, validated selector.
type FieldPath struct {
	raw      string
	segments []string
}

// ParseFieldPath validates and parses a dot path.
func ParseFieldPath(s string) (FieldPath, error) {
	if s == "" {
		return FieldPath{}, fmt.Errorf("%w: empty path", ErrInvalidFieldPath)
	}
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if seg == Wildcard {
			continue
		}
		if !segmentPattern.MatchString(seg) {
			return FieldPath{}, fmt.Errorf("%w: bad segment %q in %q", ErrInvalidFieldPath, seg, s)
		}
	}
	return FieldPath{raw: s, segments: segments}, nil
}

// MustParseFieldPath is like ParseFieldPath but panics on error.
func MustParseFieldPath(s string) FieldPath {
	p, err := ParseFieldPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dot path.
func (p FieldPath) String() string {
	return p.raw
}

// Segments returns a copy of the path segments.
func (p FieldPath) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Overlaps reports whether p and other can address the same value or one can address
// an ancestor of the other.
func (p FieldPath) Overlaps(other FieldPath) bool {
	n := min(len(p.segments), len(other.segments))
	for i := 0; i < n; i++ {
		a, b := p.segments[i], other.segments[i]
		if a != b && a != Wildcard && b != Wildcard {
			return false
		}
	}
	return true
}

// Matches reports whether a concrete dot path is addressed by p.
func (p FieldPath) Matches(path string) bool {
	segments := strings.Split(path, ".")
	if len(segments) != len(p.segments) {
		return false
	}
	for i, seg := range segments {
		if p.segments[i] != Wildcard && p.segments[i] != seg {
			return false
		}
	}
	return true
}
