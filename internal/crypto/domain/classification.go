package domain

import (
	"fmt"
	"strings"
)

// Classification is the data classification level that decides which fields are
// encrypted and under which key. Levels are ordered: a higher value is more sensitive.
type Classification int

const (
	Public Classification = iota
	Internal
	Confidential
	Restricted
)

var classificationNames = [...]string{"PUBLIC", "INTERNAL", "CONFIDENTIAL", "RESTRICTED"}

// Classifications lists every level in ascending order of sensitivity.
func Classifications() []Classification {
	return []Classification{Public, Internal, Confidential, Restricted}
}

// KeyedClassifications lists the levels that own encryption keys. PUBLIC data is never
// encrypted and has no key.
func KeyedClassifications() []Classification {
	return []Classification{Internal, Confidential, Restricted}
}

// String returns the upper-case wire name of the classification.
func (c Classification) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Classification(%d)", int(c))
	}
	return classificationNames[c]
}

// Valid reports whether c is one of the defined levels.
func (c Classification) Valid() bool {
	return c >= Public && c <= Restricted
}

// Keyed reports whether data at this level is encrypted.
func (c Classification) Keyed() bool {
	return c > Public && c.Valid()
}

// ParseClassification parses a classification name case-insensitively.
func ParseClassification(s string) (Classification, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range classificationNames {
		if n == name {
			return Classification(i), nil
		}
	}
	return Public, fmt.Errorf("%w: %q", ErrInvalidClassification, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClassification, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
