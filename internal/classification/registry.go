package classification

import (
	"fmt"
	"slices"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// Registry is an immutable, versioned classification table. Safe for concurrent use.
type Registry struct {
	version string
	fields  map[cryptoDomain.Classification][]FieldPath
}

// NewRegistry validates table and builds a registry. Every selector must parse,
// PUBLIC must be empty, and no two selectors anywhere in the table may overlap.
func NewRegistry(version string, table map[cryptoDomain.Classification][]string) (*Registry, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidTable)
	}

	r := &Registry{version: version, fields: make(map[cryptoDomain.Classification][]FieldPath)}

	type owned struct {
		path FieldPath
		c    cryptoDomain.Classification
	}
	var all []owned

	for _, c := range cryptoDomain.Classifications() {
		raw := table[c]
		if c == cryptoDomain.Public {
			if len(raw) > 0 {
				return nil, fmt.Errorf("%w: PUBLIC cannot list encrypted fields", ErrInvalidTable)
			}
			continue
		}
		for _, s := range raw {
			p, err := ParseFieldPath(s)
			if err != nil {
				return nil, err
			}
			for _, o := range all {
				if o.path.Overlaps(p) {
					return nil, fmt.Errorf("%w: %s (%s) and %s (%s)", ErrOverlappingSelector, o.path, o.c, p, c)
				}
			}
			all = append(all, owned{path: p, c: c})
			r.fields[c] = append(r.fields[c], p)
		}
	}

	for c := range table {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidClassification, c)
		}
	}
	return r, nil
}

// Version identifies the table revision.
func (r *Registry) Version() string {
	return r.version
}

// Fields returns the selectors of a classification. PUBLIC always yields none.
func (r *Registry) Fields(c cryptoDomain.Classification) []FieldPath {
	return slices.Clone(r.fields[c])
}

// ClassificationOf returns the classification whose selectors address a concrete
// dot path, or PUBLIC and false when no selector does.
func (r *Registry) ClassificationOf(path string) (cryptoDomain.Classification, bool) {
	for _, c := range cryptoDomain.KeyedClassifications() {
		for _, p := range r.fields[c] {
			if p.Matches(path) {
				return c, true
			}
		}
	}
	return cryptoDomain.Public, false
}

// Table returns the registry contents in the form accepted by NewRegistry.
func (r *Registry) Table() map[cryptoDomain.Classification][]string {
	table := make(map[cryptoDomain.Classification][]string, len(r.fields))
	for c, paths := range r.fields {
		for _, p := range paths {
			table[c] = append(table[c], p.String())
		}
	}
	return table
}
