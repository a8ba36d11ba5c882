package classification

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// tableFile is the YAML shape of a classification table:
//
//	version: fleet-2026.2
//	classifications:
//	  CONFIDENTIAL:
//	    - driver.ssn
//	  RESTRICTED:
//	    - payment.cardNumber
type tableFile struct {
	Version         string              `yaml:"version"`
	Classifications map[string][]string `yaml:"classifications"`
}

// Parse builds a registry from YAML. Unknown top-level keys are rejected.
func Parse(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file tableFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	table := make(map[cryptoDomain.Classification][]string, len(file.Classifications))
	for name, paths := range file.Classifications {
		c, err := cryptoDomain.ParseClassification(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
		}
		if _, dup := table[c]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidTable, c)
		}
		table[c] = paths
	}
	return NewRegistry(file.Version, table)
}

// LoadFile reads a YAML table from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification table: %w", err)
	}
	return Parse(data)
}

// Load returns the table at path, or the compiled-in default when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
