// Package errors defines the base error kinds every FleetVault domain wraps. Domains
// declare their own sentinels with Wrap; the HTTP layer and the CLI only look at the
// kind.
package errors

import (
	"errors"
	"fmt"
)

// Base error kinds.
var (
	// ErrNotFound: the event, key version or classification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the write collides with stored state, such as a duplicate audit
	// sequence or purging the active key version.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput: the caller sent something that can never succeed as sent.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable: a dependency (secret provider, KMS, database) could not serve
	// the request. Retrying may help.
	ErrUnavailable = errors.New("unavailable")

	// ErrIntegrity: stored data failed a cryptographic check.
	ErrIntegrity = errors.New("integrity violation")
)

// kinds is ordered from most to least specific. Integrity and unavailability win
// over the more generic kinds when an error wraps several.
var kinds = []error{ErrIntegrity, ErrUnavailable, ErrNotFound, ErrConflict, ErrInvalidInput}

// Kind returns the base kind err wraps, or nil for errors outside the taxonomy.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Wrap prefixes err with message, keeping it matchable with Is. Wrap(nil, ...) is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
