package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

var (
	// eventTypeRegex accepts dotted lower-case names such as "vehicle.unlock".
	eventTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// EventType validates a dotted audit event type name.
var EventType = validation.NewStringRuleWithError(
	func(s string) bool {
		return eventTypeRegex.MatchString(s)
	},
	validation.NewError("validation_event_type", "must be a dotted lower-case name such as vehicle.unlock"),
)

// Classification validates a classification name. PUBLIC is accepted.
var Classification = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := cryptoDomain.ParseClassification(s)
		return err == nil
	},
	validation.NewError("validation_classification", "must be one of PUBLIC, INTERNAL, CONFIDENTIAL, RESTRICTED"),
)

// KeyedClassification validates a classification name that owns encryption keys.
var KeyedClassification = validation.NewStringRuleWithError(
	func(s string) bool {
		c, err := cryptoDomain.ParseClassification(s)
		return err == nil && c.Keyed()
	},
	validation.NewError("validation_keyed_classification", "must be one of INTERNAL, CONFIDENTIAL, RESTRICTED"),
)
