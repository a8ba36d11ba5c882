package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/fleetvault/internal/errors"
)

func TestEventType(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "two segments", input: "vehicle.unlock", shouldErr: false},
		{name: "three segments with underscore", input: "crypto.encrypt_object.batch", shouldErr: false},
		{name: "empty is left to Required", input: "", shouldErr: false},
		{name: "single segment", input: "unlock", shouldErr: true},
		{name: "upper case", input: "Vehicle.Unlock", shouldErr: true},
		{name: "trailing dot", input: "vehicle.", shouldErr: true},
		{name: "spaces", input: "vehicle .unlock", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EventType.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClassificationRules(t *testing.T) {
	tests := []struct {
		input    string
		anyErr   bool
		keyedErr bool
	}{
		{input: "PUBLIC", anyErr: false, keyedErr: true},
		{input: "internal", anyErr: false, keyedErr: false},
		{input: "CONFIDENTIAL", anyErr: false, keyedErr: false},
		{input: "Restricted", anyErr: false, keyedErr: false},
		{input: "SECRET", anyErr: true, keyedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.anyErr, Classification.Validate(tt.input) != nil)
			assert.Equal(t, tt.keyedErr, KeyedClassification.Validate(tt.input) != nil)
		})
	}
}

func TestBase64(t *testing.T) {
	assert.NoError(t, Base64.Validate("aGVsbG8="))
	assert.NoError(t, Base64.Validate(""))
	assert.Error(t, Base64.Validate("not base64!"))
	assert.Error(t, Base64.Validate(42))
}

func TestBase64MaxDecoded(t *testing.T) {
	rule := Base64MaxDecoded(5)

	assert.NoError(t, rule.Validate("aGVsbG8="))   // "hello"
	assert.Error(t, rule.Validate("aGVsbG8hIQ==")) // "hello!!"
	assert.Error(t, rule.Validate("aGVsbG8"))      // unpadded
	assert.NoError(t, Base64MaxDecoded(0).Validate("aGVsbG8hIQ=="))
}

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "no whitespace",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "leading whitespace",
			input:     " validstring",
			shouldErr: true,
		},
		{
			name:      "trailing whitespace",
			input:     "validstring ",
			shouldErr: true,
		},
		{
			name:      "both leading and trailing",
			input:     " validstring ",
			shouldErr: true,
		},
		{
			name:      "internal spaces allowed",
			input:     "valid string",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoWhitespace.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid string",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "only spaces",
			input:     "   ",
			shouldErr: true,
		},
		{
			name:      "only tabs",
			input:     "\t\t",
			shouldErr: true,
		},
		{
			name:      "only newlines",
			input:     "\n\n",
			shouldErr: true,
		},
		{
			name:      "mixed whitespace",
			input:     " \t\n ",
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotBlank.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error returns nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "wraps validation error",
			err:      assert.AnError,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapValidationError(tt.err)
			if tt.expected {
				assert.Error(t, result)
				assert.True(t, apperrors.Is(result, apperrors.ErrInvalidInput))
			} else {
				assert.NoError(t, result)
			}
		})
	}
}
