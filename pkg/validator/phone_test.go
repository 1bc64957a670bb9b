package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"9876543210", "9876543210", "Standard format"},
		{"98765 43210", "9876543210", "With space"},
		{"98765-43210", "9876543210", "With dash"},
		{"(98765) 43210", "9876543210", "With parentheses"},
		{"6123456789", "6123456789", "Prefix 6"},
		{"7123456789", "7123456789", "Prefix 7"},
		{"8123456789", "8123456789", "Prefix 8"},
		{"919876543210", "9876543210", "With country code"},
		{"+91 98765 43210", "9876543210", "With +91 and spaces"},
		{"09876543210", "9876543210", "With trunk zero"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123", ErrInvalidLength, "Too short"},
		{"98765432101", ErrInvalidLength, "Too long"},
		{"5876543210", ErrInvalidPrefix, "Invalid prefix 5"},
		{"1234567890", ErrInvalidPrefix, "Invalid prefix 1"},
		{"987654321a", ErrInvalidFormat, "Contains letters"},
		{"98765 4321!", ErrInvalidFormat, "Contains special characters"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
		name     string
	}{
		{"9876543210", "9876543210", "Already clean"},
		{"98765 43210", "9876543210", "With space"},
		{"98765-43210", "9876543210", "With dash"},
		{"+919876543210", "9876543210", "With country code and plus"},
		{"919876543210", "9876543210", "With country code"},
		{"09876543210", "9876543210", "With trunk zero"},
		{"91 98765 43210", "9876543210", "Country code and spaces"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, validator.Sanitize(tc.input))
		})
	}
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	result, err := validator.Format("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "98765 43210", result)

	result, err = validator.Format("+91 6123456789")
	require.NoError(t, err)
	assert.Equal(t, "61234 56789", result)

	_, err = validator.Format("invalid")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("9876543210"))
	assert.True(t, validator.IsValid("+91 98765 43210"))
	assert.False(t, validator.IsValid(""))
	assert.False(t, validator.IsValid("invalid"))
	assert.False(t, validator.IsValid("5876543210"))
}

func BenchmarkValidate(b *testing.B) {
	validator := NewPhoneValidator()
	phone := "9876543210"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = validator.Validate(phone)
	}
}
