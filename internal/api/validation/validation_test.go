package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "counsel@mail.lawfirm.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dash", "user-name@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidEmail(tt.email)
			assert.Equal(t, tt.valid, result, "Email: %s", tt.email)
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.True(t, IsValidUUID("123E4567-E89B-12D3-A456-426614174000"))
	assert.False(t, IsValidUUID("123e4567e89b12d3a456426614174000"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestParseOptionalUUID(t *testing.T) {
	id, ok := ParseOptionalUUID("")
	assert.True(t, ok)
	assert.Nil(t, id)

	id, ok = ParseOptionalUUID(" 123e4567-e89b-12d3-a456-426614174000 ")
	assert.True(t, ok)
	if assert.NotNil(t, id) {
		assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", id.String())
	}

	_, ok = ParseOptionalUUID("{123e4567-e89b-12d3-a456-426614174000}")
	assert.False(t, ok)
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "Garcia & Partners", true},
		{"unicode", "Despacho Núñez", true},
		{"blank", "   ", false},
		{"control", "Firm\x07", false},
		{"newline", "Firm\nName", false},
		{"max_length", strings.Repeat("é", 10), true},
		{"too_long", strings.Repeat("é", 11), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidName(tt.input, 10))
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		errMsg   string
	}{
		{"valid_strong", "MyP@ssw0rd!", true, ""},
		{"valid_complex", "Tr0ng!Pass#2024", true, ""},
		{"too_short", "Pass1!", false, "at least 8 characters"},
		{"too_long", "MyP@ss" + strings.Repeat("a", 125), false, "at most 128 characters"},
		{"no_uppercase", "myp@ssw0rd!", false, "uppercase letter"},
		{"no_lowercase", "MYP@SSW0RD!", false, "lowercase letter"},
		{"no_number", "MyPassword!", false, "number"},
		{"no_special", "MyPassword1", false, "special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := IsValidPassword(tt.password)
			assert.Equal(t, tt.valid, valid, "Password: %s", tt.password)
			if !valid {
				assert.Contains(t, msg, tt.errMsg)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean_text", "Hello World", "Hello World"},
		{"null_bytes", "Hello\x00World", "HelloWorld"},
		{"control_chars", "Hello\x01\x02World", "HelloWorld"},
		{"keep_newlines", "Hello\nWorld", "Hello\nWorld"},
		{"keep_tabs", "Hello\tWorld", "Hello\tWorld"},
		{"keep_carriage_return", "Hello\rWorld", "Hello\rWorld"},
		{"mixed", "Hello\x00\x01\nWorld\t!", "Hello\nWorld\t!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter_than_max", "Hello", 10, "Hello"},
		{"equal_to_max", "Hello", 5, "Hello"},
		{"longer_than_max", "Hello World", 5, "Hello"},
		{"multibyte", "Señoría", 4, "Seño"},
		{"empty", "", 10, ""},
		{"zero_max", "Hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.maxLen)
			assert.Equal(t, tt.expected, result)
		})
	}
}
