package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidNigerianPhone(t *testing.T) {
	valid := []string{
		"08012345678",
		"07098765432",
		"09112345678",
		"2348012345678",
		"+2348012345678",
		"+234 801 234 5678",
	}
	for _, phone := range valid {
		assert.True(t, IsValidNigerianPhone(phone), phone)
	}

	invalid := []string{
		"",
		"12345",
		"0601234567",    // no 06 mobile prefix
		"080123456789",  // too long
		"0801234567",    // too short
		"+447812345678", // not Nigerian
		"not-a-number",
	}
	for _, phone := range invalid {
		assert.False(t, IsValidNigerianPhone(phone), phone)
	}
}

func TestNormalizeNigerianPhone(t *testing.T) {
	assert.Equal(t, "+2348012345678", NormalizeNigerianPhone("08012345678"))
	assert.Equal(t, "+2348012345678", NormalizeNigerianPhone("2348012345678"))
	assert.Equal(t, "+2348012345678", NormalizeNigerianPhone("+2348012345678"))
	assert.Equal(t, "+2348012345678", NormalizeNigerianPhone("+234 801 234 5678"))

	// Unrecognized input passes through unchanged.
	assert.Equal(t, "12345", NormalizeNigerianPhone("12345"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("adaeze@example.com"))
	assert.True(t, IsValidEmail("a.b+tag@sub.example.co"))
	assert.False(t, IsValidEmail("adaeze@"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail("plain"))
}
