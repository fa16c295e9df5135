package utils

import (
	"regexp"
	"strings"
)

var (
	// Nigerian mobile numbers: 0803..., 234803... or +234803...
	nigerianPhoneRegex = regexp.MustCompile(`^(\+?234|0)[789][01]\d{8}$`)
	emailRegex         = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// IsValidNigerianPhone checks whether s is a valid Nigerian mobile number in
// local (0803...) or international (+234803...) form.
func IsValidNigerianPhone(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	return nigerianPhoneRegex.MatchString(s)
}

// NormalizeNigerianPhone converts a valid phone number to +234 form. Returns
// the input unchanged if it does not match the expected format.
func NormalizeNigerianPhone(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if !nigerianPhoneRegex.MatchString(s) {
		return s
	}
	switch {
	case strings.HasPrefix(s, "+234"):
		return s
	case strings.HasPrefix(s, "234"):
		return "+" + s
	default:
		return "+234" + s[1:]
	}
}

// IsValidEmail performs a syntactic email check.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}
