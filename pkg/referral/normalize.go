package referral

import (
	"strings"
	"unicode"
)

// NormalizeCode canonicalizes a code for lookup and comparison: surrounding
// whitespace stripped, uppercased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail canonicalizes an email for comparison: surrounding whitespace
// stripped, lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// firstNameFragment extracts the letters-only, uppercased first name from a
// full name, for embedding in a code. Falls back to "FRIEND" when the name
// yields nothing usable.
func firstNameFragment(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return "FRIEND"
	}

	var b strings.Builder
	for _, r := range fields[0] {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() >= 10 {
			break
		}
	}
	if b.Len() == 0 {
		return "FRIEND"
	}
	return b.String()
}
