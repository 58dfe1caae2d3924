// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Digits strips every non-digit rune from the input.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize produces the canonical storage form of a phone number:
// all non-digits stripped, and a leading country code "1" prepended when
// the remainder is a bare 10-digit national number. Inputs that do not
// reduce to 10 digits are returned digit-stripped as-is so that contact
// matching can still suffix-compare them.
func Normalize(input string) string {
	digits := Digits(input)
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// E164 formats a phone number to E.164 for outbound senders. If parsing
// fails or the number is invalid, it falls back to "+" plus the
// normalized digits so delivery is still attempted.
func E164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	digits := Normalize(trimmed)
	if digits == "" {
		return trimmed
	}
	return "+" + digits
}

// Last10 returns the trailing 10 digits of a number, or all of its digits
// when fewer than 10 are present.
func Last10(input string) string {
	digits := Digits(input)
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// Same reports whether two inputs refer to the same line. Comparison is a
// suffix match on the last 10 digits to tolerate country-code and
// formatting drift between providers.
func Same(a, b string) bool {
	la, lb := Last10(a), Last10(b)
	if la == "" || lb == "" {
		return false
	}
	return la == lb
}
