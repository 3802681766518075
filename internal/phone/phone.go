// Package phone normalizes raw phone input into the canonical dialable
// form used everywhere else in the system (digits only, 254 prefix).
package phone

import "strings"

// CountryCode is the dialing prefix every canonical number starts with.
const CountryCode = "254"

// Normalize cleans a raw phone string into canonical form. It strips
// every non-digit character, then applies the trunk rules: numbers
// already carrying the country code are kept, a leading trunk zero is
// dropped before prefixing, anything else is prefixed directly.
// Returns ok=false when nothing dialable is left after cleaning.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return "", false
	}

	if strings.HasPrefix(cleaned, CountryCode) {
		return cleaned, true
	}

	if strings.HasPrefix(cleaned, "0") {
		cleaned = cleaned[1:]
	}
	if cleaned == "" {
		return "", false
	}
	return CountryCode + cleaned, true
}
