package domain

import "strings"

// Address normalization policy. The prefix rule is deliberately narrow:
// a bare 10-digit national number gets the default country code prepended,
// anything else is passed through as stripped. Not a general E.164
// normalizer.
const (
	defaultCountryPrefix = "91"
	nationalNumberLen    = 10
)

// NormalizeAddress strips everything except digits and applies the default
// country prefix to bare national numbers. Returns ErrInvalidAddress when
// nothing is left after stripping.
func NormalizeAddress(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidAddress
	}
	if len(digits) == nationalNumberLen {
		digits = defaultCountryPrefix + digits
	}
	return digits, nil
}
