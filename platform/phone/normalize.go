// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ChatSuffix is the WAHA chat id domain for individual contacts.
const ChatSuffix = "@c.us"

// MatchSuffixLen is how many trailing digits shortlist stored phones before
// their canonical form is compared.
const MatchSuffixLen = 8

// NormalizeE164 formats a phone number to E.164 using region as the default
// region for numbers without a country code. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Digits strips every non-digit character.
func Digits(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CanonicalDigits returns the international digits (no '+') for a lead phone.
// Numbers that parse as valid for region are formatted through libphonenumber;
// anything else falls back to stripping non-digits and prefixing countryCode
// when the length looks like a national number (area code + subscriber).
func CanonicalDigits(input, region, countryCode string) string {
	digits := Digits(input)
	if digits == "" {
		return ""
	}

	if region != "" {
		if e164 := NormalizeE164(input, region); strings.HasPrefix(e164, "+") {
			return strings.TrimPrefix(e164, "+")
		}
	}

	if isNationalLength(digits) && countryCode != "" {
		return countryCode + digits
	}
	return digits
}

// ChatAddress builds the WAHA chat id for a lead phone.
func ChatAddress(input, region, countryCode string) string {
	digits := CanonicalDigits(input, region, countryCode)
	if digits == "" {
		return ""
	}
	return digits + ChatSuffix
}

// DigitsFromChatAddress reduces a WAHA chat id ("5511987654321@c.us") to its phone digits.
func DigitsFromChatAddress(address string) string {
	if at := strings.IndexByte(address, '@'); at >= 0 {
		address = address[:at]
	}
	return Digits(address)
}

// CanonicalChatAddress rewrites a gateway chat id ("...@s.whatsapp.net",
// "...@c.us") to the "<digits>@c.us" form used for outbound sends.
// Gateway ids already carry the international number, so no country code is added.
func CanonicalChatAddress(address string) string {
	digits := DigitsFromChatAddress(address)
	if digits == "" {
		return ""
	}
	return digits + ChatSuffix
}

// Suffix returns the last MatchSuffixLen digits of a phone.
func Suffix(input string) string {
	digits := Digits(input)
	if len(digits) > MatchSuffixLen {
		return digits[len(digits)-MatchSuffixLen:]
	}
	return digits
}

// SameNumber reports whether a stored lead phone canonicalises to the
// international digits seen on the gateway.
func SameNumber(stored, digits, region, countryCode string) bool {
	if digits == "" {
		return false
	}
	return CanonicalDigits(stored, region, countryCode) == digits
}

func isNationalLength(digits string) bool {
	return len(digits) == 10 || len(digits) == 11
}
