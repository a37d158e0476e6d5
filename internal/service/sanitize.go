package service

import "strings"

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// splitExpiry turns "MM/YY" (or "MM/YYYY") into month and 4-digit year,
// assuming the 2000s for 2-digit years.
func splitExpiry(expiry string) (month, year string, ok bool) {
	digits := DigitsOnly(expiry)
	switch len(digits) {
	case 4:
		return digits[:2], "20" + digits[2:], true
	case 6:
		return digits[:2], digits[2:], true
	default:
		return "", "", false
	}
}

// lastFour returns the last four digits of a card number.
func lastFour(number string) string {
	digits := DigitsOnly(number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
