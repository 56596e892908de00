// Package normalize holds the contact normalization rules shared by the
// tracker client and the lifecycle service. The server applies them again on
// every request because it must not trust client-side normalization.
package normalize

import "strings"

// Email lowercases and trims the provided address.
func Email(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Phone strips everything but digits, so "(11) 98888-7777" and
// "11988887777" store identically.
func Phone(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
