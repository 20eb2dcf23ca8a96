// Package email holds small helpers for comparing and normalizing email
// addresses. Purchaser email matching is case-insensitive across the service,
// so every comparison must go through Equal.
package email

import "strings"

// Normalize lowercases and trims an address for comparison and storage.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Equal reports whether two addresses refer to the same mailbox for the
// purposes of purchaser matching. Comparison is case-insensitive; empty
// addresses never match anything.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}
