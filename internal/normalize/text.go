// Package normalize holds the string canonicalization shared by lookups and identifiers.
package normalize

import "strings"

// Lower trims and lowercases value.
func Lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Email canonicalizes an address for hashing and comparison. Mixed-case local parts are
// folded too; providers such as Gravatar do the same.
func Email(value string) string {
	return Lower(strings.TrimPrefix(strings.TrimSpace(value), "mailto:"))
}

// Key turns a label into a lowercase lookup key: runs of spaces, dashes and dots collapse to
// a single underscore.
func Key(value string) string {
	var b strings.Builder
	sep := false
	for _, r := range Lower(value) {
		switch r {
		case ' ', '-', '.', '_', '\t':
			sep = b.Len() > 0
			continue
		}
		if sep {
			b.WriteByte('_')
			sep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
