// Package normalize canonicalizes resolution comment text into stable cache
// keys. Identical boilerplate comments from different records must produce
// the same key regardless of casing or whitespace.
package normalize

import "strings"

// EmptyKey is the reserved sentinel for empty or whitespace-only comments.
// Records carrying it are never submitted to the model.
const EmptyKey = "\x00empty"

// Key returns the canonical cache key for a raw comment: trimmed,
// whitespace-collapsed, and case-folded. Key is a pure function of the
// comment text alone — the record's order id never participates.
func Key(comment string) string {
	fields := strings.Fields(comment)
	if len(fields) == 0 {
		return EmptyKey
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// IsEmpty reports whether key is the reserved empty-comment sentinel.
func IsEmpty(key string) bool {
	return key == EmptyKey
}
