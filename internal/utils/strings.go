package utils

import "strings"

// MaxSlugLength is the longest slug a portal may carry
const MaxSlugLength = 64

// Slugify lowercases s and collapses every run of characters outside [a-z0-9]
// into a single dash. Leading and trailing dashes are dropped.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ValidSlug reports whether s is a non-empty slug of lowercase letters, digits and dashes
func ValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// Truncate cuts s to at most n bytes and drops a trailing dash left by the cut
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
