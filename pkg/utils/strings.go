package utils

import "unicode/utf8"

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Excerpt shortens s to at most max bytes on a rune boundary, appending
// "..." when cut. Used for notification previews.
func Excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, max)
	size := 0
	for _, r := range runes {
		size += utf8.RuneLen(r)
		if size > max {
			break
		}
		out = append(out, r)
	}
	return string(out) + "..."
}
