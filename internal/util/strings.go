// Package util provides small shared helpers.
package util

// Truncate shortens s to maxLen runes, appending "..." when anything was
// cut. Rune-based, so multi-byte text truncates cleanly; it does not account
// for ANSI escape codes, so apply styling after truncating.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
