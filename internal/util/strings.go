// Package util holds small helpers shared by the CLI output layers.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString shortens s to maxLen runes, appending "..." when cut.
// It is rune-based and ignores ANSI escapes and wide characters; use
// TruncateANSI for styled terminal output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI shortens s to maxWidth visual columns, appending "..."
// when cut. Escape sequences are preserved and wide characters are
// measured by display width, so styled output stays intact.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail against the final width.
	return ansi.Truncate(s, maxWidth, "...")
}
