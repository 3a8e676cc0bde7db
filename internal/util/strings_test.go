package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string cut with ellipsis", "hello world", 8, "hello..."},
		{"maxLen 4 keeps one rune", "hello", 4, "h..."},
		{"maxLen 3 is all ellipsis", "hello", 3, "..."},
		{"maxLen below ellipsis width", "hello", 1, "..."},
		{"zero maxLen", "hello", 0, "..."},
		{"negative maxLen", "hello", -5, "..."},
		{"empty input unchanged", "", 10, ""},
		{"multibyte runes counted as one", "日本語テスト", 5, "日本..."},
		{"multibyte short string unchanged", "日本語", 10, "日本語"},
		{"mixed ascii and multibyte", "hello日本語world", 10, "hello日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSIPlain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"long string cut with ellipsis", "hello world", 8, "hello..."},
		{"maxWidth 3 is all ellipsis", "hello", 3, "..."},
		{"maxWidth below ellipsis width", "hello", 2, "..."},
		{"empty input unchanged", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateANSI(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncateANSIStyled(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	bold := lipgloss.NewStyle().Bold(true)

	t.Run("untruncated styled string is untouched", func(t *testing.T) {
		in := red.Render("hi")
		if got := TruncateANSI(in, 10); got != in {
			t.Errorf("TruncateANSI rewrote a string that fit: %q", got)
		}
	})

	// Whatever the escape sequences, the visible width must respect the
	// cap after truncation.
	for _, in := range []string{
		red.Render("hello world"),
		bold.Render("hello world"),
		"日本語テスト",
	} {
		if width := lipgloss.Width(TruncateANSI(in, 8)); width > 8 {
			t.Errorf("TruncateANSI(%q, 8) has visible width %d", in, width)
		}
	}
}
