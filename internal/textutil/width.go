package textutil

import (
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// DisplayWidth reports the printable width of text accounting for wide runes.
func DisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// Truncate cuts text to at most width columns, ending it with an ellipsis
// when something was dropped.
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, ellipsis)
}

// TruncateLeft keeps the end of text, which is the useful part of a path.
func TruncateLeft(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	if width <= runewidth.StringWidth(ellipsis) {
		return ellipsis
	}
	return ellipsis + runewidth.TruncateLeft(text, runewidth.StringWidth(text)-width+runewidth.StringWidth(ellipsis), "")
}

// PadRight pads text with spaces up to width columns.
func PadRight(text string, width int) string {
	return runewidth.FillRight(text, width)
}
