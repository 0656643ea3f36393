package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/rthumb/internal/state"
)

// buildFooterHelpText returns the footer hint string with leading/trailing padding.
func buildFooterHelpText(state *statepkg.AppState) string {
	parts := buildFooterHelpSegments(state)
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  ") + " "
}

func buildFooterHelpSegments(state *statepkg.AppState) []string {
	if state == nil {
		return nil
	}

	hiddenStatus := "show"
	if state.ShowHidden {
		hiddenStatus = "hide"
	}

	return []string{
		"↑/↓/↵/←: navigate",
		"r: refresh",
		".: " + hiddenStatus + " hidden",
		"?: help",
		"q: quit",
	}
}
