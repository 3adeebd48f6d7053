package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

// prefixed returns "icon label" styled in color when colors are enabled,
// or the bare label otherwise.
func prefixed(color, icon, label string, bold bool) string {
	if !render.ColorsEnabled() {
		return label
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(bold)
	if label == "" {
		return style.Render(icon)
	}
	return style.Render(icon) + " " + style.Render(label)
}

// writeHumanSuccess writes a human-readable success message to w.
// Multi-line content (tables, boards, detail views) is printed as-is.
func writeHumanSuccess(w io.Writer, message string) {
	if message == "" {
		return
	}
	if strings.Contains(message, "\n") || !render.ColorsEnabled() {
		fmt.Fprintln(w, message)
		return
	}
	fmt.Fprintf(w, "%s %s\n", prefixed("2", "✔", "", false), message)
}

// writeHumanError writes a human-readable error message to w.
func writeHumanError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", prefixed("1", "✘", "Error:", true), err)
}
