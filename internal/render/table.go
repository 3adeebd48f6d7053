package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

const maxTitleWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color name strings to lipgloss colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "magenta":
		return lipgloss.Color("13")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

func typeColor(t model.IssueType) string {
	if t == model.TypeTodo {
		return "blue"
	}
	return "magenta"
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// statusLabel returns a status string with its glyph, e.g. "✅ Levée".
func statusLabel(s model.Status) string {
	return s.Glyph() + " " + s.Label()
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// Lookup resolves room and assignee slugs to display names.
type Lookup struct {
	Rooms     map[string]model.Room
	Assignees map[string]model.Assignee
}

// NewLookup indexes rooms and assignees.
func NewLookup(rooms []model.Room, assignees []model.Assignee) Lookup {
	return Lookup{Rooms: model.RoomIndex(rooms), Assignees: model.AssigneeIndex(assignees)}
}

// RenderIssueTable renders a list of issues as a formatted table.
func RenderIssueTable(issues []*model.Issue, lk Lookup) string {
	if len(issues) == 0 {
		return EmptyState("Aucune réserve.", "Create one with: pasfini issue create", false)
	}

	if !ColorsEnabled() {
		return renderPlainIssueTable(issues, lk)
	}

	headers := []string{"Ref", "Statut", "Type", "Title", "Room", "Assignee", "Photos", "Updated"}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue, lk))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row < 0 || row >= len(issues) {
				return s
			}

			issue := issues[row]
			switch col {
			case 0: // Ref
				return s.Foreground(lipgloss.Color("15"))
			case 1: // Statut
				return s.Foreground(ColorFromName(issue.Status.Color()))
			case 2: // Type
				return s.Foreground(ColorFromName(typeColor(issue.Type)))
			case 3: // Title
				return s.Bold(true)
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue *model.Issue, lk Lookup) []string {
	return []string{
		issue.DisplayRef(),
		statusLabel(issue.Status),
		issue.Type.Label(),
		truncate(issue.Title, maxTitleWidth),
		model.RoomName(lk.Rooms, issue.RoomSlug),
		model.AssigneeName(lk.Assignees, issue.AssigneeSlug),
		fmt.Sprintf("%d", len(issue.Photos)),
		humanize.Time(issue.UpdatedAt),
	}
}

func renderPlainIssueTable(issues []*model.Issue, lk Lookup) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-10s %-12s %-10s %-40s %-16s %-15s %-6s %s\n",
		"Ref", "Statut", "Type", "Title", "Room", "Assignee", "Photos", "Updated")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 124))

	for _, issue := range issues {
		row := issueToRow(issue, lk)
		fmt.Fprintf(&b, "%-10s %-12s %-10s %-40s %-16s %-15s %-6s %s\n",
			row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7])
	}

	return b.String()
}

// RenderRoomTable renders the room list with per-room issue counts.
// Current marks the last selected room.
func RenderRoomTable(rooms []model.Room, issues []*model.Issue, current string) string {
	if len(rooms) == 0 {
		return EmptyState("No rooms.", "Add one with: pasfini room add <name>", false)
	}

	open := make(map[string]int)
	total := make(map[string]int)
	for _, issue := range issues {
		total[issue.RoomSlug]++
		if issue.Status == model.StatusOpen {
			open[issue.RoomSlug]++
		}
	}

	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		marker := ""
		if r.Slug == current {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			r.Slug,
			r.Name,
			r.Letter,
			fmt.Sprintf("%d/%d", open[r.Slug], total[r.Slug]),
		})
	}

	if !ColorsEnabled() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-1s %-20s %-24s %-6s %s\n", "", "Slug", "Name", "Letter", "Open")
		for _, row := range rows {
			fmt.Fprintf(&b, "%-1s %-20s %-24s %-6s %s\n", row[0], row[1], row[2], row[3], row[4])
		}
		return b.String()
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("", "Slug", "Name", "Letter", "Open").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if col == 0 {
				return s.Foreground(lipgloss.Color("10")).Bold(true)
			}
			return s
		}).
		Render()
}

// RenderAssigneeTable renders the assignee list.
func RenderAssigneeTable(assignees []model.Assignee) string {
	if len(assignees) == 0 {
		return EmptyState("No assignees.", "Add one with: pasfini assignee add <name>", false)
	}

	var b strings.Builder
	for _, a := range assignees {
		fmt.Fprintf(&b, "%-20s %s\n", StyledText(a.Slug, lipgloss.NewStyle().Foreground(lipgloss.Color("8"))), a.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
