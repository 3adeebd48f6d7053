package render

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

const (
	maxCardsPerColumn = 10
	minColumnWidth    = 24
	defaultTermWidth  = 100
	cardPadding       = 2 // left+right padding inside cards
)

// BoardColumn is one room of the board with its issues.
type BoardColumn struct {
	Room   model.Room
	Issues []*model.Issue
}

// BoardColumns groups issues by room. Configured rooms come first in report
// order; issues pointing at unknown rooms get a column named after the slug.
// Rooms without issues are left out.
func BoardColumns(issues []*model.Issue, rooms []model.Room) []BoardColumn {
	groups := make(map[string][]*model.Issue)
	for _, issue := range issues {
		groups[issue.RoomSlug] = append(groups[issue.RoomSlug], issue)
	}

	var cols []BoardColumn
	seen := make(map[string]bool)
	for _, r := range model.SortRooms(model.DedupeRooms(rooms)) {
		seen[r.Slug] = true
		if len(groups[r.Slug]) > 0 {
			cols = append(cols, BoardColumn{Room: r, Issues: groups[r.Slug]})
		}
	}

	var unknown []string
	for slug := range groups {
		if !seen[slug] {
			unknown = append(unknown, slug)
		}
	}
	sort.Strings(unknown)
	for _, slug := range unknown {
		cols = append(cols, BoardColumn{Room: model.Room{Slug: slug, Name: slug}, Issues: groups[slug]})
	}
	return cols
}

// RenderBoard renders issues as a board with one column per room.
func RenderBoard(issues []*model.Issue, rooms []model.Room) string {
	if len(issues) == 0 {
		return EmptyState("Aucune réserve.", "Create one with: pasfini issue create", false)
	}

	cols := BoardColumns(issues, rooms)
	if !ColorsEnabled() {
		return renderPlainBoard(cols)
	}
	return renderColorBoard(cols)
}

// terminalWidth returns the current terminal width, falling back to a default.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

func doneCount(issues []*model.Issue) int {
	n := 0
	for _, issue := range issues {
		if issue.Status == model.StatusDone {
			n++
		}
	}
	return n
}

func columnTitle(r model.Room) string {
	if r.Letter != "" {
		return fmt.Sprintf("%s (%s)", r.Name, r.Letter)
	}
	return r.Name
}

func renderColorBoard(cols []BoardColumn) string {
	tw := terminalWidth()
	gaps := len(cols) - 1
	colWidth := max((tw-gaps)/len(cols), minColumnWidth)
	contentWidth := max(colWidth-cardPadding-2, 5)

	columns := make([]string, 0, len(cols))
	for _, col := range cols {
		columns = append(columns, renderColorColumn(col, colWidth, contentWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func renderColorColumn(col BoardColumn, colWidth, contentWidth int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Width(colWidth).
		Align(lipgloss.Center)
	progressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Width(colWidth).
		Align(lipgloss.Center)

	visible := col.Issues
	overflow := 0
	if len(visible) > maxCardsPerColumn {
		visible = visible[:maxCardsPerColumn]
		overflow = len(col.Issues) - maxCardsPerColumn
	}

	cards := make([]string, 0, len(visible)+3)
	cards = append(cards,
		headerStyle.Render(columnTitle(col.Room)),
		progressStyle.Render(formatProgressBar(doneCount(col.Issues), len(col.Issues), contentWidth)),
	)
	for _, issue := range visible {
		cards = append(cards, renderColorCard(issue, colWidth, contentWidth))
	}
	if overflow > 0 {
		moreStyle := lipgloss.NewStyle().
			Width(colWidth).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("8"))
		cards = append(cards, moreStyle.Render(fmt.Sprintf("+%d more", overflow)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderColorCard(issue *model.Issue, colWidth, contentWidth int) string {
	line1 := fmt.Sprintf("%s %s", issue.Status.Glyph(), issue.DisplayRef())
	if n := len(issue.Photos); n > 0 {
		line1 += lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(fmt.Sprintf(" [%d]", n))
	}
	lines := []string{line1, truncate(issue.Title, contentWidth)}
	if issue.AssigneeSlug != "" {
		lines = append(lines, truncate("@"+issue.AssigneeSlug, contentWidth))
	}

	cardStyle := lipgloss.NewStyle().
		Width(colWidth-2).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFromName(issue.Status.Color()))
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// formatProgressBar renders a text-based progress bar like "▰▰▰▱▱ 3/5".
func formatProgressBar(done, total, maxWidth int) string {
	suffix := fmt.Sprintf(" %d/%d", done, total)
	barWidth := min(maxWidth-len(suffix), total)
	if barWidth < 1 {
		return strings.TrimSpace(suffix)
	}

	filled := 0
	if total > 0 {
		filled = (done * barWidth) / total
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", barWidth-filled) + suffix
}

func renderPlainBoard(cols []BoardColumn) string {
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s %d/%d ===\n", columnTitle(col.Room), doneCount(col.Issues), len(col.Issues))

		visible := col.Issues
		overflow := 0
		if len(visible) > maxCardsPerColumn {
			visible = visible[:maxCardsPerColumn]
			overflow = len(col.Issues) - maxCardsPerColumn
		}
		for _, issue := range visible {
			fmt.Fprintf(&b, "  %s %s %s\n", issue.Status.Glyph(), issue.DisplayRef(), truncate(issue.Title, maxTitleWidth))
		}
		if overflow > 0 {
			fmt.Fprintf(&b, "  +%d more\n", overflow)
		}
	}
	return b.String()
}
