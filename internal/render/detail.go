package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// RenderDetail renders a full issue view: header, metadata, description and
// the photo list.
func RenderDetail(issue *model.Issue, photos []*model.Photo, lk Lookup) string {
	if !ColorsEnabled() {
		return renderPlainDetail(issue, photos, lk)
	}

	sections := []string{
		renderHeader(issue),
		renderMetadata(issue, lk),
	}
	if issue.Description != "" {
		sections = append(sections, renderDescription(issue.Description))
	}
	if len(photos) > 0 {
		sections = append(sections, renderPhotos(photos))
	}
	return strings.Join(sections, "\n\n")
}

func renderHeader(issue *model.Issue) string {
	refStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Status.Color())).
		Bold(true)

	return fmt.Sprintf("%s %s  %s\n%s",
		issue.Status.Glyph(),
		refStyle.Render(issue.DisplayRef()),
		titleStyle.Render(issue.Title),
		statusStyle.Render(issue.Status.Label()),
	)
}

func renderMetadata(issue *model.Issue, lk Lookup) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	typeStyle := lipgloss.NewStyle().Foreground(ColorFromName(typeColor(issue.Type)))

	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Type:"), typeStyle.Render(issue.Type.Label())),
		fmt.Sprintf("%s %s", labelStyle.Render("Pièce:"), model.RoomName(lk.Rooms, issue.RoomSlug)),
	}
	if issue.AssigneeSlug != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Assigné à:"), model.AssigneeName(lk.Assignees, issue.AssigneeSlug)))
	}
	lines = append(lines,
		fmt.Sprintf("%s %s", labelStyle.Render("ID:"), issue.ID),
		fmt.Sprintf("%s %s", labelStyle.Render("Créée:"), humanize.Time(issue.CreatedAt)),
		fmt.Sprintf("%s %s", labelStyle.Render("Modifiée:"), humanize.Time(issue.UpdatedAt)),
	)
	return strings.Join(lines, "\n")
}

func renderDescription(description string) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	header := sectionStyle.Render("Description")

	rendered, err := RenderMarkdown(description)
	if err != nil {
		rendered = description
	}
	return header + "\n" + rendered
}

func renderPhotos(photos []*model.Photo) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	t := tree.New().Root(fmt.Sprintf("%s (%d)", sectionStyle.Render("Photos"), len(photos)))
	for _, p := range photos {
		t.Child(photoLine(p) + " " + dimStyle.Render(p.ID))
	}
	return t.String()
}

func photoLine(p *model.Photo) string {
	return fmt.Sprintf("%dx%d %s, %s",
		p.Width, p.Height,
		p.MIMEType,
		humanize.Bytes(uint64(len(p.Blob))),
	)
}

func renderPlainDetail(issue *model.Issue, photos []*model.Photo, lk Lookup) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s  %s\n", issue.Status.Glyph(), issue.DisplayRef(), issue.Title)
	fmt.Fprintf(&b, "Statut: %s\n", issue.Status.Label())
	fmt.Fprintf(&b, "Type: %s\n", issue.Type.Label())
	fmt.Fprintf(&b, "Pièce: %s\n", model.RoomName(lk.Rooms, issue.RoomSlug))
	if issue.AssigneeSlug != "" {
		fmt.Fprintf(&b, "Assigné à: %s\n", model.AssigneeName(lk.Assignees, issue.AssigneeSlug))
	}
	fmt.Fprintf(&b, "ID: %s\n", issue.ID)
	fmt.Fprintf(&b, "Créée: %s\n", humanize.Time(issue.CreatedAt))
	fmt.Fprintf(&b, "Modifiée: %s\n", humanize.Time(issue.UpdatedAt))

	if issue.Description != "" {
		fmt.Fprintf(&b, "\nDescription\n%s\n", issue.Description)
	}

	if len(photos) > 0 {
		fmt.Fprintf(&b, "\nPhotos (%d)\n", len(photos))
		for i, p := range photos {
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, photoLine(p), p.ID)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
