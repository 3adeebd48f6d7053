package archive

import (
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// escapeMarkdown replaces characters that have special meaning in Markdown so
// that arbitrary user text can be safely embedded in headings and inline spans.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`#`, `\#`,
		`*`, `\*`,
		`_`, `\_`,
		`[`, `\[`,
		`]`, `\]`,
		`<`, `\<`,
		`>`, `\>`,
		"`", "\\`",
		`|`, `\|`,
	)
	return r.Replace(s)
}

// RenderReport produces the human-readable report for a manifest. Issues are
// expected in room-grouped order, as TakeSnapshot emits them. loadErrors
// marks issues whose photos could not be loaded.
func RenderReport(m *model.Manifest, loadErrors map[string]bool) string {
	rooms := model.RoomIndex(m.Rooms)
	assignees := model.AssigneeIndex(m.Assignees)

	var buf strings.Builder
	buf.WriteString("# Liste des réserves\n\n")
	buf.WriteString(fmt.Sprintf("Exporté le %s\n\n", escapeMarkdown(m.ExportDate)))
	buf.WriteString(fmt.Sprintf("- **Total :** %d\n", m.TotalIssues))
	buf.WriteString(fmt.Sprintf("- **Ouvertes :** %d\n", m.OpenIssues))
	buf.WriteString(fmt.Sprintf("- **Levées :** %d\n\n", m.DoneIssues))

	if len(m.Issues) == 0 {
		buf.WriteString("_Aucune réserve._\n")
		return buf.String()
	}

	current := "\x00"
	for _, e := range m.Issues {
		if e.RoomSlug != current {
			current = e.RoomSlug
			buf.WriteString(roomHeading(rooms, e))
		}
		renderIssue(&buf, e, assignees, loadErrors[e.ID])
	}

	return buf.String()
}

func roomHeading(rooms map[string]model.Room, e model.IssueExport) string {
	name := e.RoomName
	if name == "" {
		name = e.RoomSlug
	}
	if r, ok := rooms[e.RoomSlug]; ok && r.Letter != "" {
		return fmt.Sprintf("## %s (%s)\n\n", escapeMarkdown(name), escapeMarkdown(r.Letter))
	}
	return fmt.Sprintf("## %s\n\n", escapeMarkdown(name))
}

func renderIssue(buf *strings.Builder, e model.IssueExport, assignees map[string]model.Assignee, loadError bool) {
	status := model.NormalizeStatus(e.Status)
	kind := model.NormalizeType(e.Type)

	heading := escapeMarkdown(e.Title)
	if e.Code != "" {
		heading = escapeMarkdown(e.Code) + " · " + heading
	}
	buf.WriteString(fmt.Sprintf("### %s %s\n\n", status.Glyph(), heading))

	buf.WriteString(fmt.Sprintf("- **Type :** %s\n", kind.Label()))
	buf.WriteString(fmt.Sprintf("- **Statut :** %s\n", status.Label()))
	if e.AssigneeSlug != "" {
		buf.WriteString(fmt.Sprintf("- **Assigné à :** %s\n", escapeMarkdown(model.AssigneeName(assignees, e.AssigneeSlug))))
	}
	buf.WriteString(fmt.Sprintf("- **Créée le :** %s\n", escapeMarkdown(e.CreatedAt)))
	buf.WriteString(fmt.Sprintf("- **Modifiée le :** %s\n\n", escapeMarkdown(e.UpdatedAt)))

	if e.Description != "" {
		buf.WriteString(escapeMarkdown(e.Description) + "\n\n")
	}

	if loadError {
		buf.WriteString("_Photos indisponibles : erreur de chargement._\n\n")
		return
	}
	for i, p := range e.Photos {
		buf.WriteString(fmt.Sprintf("[![Photo %d](%s)](%s)\n", i+1, p.ThumbnailPath, p.Path))
	}
	if len(e.Photos) > 0 {
		buf.WriteString("\n")
	}
}
