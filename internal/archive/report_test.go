package archive

import (
	"strings"
	"testing"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

func TestRenderReport(t *testing.T) {
	m := &model.Manifest{
		ExportDate:  "2026-04-02T15:30:00.000Z",
		TotalIssues: 2,
		OpenIssues:  1,
		DoneIssues:  1,
		Rooms:       []model.Room{{Slug: "cuisine", Name: "Cuisine", Letter: "K"}},
		Assignees:   []model.Assignee{{Slug: "marc", Name: "Marc"}},
		Issues: []model.IssueExport{
			{
				ID: "i1", Code: "K1", RoomSlug: "cuisine", RoomName: "Cuisine",
				AssigneeSlug: "marc", Type: "reserve", Title: "Plinthe *à* recoller",
				Description: "Côté fenêtre", Status: "open",
				CreatedAt: "2026-04-01T08:00:00.000Z", UpdatedAt: "2026-04-01T09:00:00.000Z",
				PhotoCount: 1,
				Photos:     []model.PhotoDetail{{Path: "img/i1-1.jpeg", ThumbnailPath: "img/i1-1-thumb.jpeg"}},
			},
			{
				ID: "i2", RoomSlug: "grenier", RoomName: "grenier", Type: "todo",
				Title: "Nettoyer", Status: "done", AssigneeSlug: "paul",
				Photos: []model.PhotoDetail{},
			},
		},
	}

	got := RenderReport(m, nil)

	for _, want := range []string{
		"# Liste des réserves",
		"- **Total :** 2",
		"## Cuisine (K)",
		"### ⬜ K1 · Plinthe \\*à\\* recoller",
		"- **Type :** Réserve",
		"- **Assigné à :** Marc",
		"Côté fenêtre",
		"[![Photo 1](img/i1-1-thumb.jpeg)](img/i1-1.jpeg)",
		"## grenier",
		"### ✅ Nettoyer",
		"- **Type :** À faire",
		"- **Statut :** Levée",
		"- **Assigné à :** paul",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q\n---\n%s", want, got)
		}
	}

	if strings.Index(got, "## Cuisine") > strings.Index(got, "## grenier") {
		t.Error("room sections out of order")
	}
}

func TestRenderReportEmpty(t *testing.T) {
	got := RenderReport(&model.Manifest{ExportDate: "x"}, nil)
	if !strings.Contains(got, "Aucune réserve") {
		t.Errorf("empty report = %q", got)
	}
}
