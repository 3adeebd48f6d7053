package reconcile

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

var (
	created = time.Date(2026, 2, 10, 9, 15, 0, 0, time.UTC)
	now     = time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
)

func mustOpen(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "pasfini.db"), filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func saveIssue(t *testing.T, s *store.Store, id, room, title string, photoIDs ...string) {
	t.Helper()
	issue := &model.Issue{
		ID:        id,
		RoomSlug:  room,
		Type:      model.TypeReserve,
		Title:     title,
		Status:    model.StatusOpen,
		CreatedAt: created,
		UpdatedAt: created,
		Photos:    []string{},
	}
	var photos []*model.Photo
	for i, pid := range photoIDs {
		issue.Photos = append(issue.Photos, pid)
		photos = append(photos, &model.Photo{
			ID:        pid,
			IssueID:   id,
			MIMEType:  "image/jpeg",
			Width:     640 + i,
			Height:    480,
			CreatedAt: created,
			Blob:      []byte("full-" + pid),
			Thumbnail: []byte("thumb-" + pid),
		})
	}
	if err := s.SaveIssueWithPhotos(t.Context(), issue, photos); err != nil {
		t.Fatalf("SaveIssueWithPhotos(%s): %v", id, err)
	}
}

func exportBundle(t *testing.T, s *store.Store) *archive.Bundle {
	t.Helper()
	var buf bytes.Buffer
	if _, err := archive.Export(t.Context(), &buf, s, archive.ExportOptions{Now: now}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	b, err := archive.ReadBytes(buf.Bytes(), archive.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	return b
}

func apply(t *testing.T, s *store.Store, b *archive.Bundle, mode Mode) *Result {
	t.Helper()
	res, err := Apply(t.Context(), s, b, mode, Options{Now: now})
	if err != nil {
		t.Fatalf("Apply(%s): %v", mode, err)
	}
	return res
}

func count(t *testing.T, s *store.Store) (issues, photos int) {
	t.Helper()
	issues, err := s.CountIssues(t.Context())
	if err != nil {
		t.Fatalf("CountIssues: %v", err)
	}
	photos, err = s.CountPhotos(t.Context())
	if err != nil {
		t.Fatalf("CountPhotos: %v", err)
	}
	return issues, photos
}

func TestParseMode(t *testing.T) {
	for _, ok := range []string{"replace", "merge"} {
		if _, err := ParseMode(ok); err != nil {
			t.Errorf("ParseMode(%q): %v", ok, err)
		}
	}
	if _, err := ParseMode("append"); err == nil {
		t.Error("ParseMode(append) expected error")
	}
}

func TestKitchenScenario(t *testing.T) {
	src := mustOpen(t)
	if err := src.SaveRooms(t.Context(), []model.Room{{Slug: "cuisine", Name: "Cuisine"}}); err != nil {
		t.Fatalf("SaveRooms: %v", err)
	}
	saveIssue(t, src, "i1", "cuisine", "Plinthe à recoller", "p1", "p2")

	dst := mustOpen(t)
	res := apply(t, dst, exportBundle(t, src), Replace)
	if res.Issues != 1 || res.Photos != 2 || res.Rooms != 1 {
		t.Errorf("result = %+v", res)
	}

	rooms, _ := dst.ListRooms(t.Context())
	if len(rooms) != 1 || rooms[0].Name != "Cuisine" {
		t.Errorf("rooms = %+v", rooms)
	}
	issues, _ := dst.ListIssues(t.Context())
	if len(issues) != 1 {
		t.Fatalf("issues = %d", len(issues))
	}
	got := issues[0]
	if got.Title != "Plinthe à recoller" || got.Status != model.StatusOpen || len(got.Photos) != 2 {
		t.Errorf("issue = %+v", got)
	}
}

func TestReplaceRoundTrip(t *testing.T) {
	src := mustOpen(t)
	ctx := t.Context()
	rooms := []model.Room{
		{Slug: "cuisine", Name: "Cuisine", Letter: "K"},
		{Slug: "sejour", Name: "Séjour", Letter: "S"},
	}
	assignees := []model.Assignee{{Slug: "marc", Name: "Marc"}, {Slug: "lea", Name: "Léa"}}
	if err := src.SaveRooms(ctx, rooms); err != nil {
		t.Fatalf("SaveRooms: %v", err)
	}
	if err := src.SaveAssignees(ctx, assignees); err != nil {
		t.Fatalf("SaveAssignees: %v", err)
	}
	saveIssue(t, src, "a", "cuisine", "Plinthe", "pa1", "pa2")
	saveIssue(t, src, "b", "sejour", "Prise décollée")
	saveIssue(t, src, "c", "garage", "Dangling room", "pc1")

	b, _ := src.GetIssue(ctx, "b")
	b.Code, b.AssigneeSlug, b.Type, b.Status, b.Description = "S1", "lea", model.TypeTodo, model.StatusDone, "Derrière le canapé"
	if err := src.PutIssue(ctx, b); err != nil {
		t.Fatalf("PutIssue: %v", err)
	}

	dst := mustOpen(t)
	saveIssue(t, dst, "stale", "wc", "Should disappear", "ps")
	res := apply(t, dst, exportBundle(t, src), Replace)
	if res.Issues != 3 || res.Photos != 3 || res.Rooms != 2 || res.Assignees != 2 || res.Skipped() != 0 {
		t.Errorf("result = %+v", res)
	}

	if n, p := count(t, dst); n != 3 || p != 3 {
		t.Errorf("store has %d issues, %d photos; want 3, 3", n, p)
	}
	if _, err := dst.GetIssue(ctx, "stale"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("replace kept pre-existing issue: %v", err)
	}

	srcIssues, _ := src.ListIssues(ctx)
	for _, want := range srcIssues {
		got, err := dst.GetIssue(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetIssue(%s): %v", want.ID, err)
		}
		if got.Code != want.Code || got.RoomSlug != want.RoomSlug || got.AssigneeSlug != want.AssigneeSlug ||
			got.Type != want.Type || got.Title != want.Title || got.Description != want.Description ||
			got.Status != want.Status || !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Errorf("issue %s\n got  %+v\n want %+v", want.ID, got, want)
		}

		wantPhotos, _ := src.GetPhotosForIssue(ctx, want.ID)
		gotPhotos, _ := dst.GetPhotosForIssue(ctx, want.ID)
		if len(gotPhotos) != len(wantPhotos) {
			t.Fatalf("issue %s photos = %d, want %d", want.ID, len(gotPhotos), len(wantPhotos))
		}
		for i := range wantPhotos {
			w, g := wantPhotos[i], gotPhotos[i]
			if g.ID != w.ID || g.Width != w.Width || g.Height != w.Height || g.MIMEType != w.MIMEType {
				t.Errorf("photo metadata %+v, want %+v", g, w)
			}
			if !bytes.Equal(g.Blob, w.Blob) || !bytes.Equal(g.Thumbnail, w.Thumbnail) {
				t.Errorf("photo %s payloads differ", w.ID)
			}
		}
	}

	gotAssignees, _ := dst.ListAssignees(ctx)
	if len(gotAssignees) != 2 || gotAssignees[1].Name != "Léa" {
		t.Errorf("assignees = %+v", gotAssignees)
	}
}

func TestReplaceWithoutRoomsKeepsDefaults(t *testing.T) {
	src := mustOpen(t)
	saveIssue(t, src, "a", "wc", "Chasse d'eau")
	bundle := exportBundle(t, src)
	bundle.Rooms = nil

	dst := mustOpen(t)
	if err := dst.SaveRooms(t.Context(), []model.Room{{Slug: "garage", Name: "Garage"}}); err != nil {
		t.Fatalf("SaveRooms: %v", err)
	}
	res := apply(t, dst, bundle, Replace)
	if res.Rooms != 0 {
		t.Errorf("Rooms = %d", res.Rooms)
	}
	rooms, _ := dst.ListRooms(t.Context())
	if len(rooms) != len(model.DefaultRooms()) {
		t.Errorf("rooms = %+v, want defaults after clear", rooms)
	}
}

func TestMergeIsNonDestructive(t *testing.T) {
	src := mustOpen(t)
	ctx := t.Context()
	if err := src.SaveRooms(ctx, []model.Room{{Slug: "wc", Name: "WC"}, {Slug: "garage", Name: "Garage"}}); err != nil {
		t.Fatalf("SaveRooms: %v", err)
	}
	if err := src.SaveAssignees(ctx, []model.Assignee{{Slug: "marc", Name: "Marc"}}); err != nil {
		t.Fatalf("SaveAssignees: %v", err)
	}
	saveIssue(t, src, "a", "wc", "A", "pa")
	saveIssue(t, src, "b", "garage", "B")
	bundle := exportBundle(t, src)

	dst := mustOpen(t)
	if err := dst.SaveRooms(ctx, []model.Room{{Slug: "wc", Name: "Toilettes"}}); err != nil {
		t.Fatalf("SaveRooms: %v", err)
	}
	saveIssue(t, dst, "local", "wc", "Existing", "pl")

	first := apply(t, dst, bundle, Merge)
	if first.Issues != 2 || first.Photos != 1 || first.Rooms != 1 || first.Assignees != 1 {
		t.Errorf("first merge = %+v", first)
	}
	if n, p := count(t, dst); n != 3 || p != 2 {
		t.Errorf("after first merge: %d issues, %d photos; want 3, 2", n, p)
	}

	second := apply(t, dst, bundle, Merge)
	if first.Issues+second.Issues != 4 {
		t.Errorf("reported issues over two merges = %d, want 4", first.Issues+second.Issues)
	}
	if second.Rooms != 0 || second.Assignees != 0 {
		t.Errorf("second merge added rooms/assignees: %+v", second)
	}
	if n, _ := count(t, dst); n < 3 {
		t.Errorf("merge reduced issue count to %d", n)
	}

	rooms, _ := dst.ListRooms(ctx)
	if len(rooms) != 2 || rooms[0].Name != "Toilettes" || rooms[1].Slug != "garage" {
		t.Errorf("rooms = %+v, want existing wc kept and garage appended", rooms)
	}
	assignees, _ := dst.ListAssignees(ctx)
	if len(assignees) != 1 {
		t.Errorf("assignees = %+v", assignees)
	}
}

func TestMergeOverwritesIssueWithSameID(t *testing.T) {
	src := mustOpen(t)
	saveIssue(t, src, "shared", "wc", "From archive", "p-new")

	dst := mustOpen(t)
	saveIssue(t, dst, "shared", "wc", "Local version", "p-old")

	res := apply(t, dst, exportBundle(t, src), Merge)
	var overwritten int
	for _, o := range res.Outcomes {
		if o.Status == archive.OutcomeOverwritten && o.Ref == "shared" {
			overwritten++
		}
	}
	if overwritten != 1 || res.Skipped() != 0 {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}

	got, err := dst.GetIssue(t.Context(), "shared")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Title != "From archive" || len(got.Photos) != 1 || got.Photos[0] != "p-new" {
		t.Errorf("issue = %+v", got)
	}
	if _, err := dst.GetPhoto(t.Context(), "p-old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("overwritten issue kept its old photo record: %v", err)
	}
}

func TestMergeReassignsPhotoOwnedByAnotherIssue(t *testing.T) {
	src := mustOpen(t)
	saveIssue(t, src, "imported", "wc", "Imported", "p1")

	dst := mustOpen(t)
	saveIssue(t, dst, "local", "wc", "Local", "p1")

	res := apply(t, dst, exportBundle(t, src), Merge)

	var reassigned []archive.Outcome
	for _, o := range res.Outcomes {
		if o.Status == archive.OutcomeReassigned {
			reassigned = append(reassigned, o)
		}
	}
	if len(reassigned) != 1 || reassigned[0].Ref != "p1" {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}

	local, _ := dst.GetPhotosForIssue(t.Context(), "local")
	if len(local) != 1 || local[0].ID != "p1" || string(local[0].Blob) != "full-p1" {
		t.Errorf("local issue lost its photo: %+v", local)
	}
	imported, _ := dst.GetIssue(t.Context(), "imported")
	if len(imported.Photos) != 1 || imported.Photos[0] == "p1" {
		t.Fatalf("imported photo list = %v", imported.Photos)
	}
	photo, err := dst.GetPhoto(t.Context(), imported.Photos[0])
	if err != nil || photo.IssueID != "imported" {
		t.Errorf("reassigned photo = %+v, %v", photo, err)
	}
}

func TestApplyCountsSkippedEntries(t *testing.T) {
	bundle, err := archive.ReadBytes(legacyArchive(t), archive.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}

	dst := mustOpen(t)
	res := apply(t, dst, bundle, Replace)
	if res.Issues != 1 || res.Photos != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2 (issue without title, svg photo); outcomes %+v", res.Skipped(), res.Outcomes)
	}

	issues, _ := dst.ListIssues(t.Context())
	if len(issues) != 1 || issues[0].Type != model.TypeReserve {
		t.Fatalf("issues = %+v", issues)
	}
	photos, _ := dst.GetPhotosForIssue(t.Context(), issues[0].ID)
	if len(photos) != 1 || photos[0].Width != 0 || !photos[0].CreatedAt.Equal(now) {
		t.Errorf("legacy photo = %+v", photos)
	}
}

// failingTarget fails every issue write.
type failingTarget struct {
	*store.Store
}

func (f failingTarget) SaveIssueWithPhotos(context.Context, *model.Issue, []*model.Photo) error {
	return &store.StorageError{Op: "save issue", Err: errors.New("disk full")}
}

func TestApplyStopsOnStorageError(t *testing.T) {
	src := mustOpen(t)
	saveIssue(t, src, "a", "wc", "A")
	saveIssue(t, src, "b", "wc", "B")

	res, err := Apply(t.Context(), failingTarget{mustOpen(t)}, exportBundle(t, src), Merge, Options{Now: now})
	var se *store.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *store.StorageError", err)
	}
	if res == nil || res.Issues != 0 {
		t.Errorf("partial result = %+v", res)
	}
}
