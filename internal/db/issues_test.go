package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

var baseTime = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

// newTestIssue builds an issue whose created_at is offset by n minutes from
// baseTime, so insertion order and creation order can differ on purpose.
func newTestIssue(id string, n int) *model.Issue {
	at := baseTime.Add(time.Duration(n) * time.Minute)
	return &model.Issue{
		ID:        id,
		RoomSlug:  "cuisine",
		Type:      model.TypeReserve,
		Title:     "Issue " + id,
		Status:    model.StatusOpen,
		CreatedAt: at,
		UpdatedAt: at,
		Photos:    []string{},
	}
}

func newTestPhoto(id, issueID string) *model.Photo {
	return &model.Photo{
		ID:        id,
		IssueID:   issueID,
		MIMEType:  "image/jpeg",
		Width:     640,
		Height:    480,
		CreatedAt: baseTime,
		Blob:      []byte("full-" + id),
		Thumbnail: []byte("thumb-" + id),
	}
}

func mustPutIssue(t *testing.T, conn *sql.DB, issue *model.Issue) {
	t.Helper()
	if err := PutIssue(t.Context(), conn, issue); err != nil {
		t.Fatalf("PutIssue(%s): %v", issue.ID, err)
	}
}

func TestPutAndGetIssue(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Code = "K1"
	issue.AssigneeSlug = "marc"
	issue.Type = model.TypeTodo
	issue.Description = "Refaire le joint"
	issue.Photos = []string{"p2", "p1"}
	mustPutIssue(t, db, issue)

	got, err := GetIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Code != "K1" || got.AssigneeSlug != "marc" || got.Type != model.TypeTodo {
		t.Errorf("fields lost: %+v", got)
	}
	if !got.CreatedAt.Equal(issue.CreatedAt) || got.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt = %v, want %v UTC", got.CreatedAt, issue.CreatedAt)
	}
	if len(got.Photos) != 2 || got.Photos[0] != "p2" || got.Photos[1] != "p1" {
		t.Errorf("Photos = %v, want [p2 p1]", got.Photos)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	db := mustInit(t)

	_, err := GetIssue(t.Context(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetIssue error = %v, want ErrNotFound", err)
	}
}

func TestPutIssueOverwritesAllFields(t *testing.T) {
	db := mustInit(t)

	first := newTestIssue("a", 0)
	first.Description = "old"
	first.AssigneeSlug = "marc"
	mustPutIssue(t, db, first)

	second := newTestIssue("a", 5)
	second.Title = "Nouveau titre"
	second.Status = model.StatusDone
	mustPutIssue(t, db, second)

	got, err := GetIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Title != "Nouveau titre" || got.Status != model.StatusDone {
		t.Errorf("overwrite lost new values: %+v", got)
	}
	if got.Description != "" || got.AssigneeSlug != "" {
		t.Errorf("overwrite merged old values: %+v", got)
	}

	n, err := CountIssues(t.Context(), db)
	if err != nil {
		t.Fatalf("CountIssues: %v", err)
	}
	if n != 1 {
		t.Errorf("CountIssues = %d, want 1", n)
	}
}

func TestPutIssueKeepsPhotosOnOverwrite(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Photos = []string{"p1"}
	mustPutIssue(t, db, issue)
	if err := PutPhoto(t.Context(), db, newTestPhoto("p1", "a")); err != nil {
		t.Fatalf("PutPhoto: %v", err)
	}

	issue.Title = "Edited"
	mustPutIssue(t, db, issue)

	if _, err := GetPhoto(t.Context(), db, "p1"); err != nil {
		t.Fatalf("photo lost after issue overwrite: %v", err)
	}
}

func TestListIssuesCreationOrder(t *testing.T) {
	db := mustInit(t)

	mustPutIssue(t, db, newTestIssue("c", 3))
	mustPutIssue(t, db, newTestIssue("a", 1))
	mustPutIssue(t, db, newTestIssue("b", 2))

	issues, err := ListIssues(t.Context(), db)
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	var ids string
	for _, i := range issues {
		ids += i.ID
	}
	if ids != "abc" {
		t.Errorf("ListIssues order = %q, want abc", ids)
	}
}

func TestListIssuesEmpty(t *testing.T) {
	db := mustInit(t)

	issues, err := ListIssues(t.Context(), db)
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if issues == nil || len(issues) != 0 {
		t.Errorf("ListIssues = %v, want empty non-nil slice", issues)
	}
}

func TestDeleteIssueCascadesPhotos(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d photos", n), func(t *testing.T) {
			db := mustInit(t)

			issue := newTestIssue("a", 0)
			var photos []*model.Photo
			for i := 0; i < n; i++ {
				p := newTestPhoto(fmt.Sprintf("p%d", i), "a")
				photos = append(photos, p)
				issue.Photos = append(issue.Photos, p.ID)
			}
			if err := SaveIssueWithPhotos(t.Context(), db, issue, photos); err != nil {
				t.Fatalf("SaveIssueWithPhotos: %v", err)
			}

			other := newTestIssue("b", 1)
			other.Photos = []string{"keep"}
			if err := SaveIssueWithPhotos(t.Context(), db, other, []*model.Photo{newTestPhoto("keep", "b")}); err != nil {
				t.Fatalf("SaveIssueWithPhotos(b): %v", err)
			}

			if err := DeleteIssue(t.Context(), db, "a"); err != nil {
				t.Fatalf("DeleteIssue: %v", err)
			}

			if _, err := GetIssue(t.Context(), db, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("issue still present: %v", err)
			}
			count, err := CountPhotos(t.Context(), db)
			if err != nil {
				t.Fatalf("CountPhotos: %v", err)
			}
			if count != 1 {
				t.Errorf("CountPhotos = %d, want 1 (only the other issue's photo)", count)
			}
		})
	}
}

func TestDeleteIssueNotFound(t *testing.T) {
	db := mustInit(t)

	if err := DeleteIssue(t.Context(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteIssue error = %v, want ErrNotFound", err)
	}
}

func TestSaveIssueWithPhotosPrunesUnlisted(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Photos = []string{"p1", "p2"}
	err := SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{
		newTestPhoto("p1", "a"), newTestPhoto("p2", "a"),
	})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	issue.Photos = []string{"p2", "p3"}
	err = SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{
		newTestPhoto("p2", "a"), newTestPhoto("p3", "a"),
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if _, err := GetPhoto(t.Context(), db, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("p1 should have been pruned, got %v", err)
	}
	photos, err := GetPhotosForIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetPhotosForIssue: %v", err)
	}
	if len(photos) != 2 || photos[0].ID != "p2" || photos[1].ID != "p3" {
		t.Errorf("photos = %v, want [p2 p3]", photoIDs(photos))
	}
}

func TestSaveIssueWithPhotosRejectsForeignPhoto(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	err := SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{newTestPhoto("p1", "b")})
	if err == nil {
		t.Fatal("expected error for photo owned by another issue")
	}
	if _, err := GetIssue(t.Context(), db, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("issue written despite rejected save: %v", err)
	}
}

func TestRemovePhoto(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Photos = []string{"p1", "p2"}
	err := SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{
		newTestPhoto("p1", "a"), newTestPhoto("p2", "a"),
	})
	if err != nil {
		t.Fatalf("SaveIssueWithPhotos: %v", err)
	}

	later := baseTime.Add(time.Hour)
	if err := RemovePhoto(t.Context(), db, "a", "p1", later); err != nil {
		t.Fatalf("RemovePhoto: %v", err)
	}

	got, err := GetIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if len(got.Photos) != 1 || got.Photos[0] != "p2" {
		t.Errorf("Photos = %v, want [p2]", got.Photos)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if _, err := GetPhoto(t.Context(), db, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("p1 still stored: %v", err)
	}

	if err := RemovePhoto(t.Context(), db, "a", "nope", later); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemovePhoto(nope) error = %v, want ErrNotFound", err)
	}
}

func TestAttachPhoto(t *testing.T) {
	db := mustInit(t)
	mustPutIssue(t, db, newTestIssue("a", 0))

	later := baseTime.Add(time.Hour)
	for range 2 {
		if err := AttachPhoto(t.Context(), db, newTestPhoto("p1", "a"), later); err != nil {
			t.Fatalf("AttachPhoto: %v", err)
		}
	}

	got, err := GetIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if len(got.Photos) != 1 || got.Photos[0] != "p1" {
		t.Errorf("Photos = %v, want [p1]", got.Photos)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}

	mustPutIssue(t, db, newTestIssue("b", 1))
	if err := AttachPhoto(t.Context(), db, newTestPhoto("p1", "b"), later); err == nil {
		t.Error("expected error attaching a photo owned by another issue")
	}
	if err := AttachPhoto(t.Context(), db, newTestPhoto("p2", "missing"), later); !errors.Is(err, ErrNotFound) {
		t.Errorf("AttachPhoto(missing issue) error = %v, want ErrNotFound", err)
	}
}

func TestDetachPhoto(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Photos = []string{"p1", "p2"}
	err := SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{
		newTestPhoto("p1", "a"), newTestPhoto("p2", "a"),
	})
	if err != nil {
		t.Fatalf("SaveIssueWithPhotos: %v", err)
	}

	if err := DetachPhoto(t.Context(), db, "p2", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("DetachPhoto: %v", err)
	}
	got, err := GetIssue(t.Context(), db, "a")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if len(got.Photos) != 1 || got.Photos[0] != "p1" {
		t.Errorf("Photos = %v, want [p1]", got.Photos)
	}

	if err := DetachPhoto(t.Context(), db, "p2", baseTime); !errors.Is(err, ErrNotFound) {
		t.Errorf("DetachPhoto(p2) again error = %v, want ErrNotFound", err)
	}
}

func TestClearAll(t *testing.T) {
	db := mustInit(t)

	issue := newTestIssue("a", 0)
	issue.Photos = []string{"p1"}
	if err := SaveIssueWithPhotos(t.Context(), db, issue, []*model.Photo{newTestPhoto("p1", "a")}); err != nil {
		t.Fatalf("SaveIssueWithPhotos: %v", err)
	}

	if err := ClearAll(t.Context(), db); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	issues, _ := CountIssues(t.Context(), db)
	photos, _ := CountPhotos(t.Context(), db)
	if issues != 0 || photos != 0 {
		t.Errorf("after ClearAll: %d issues, %d photos", issues, photos)
	}
	if v, err := SchemaVersion(db); err != nil || v != currentSchemaVersion {
		t.Errorf("schema version after ClearAll = %d, %v", v, err)
	}
}
