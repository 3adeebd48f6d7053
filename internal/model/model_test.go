package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{"done", StatusDone},
		{"open", StatusOpen},
		{"", StatusOpen},
		{"Done", StatusOpen},
		{"DONE", StatusOpen},
		{"closed", StatusOpen},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.input); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		input string
		want  IssueType
	}{
		{"todo", TypeTodo},
		{"reserve", TypeReserve},
		{"", TypeReserve},
		{"TODO", TypeReserve},
		{"bug", TypeReserve},
	}
	for _, tt := range tests {
		if got := NormalizeType(tt.input); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateStatusAndType(t *testing.T) {
	if err := ValidateStatus(StatusOpen); err != nil {
		t.Errorf("ValidateStatus(open): %v", err)
	}
	if err := ValidateStatus("archived"); err == nil {
		t.Error("ValidateStatus(archived) expected error, got nil")
	}
	if err := ValidateType(TypeTodo); err != nil {
		t.Errorf("ValidateType(todo): %v", err)
	}
	if err := ValidateType("epic"); err == nil {
		t.Error("ValidateType(epic) expected error, got nil")
	}
}

func validIssue() *Issue {
	return &Issue{
		ID:       "issue-1",
		RoomSlug: "cuisine",
		Type:     TypeReserve,
		Title:    "Plinthe à recoller",
		Status:   StatusOpen,
	}
}

func TestIssueValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Issue)
		wantErr string
	}{
		{"valid", func(*Issue) {}, ""},
		{"missing id", func(i *Issue) { i.ID = "" }, "id is required"},
		{"blank title", func(i *Issue) { i.Title = "   " }, "title is required"},
		{"title at limit", func(i *Issue) { i.Title = strings.Repeat("é", MaxTitleLength) }, ""},
		{"title too long", func(i *Issue) { i.Title = strings.Repeat("a", MaxTitleLength+1) }, "at most 200"},
		{"description too long", func(i *Issue) { i.Description = strings.Repeat("a", MaxDescriptionLength+1) }, "at most 1000"},
		{"missing room", func(i *Issue) { i.RoomSlug = "" }, "room is required"},
		{"bad status", func(i *Issue) { i.Status = "closed" }, "invalid status"},
		{"bad type", func(i *Issue) { i.Type = "bug" }, "invalid issue type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := validIssue()
			tt.mutate(issue)
			err := issue.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNextCode(t *testing.T) {
	issues := []*Issue{
		{Code: "K1"},
		{Code: "K3"},
		{Code: "S7"},
		{Code: "Kx"},
		{Code: ""},
	}

	if got := NextCode("K", issues); got != "K4" {
		t.Errorf("NextCode(K) = %q, want K4", got)
	}
	if got := NextCode("S", issues); got != "S8" {
		t.Errorf("NextCode(S) = %q, want S8", got)
	}
	if got := NextCode("Z", issues); got != "Z1" {
		t.Errorf("NextCode(Z) = %q, want Z1", got)
	}
	if got := NextCode("", issues); got != "" {
		t.Errorf("NextCode(\"\") = %q, want empty", got)
	}
}

func TestIssuePhotoHelpers(t *testing.T) {
	issue := &Issue{Photos: []string{"a", "b", "c"}}
	if !issue.HasPhoto("b") {
		t.Error("HasPhoto(b) = false, want true")
	}
	if issue.HasPhoto("z") {
		t.Error("HasPhoto(z) = true, want false")
	}

	rest := issue.WithoutPhoto("b")
	if len(rest) != 2 || rest[0] != "a" || rest[1] != "c" {
		t.Errorf("WithoutPhoto(b) = %v, want [a c]", rest)
	}
	if len(issue.Photos) != 3 {
		t.Errorf("WithoutPhoto mutated the receiver: %v", issue.Photos)
	}
}

func TestIssueJSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 4, 10, 11, 12, 345_000_000, time.UTC)
	issue := Issue{
		ID:           "abc",
		Code:         "K1",
		RoomSlug:     "cuisine",
		AssigneeSlug: "marc",
		Type:         TypeTodo,
		Title:        "Joint silicone",
		Description:  "Refaire le joint",
		Status:       StatusDone,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Hour),
		Photos:       []string{"p1"},
	}

	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"createdAt":"2026-03-04T10:11:12.345Z"`) {
		t.Errorf("unexpected createdAt encoding: %s", data)
	}

	var got Issue
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if got.Type != TypeTodo || got.Status != StatusDone || got.Code != "K1" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestIssueJSONNilPhotos(t *testing.T) {
	data, err := json.Marshal(Issue{ID: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"photos":[]`) {
		t.Errorf("expected empty photos array, got %s", data)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-05-01T08:00:00Z", "2024-05-01T08:00:00.123Z", "2024-05-01T10:00:00+02:00"} {
		got, err := ParseTime(s)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", s, err)
			continue
		}
		if got.Hour() != 8 || got.Location() != time.UTC {
			t.Errorf("ParseTime(%q) = %v, want 08:00 UTC", s, got)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("ParseTime(yesterday) expected error")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Salle de bain":     "salle-de-bain",
		"Entrée":            "entree",
		"  Séjour / Salon ": "sejour-salon",
		"WC":                "wc",
		"Chambre 2":         "chambre-2",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSlug(t *testing.T) {
	if err := ValidateSlug("cuisine"); err != nil {
		t.Errorf("ValidateSlug(cuisine): %v", err)
	}
	for _, bad := range []string{"", "  ", "salle de bain"} {
		if err := ValidateSlug(bad); err == nil {
			t.Errorf("ValidateSlug(%q) expected error", bad)
		}
	}
}

func TestDedupeRooms(t *testing.T) {
	rooms := []Room{
		{Slug: "cuisine", Name: "Cuisine"},
		{Slug: "", Name: "Sans slug"},
		{Slug: "cuisine", Name: "Cuisine bis"},
		{Slug: "wc", Name: "WC"},
	}
	got := DedupeRooms(rooms)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Name != "Cuisine" || got[1].Slug != "wc" {
		t.Errorf("unexpected result: %+v", got)
	}

	assignees := DedupeAssignees([]Assignee{{Slug: "a"}, {Slug: "a"}, {Slug: " "}})
	if len(assignees) != 1 {
		t.Errorf("DedupeAssignees len = %d, want 1", len(assignees))
	}
}

func TestSortRooms(t *testing.T) {
	rooms := []Room{
		{Slug: "sejour", Name: "Séjour"},
		{Slug: "wc", Name: "WC", Letter: "W"},
		{Slug: "entree", Name: "Entrée"},
		{Slug: "cuisine", Name: "Cuisine", Letter: "K"},
		{Slug: "etage", Name: "Étage"},
	}

	got := SortRooms(rooms)
	want := []string{"cuisine", "wc", "entree", "etage", "sejour"}
	for i, slug := range want {
		if got[i].Slug != slug {
			t.Fatalf("SortRooms order = %v, want %v", slugs(got), want)
		}
	}
	if rooms[0].Slug != "sejour" {
		t.Error("SortRooms modified its input")
	}
}

func slugs(rooms []Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.Slug
	}
	return out
}

func TestRoomAndAssigneeNames(t *testing.T) {
	rooms := RoomIndex([]Room{{Slug: "cuisine", Name: "Cuisine"}})
	if got := RoomName(rooms, "cuisine"); got != "Cuisine" {
		t.Errorf("RoomName(cuisine) = %q", got)
	}
	if got := RoomName(rooms, "grenier"); got != "grenier" {
		t.Errorf("RoomName(grenier) = %q, want raw slug", got)
	}

	people := AssigneeIndex([]Assignee{{Slug: "marc", Name: "Marc"}})
	if got := AssigneeName(people, "marc"); got != "Marc" {
		t.Errorf("AssigneeName(marc) = %q", got)
	}
	if got := AssigneeName(people, "paul"); got != "paul" {
		t.Errorf("AssigneeName(paul) = %q, want raw slug", got)
	}
	if got := AssigneeName(people, ""); got != "" {
		t.Errorf("AssigneeName(\"\") = %q, want empty", got)
	}
}

func TestDefaultRoomsAreUnique(t *testing.T) {
	rooms := DefaultRooms()
	if len(DedupeRooms(rooms)) != len(rooms) {
		t.Error("DefaultRooms contains duplicate or empty slugs")
	}
	for _, r := range rooms {
		if Slugify(r.Name) != r.Slug {
			t.Errorf("default room %q slug %q does not match Slugify", r.Name, r.Slug)
		}
	}
}
