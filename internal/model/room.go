package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Room is a named physical space on the site. Letter, when set, prefixes the
// codes of issues logged in the room and orders the room in reports.
type Room struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Letter string `json:"letter,omitempty"`
}

// Assignee is a person an issue can be delegated to.
type Assignee struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// DefaultRooms returns the rooms seeded on first run.
func DefaultRooms() []Room {
	return []Room{
		{Slug: "entree", Name: "Entrée", Letter: "E"},
		{Slug: "sejour", Name: "Séjour", Letter: "S"},
		{Slug: "cuisine", Name: "Cuisine", Letter: "K"},
		{Slug: "chambre", Name: "Chambre", Letter: "C"},
		{Slug: "salle-de-bain", Name: "Salle de bain", Letter: "B"},
		{Slug: "wc", Name: "WC", Letter: "W"},
		{Slug: "exterieur", Name: "Extérieur", Letter: "X"},
	}
}

// ValidateSlug returns an error if slug is empty or contains whitespace.
func ValidateSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.IndexFunc(slug, unicode.IsSpace) >= 0 {
		return fmt.Errorf("invalid slug %q: must not contain whitespace", slug)
	}
	return nil
}

// Slugify derives a stable slug from a display name: "Salle de bain" becomes
// "salle-de-bain" and "Entrée" becomes "entree".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DedupeRooms drops rooms with an empty slug and every repeat of a slug
// after its first occurrence.
func DedupeRooms(rooms []Room) []Room {
	seen := make(map[string]struct{}, len(rooms))
	out := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		if strings.TrimSpace(r.Slug) == "" {
			continue
		}
		if _, ok := seen[r.Slug]; ok {
			continue
		}
		seen[r.Slug] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupeAssignees is DedupeRooms for assignees.
func DedupeAssignees(assignees []Assignee) []Assignee {
	seen := make(map[string]struct{}, len(assignees))
	out := make([]Assignee, 0, len(assignees))
	for _, a := range assignees {
		if strings.TrimSpace(a.Slug) == "" {
			continue
		}
		if _, ok := seen[a.Slug]; ok {
			continue
		}
		seen[a.Slug] = struct{}{}
		out = append(out, a)
	}
	return out
}

// SortRooms returns rooms in report order: lettered rooms first by letter,
// then the rest by name, both compared with French collation. The input is
// not modified.
func SortRooms(rooms []Room) []Room {
	c := collate.New(language.French, collate.IgnoreCase)
	out := make([]Room, len(rooms))
	copy(out, rooms)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Letter != "" && b.Letter == "":
			return true
		case a.Letter == "" && b.Letter != "":
			return false
		case a.Letter != "" && b.Letter != "":
			if cmp := c.CompareString(a.Letter, b.Letter); cmp != 0 {
				return cmp < 0
			}
		}
		return c.CompareString(a.Name, b.Name) < 0
	})
	return out
}

// RoomIndex maps slugs to rooms.
func RoomIndex(rooms []Room) map[string]Room {
	idx := make(map[string]Room, len(rooms))
	for _, r := range rooms {
		idx[r.Slug] = r
	}
	return idx
}

// AssigneeIndex maps slugs to assignees.
func AssigneeIndex(assignees []Assignee) map[string]Assignee {
	idx := make(map[string]Assignee, len(assignees))
	for _, a := range assignees {
		idx[a.Slug] = a
	}
	return idx
}

// RoomName returns the room's display name, or the raw slug when the room
// no longer exists.
func RoomName(idx map[string]Room, slug string) string {
	if r, ok := idx[slug]; ok && r.Name != "" {
		return r.Name
	}
	return slug
}

// AssigneeName returns the assignee's display name, or the raw slug when the
// assignee no longer exists. Empty slugs yield "".
func AssigneeName(idx map[string]Assignee, slug string) string {
	if slug == "" {
		return ""
	}
	if a, ok := idx[slug]; ok && a.Name != "" {
		return a.Name
	}
	return slug
}
