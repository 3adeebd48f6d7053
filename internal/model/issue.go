package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits enforced by Issue.Validate.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Status represents whether an issue is still outstanding.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

var validStatuses = []Status{StatusOpen, StatusDone}

// ValidateStatus returns an error if s is not a recognized status.
func ValidateStatus(s Status) error {
	for _, v := range validStatuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q: must be one of %v", s, validStatuses)
}

// NormalizeStatus maps an arbitrary stored or imported value onto a Status.
// Only the exact string "done" is done; anything else is open.
func NormalizeStatus(s string) Status {
	if s == string(StatusDone) {
		return StatusDone
	}
	return StatusOpen
}

// Glyph returns the checkbox glyph used in reports and tables.
func (s Status) Glyph() string {
	if s == StatusDone {
		return "✅"
	}
	return "⬜"
}

// Label returns the French label shown to site crews.
func (s Status) Label() string {
	if s == StatusDone {
		return "Levée"
	}
	return "Ouverte"
}

// Color returns a color name string suitable for terminal rendering.
func (s Status) Color() string {
	if s == StatusDone {
		return "green"
	}
	return "yellow"
}

// IssueType distinguishes contractual defects from plain to-do items.
type IssueType string

const (
	TypeReserve IssueType = "reserve"
	TypeTodo    IssueType = "todo"
)

var validTypes = []IssueType{TypeReserve, TypeTodo}

// ValidateType returns an error if t is not a recognized issue type.
func ValidateType(t IssueType) error {
	for _, v := range validTypes {
		if t == v {
			return nil
		}
	}
	return fmt.Errorf("invalid issue type %q: must be one of %v", t, validTypes)
}

// NormalizeType maps an arbitrary value onto an IssueType. Records written
// before the type field existed carry nothing and are reserves.
func NormalizeType(s string) IssueType {
	if s == string(TypeTodo) {
		return TypeTodo
	}
	return TypeReserve
}

// Label returns the French label for the type.
func (t IssueType) Label() string {
	if t == TypeTodo {
		return "À faire"
	}
	return "Réserve"
}

// NewID returns a fresh opaque identifier for issues and photos.
func NewID() string {
	return uuid.NewString()
}

// Issue is a logged defect or to-do item tied to a room.
//
// Photos holds the ids of the issue's photo records in display order. It is
// the authoritative membership list: a photo record whose IssueID points here
// but which is not listed is treated as an orphan.
type Issue struct {
	ID           string
	Code         string
	RoomSlug     string
	AssigneeSlug string
	Type         IssueType
	Title        string
	Description  string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Photos       []string
}

// Validate checks the fields a form submission must satisfy.
func (i *Issue) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("issue id is required")
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if n := utf8.RuneCountInString(i.Title); n > MaxTitleLength {
		return fmt.Errorf("title is %d characters long: must be at most %d", n, MaxTitleLength)
	}
	if n := utf8.RuneCountInString(i.Description); n > MaxDescriptionLength {
		return fmt.Errorf("description is %d characters long: must be at most %d", n, MaxDescriptionLength)
	}
	if strings.TrimSpace(i.RoomSlug) == "" {
		return fmt.Errorf("room is required")
	}
	if err := ValidateStatus(i.Status); err != nil {
		return err
	}
	return ValidateType(i.Type)
}

// HasPhoto reports whether photoID is in the issue's photo list.
func (i *Issue) HasPhoto(photoID string) bool {
	for _, id := range i.Photos {
		if id == photoID {
			return true
		}
	}
	return false
}

// WithoutPhoto returns a copy of the photo list with photoID removed.
func (i *Issue) WithoutPhoto(photoID string) []string {
	out := make([]string, 0, len(i.Photos))
	for _, id := range i.Photos {
		if id != photoID {
			out = append(out, id)
		}
	}
	return out
}

// DisplayRef returns the code when one was assigned, else a short id.
func (i *Issue) DisplayRef() string {
	if i.Code != "" {
		return i.Code
	}
	return ShortID(i.ID)
}

// ShortID truncates an id for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// NextCode returns the next human-readable code for a room letter, e.g. "Z3"
// when Z1 and Z2 exist. It returns "" when the room has no letter.
func NextCode(letter string, issues []*Issue) string {
	letter = strings.TrimSpace(letter)
	if letter == "" {
		return ""
	}
	highest := 0
	for _, issue := range issues {
		if !strings.HasPrefix(issue.Code, letter) {
			continue
		}
		n, err := strconv.Atoi(issue.Code[len(letter):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%d", letter, highest+1)
}

// issueJSON is the JSON wire format for Issue in command output.
type issueJSON struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	RoomSlug     string   `json:"roomSlug"`
	AssigneeSlug string   `json:"assigneeSlug"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
	Photos       []string `json:"photos"`
}

// MarshalJSON implements custom JSON serialization for Issue.
func (i Issue) MarshalJSON() ([]byte, error) {
	photos := i.Photos
	if photos == nil {
		photos = []string{}
	}
	return json.Marshal(issueJSON{
		ID:           i.ID,
		Code:         i.Code,
		RoomSlug:     i.RoomSlug,
		AssigneeSlug: i.AssigneeSlug,
		Type:         string(i.Type),
		Title:        i.Title,
		Description:  i.Description,
		Status:       string(i.Status),
		CreatedAt:    FormatTime(i.CreatedAt),
		UpdatedAt:    FormatTime(i.UpdatedAt),
		Photos:       photos,
	})
}

// UnmarshalJSON implements custom JSON deserialization for Issue. Missing
// type and status fall back to their back-compat defaults.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var j issueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	createdAt, err := ParseTime(j.CreatedAt)
	if err != nil {
		return fmt.Errorf("parsing createdAt: %w", err)
	}
	updatedAt, err := ParseTime(j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("parsing updatedAt: %w", err)
	}

	*i = Issue{
		ID:           j.ID,
		Code:         j.Code,
		RoomSlug:     j.RoomSlug,
		AssigneeSlug: j.AssigneeSlug,
		Type:         NormalizeType(j.Type),
		Title:        j.Title,
		Description:  j.Description,
		Status:       NormalizeStatus(j.Status),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		Photos:       j.Photos,
	}
	return nil
}

// isoLayout is ISO-8601 with millisecond precision, the format browsers
// produce for Date.toISOString and the one archives carry.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t as an ISO-8601 UTC string with milliseconds.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTime parses an ISO-8601 timestamp with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
