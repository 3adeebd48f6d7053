package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// Read limits.
const (
	DefaultMaxManifestBytes = 32 << 20
	DefaultMaxAssetBytes    = 40 << 20
)

// ReadOptions configures Read.
type ReadOptions struct {
	MaxManifestBytes int64
	MaxAssetBytes    int64
}

// PhotoEntry is the canonical form of a manifest photo entry. Archives carry
// photos either as a bare asset path (Legacy) or as an object with metadata;
// both decode to this shape.
type PhotoEntry struct {
	Legacy        bool
	Path          string
	ThumbnailPath string
	ID            string
	MIMEType      string
	Width         int
	Height        int
	// CreatedAt is zero when the archive did not carry it.
	CreatedAt time.Time
}

// IssueEntry is a decoded manifest issue with type and status normalized.
// Zero timestamps mean the archive did not carry them.
type IssueEntry struct {
	ID           string
	Code         string
	RoomSlug     string
	AssigneeSlug string
	Type         model.IssueType
	Status       model.Status
	Title        string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Photos       []PhotoEntry
}

// Bundle is a parsed archive. Rooms and Assignees are nil when the manifest
// did not list any. Outcomes records entries dropped while parsing.
type Bundle struct {
	ExportDate time.Time
	Rooms      []model.Room
	Assignees  []model.Assignee
	Issues     []IssueEntry
	Outcomes   []Outcome

	files    map[string]*zip.File
	maxAsset int64
}

// ReadBytes parses an archive held in memory.
func ReadBytes(data []byte, opts ReadOptions) (*Bundle, error) {
	return Read(bytes.NewReader(data), int64(len(data)), opts)
}

// Read parses the archive in r. It fails with *MalformedArchiveError when
// the data is not a ZIP, has no report.json, or the manifest has no issues
// list. Bad individual entries are dropped and recorded in Outcomes.
//
// The manifest may sit at the root or inside a single top-level folder.
func Read(r io.ReaderAt, size int64, opts ReadOptions) (*Bundle, error) {
	if opts.MaxManifestBytes <= 0 {
		opts.MaxManifestBytes = DefaultMaxManifestBytes
	}
	if opts.MaxAssetBytes <= 0 {
		opts.MaxAssetBytes = DefaultMaxAssetBytes
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &MalformedArchiveError{Reason: "not a zip archive", Err: err}
	}

	prefix, manifestFile, err := findManifest(zr.File)
	if err != nil {
		return nil, err
	}

	data, err := readZipFile(manifestFile, opts.MaxManifestBytes)
	if err != nil {
		return nil, &MalformedArchiveError{Reason: "reading " + ManifestName, Err: err}
	}

	b := &Bundle{
		files:    make(map[string]*zip.File),
		maxAsset: opts.MaxAssetBytes,
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		b.files[strings.TrimPrefix(f.Name, prefix)] = f
	}

	if err := b.parseManifest(data); err != nil {
		return nil, err
	}
	return b, nil
}

// findManifest returns the folder prefix ("" or "dir/") and the manifest.
func findManifest(files []*zip.File) (string, *zip.File, error) {
	var nested []*zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if f.Name == ManifestName {
			return "", f, nil
		}
		dir, base := path.Split(f.Name)
		if base == ManifestName && strings.Count(dir, "/") == 1 {
			nested = append(nested, f)
		}
	}
	if len(nested) == 1 {
		dir, _ := path.Split(nested[0].Name)
		return dir, nested[0], nil
	}
	if len(nested) > 1 {
		return "", nil, &MalformedArchiveError{Reason: "several " + ManifestName + " files in separate folders"}
	}
	return "", nil, &MalformedArchiveError{Reason: ManifestName + " not found"}
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", f.Name, f.UncompressedSize64, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, limit)
	}
	return data, nil
}

func (b *Bundle) parseManifest(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return &MalformedArchiveError{Reason: ManifestName + " is not a JSON object", Err: err}
	}

	rawIssues, ok := top["issues"]
	if !ok || !isArray(rawIssues) {
		return &MalformedArchiveError{Reason: ManifestName + " has no issues list"}
	}
	var issues []json.RawMessage
	if err := json.Unmarshal(rawIssues, &issues); err != nil {
		return &MalformedArchiveError{Reason: "decoding issues list", Err: err}
	}

	if raw, ok := top["exportDate"]; ok {
		var ts flexTime
		if json.Unmarshal(raw, &ts) == nil {
			b.ExportDate = ts.Time
		}
	}

	b.parseRooms(top["rooms"])
	b.parseAssignees(top["assignees"])

	b.Issues = make([]IssueEntry, 0, len(issues))
	for i, raw := range issues {
		entry, reason := decodeIssue(raw)
		if reason != "" {
			b.Outcomes = append(b.Outcomes, skipped(KindIssue, entryRef(entry.ID, i), reason))
			continue
		}
		if entry.photosInvalid {
			b.Outcomes = append(b.Outcomes, skipped(KindPhoto, entry.ID, "photos is not a list"))
		}
		for j, rawPhoto := range entry.rawPhotos {
			p, err := decodePhotoEntry(rawPhoto)
			if err != nil {
				b.Outcomes = append(b.Outcomes, skipped(KindPhoto, fmt.Sprintf("%s#%d", entry.ID, j+1), err.Error()))
				continue
			}
			entry.Photos = append(entry.Photos, p)
		}
		b.Issues = append(b.Issues, entry.IssueEntry)
	}
	return nil
}

func (b *Bundle) parseRooms(raw json.RawMessage) {
	if !isArray(raw) {
		return
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return
	}
	b.Rooms = []model.Room{}
	seen := make(map[string]bool)
	for i, item := range items {
		var r model.Room
		if err := json.Unmarshal(item, &r); err != nil {
			b.Outcomes = append(b.Outcomes, skipped(KindRoom, entryRef("", i), "invalid room entry"))
			continue
		}
		r.Slug = strings.TrimSpace(r.Slug)
		switch {
		case r.Slug == "":
			b.Outcomes = append(b.Outcomes, skipped(KindRoom, entryRef("", i), "missing slug"))
		case seen[r.Slug]:
			b.Outcomes = append(b.Outcomes, skipped(KindRoom, r.Slug, "duplicate slug"))
		default:
			seen[r.Slug] = true
			b.Rooms = append(b.Rooms, r)
		}
	}
}

func (b *Bundle) parseAssignees(raw json.RawMessage) {
	if !isArray(raw) {
		return
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return
	}
	b.Assignees = []model.Assignee{}
	seen := make(map[string]bool)
	for i, item := range items {
		var a model.Assignee
		if err := json.Unmarshal(item, &a); err != nil {
			b.Outcomes = append(b.Outcomes, skipped(KindAssignee, entryRef("", i), "invalid assignee entry"))
			continue
		}
		a.Slug = strings.TrimSpace(a.Slug)
		switch {
		case a.Slug == "":
			b.Outcomes = append(b.Outcomes, skipped(KindAssignee, entryRef("", i), "missing slug"))
		case seen[a.Slug]:
			b.Outcomes = append(b.Outcomes, skipped(KindAssignee, a.Slug, "duplicate slug"))
		default:
			seen[a.Slug] = true
			b.Assignees = append(b.Assignees, a)
		}
	}
}

// issueWire is the manifest issue entry as written by any format version.
type issueWire struct {
	ID           looseString     `json:"id"`
	Code         looseString     `json:"code"`
	RoomSlug     looseString     `json:"roomSlug"`
	AssigneeSlug looseString     `json:"assigneeSlug"`
	Type         looseString     `json:"type"`
	Title        looseString     `json:"title"`
	Description  looseString     `json:"description"`
	Status       looseString     `json:"status"`
	CreatedAt    flexTime        `json:"createdAt"`
	UpdatedAt    flexTime        `json:"updatedAt"`
	Photos       json.RawMessage `json:"photos"`
}

type decodedIssue struct {
	IssueEntry
	rawPhotos []json.RawMessage
	// photosInvalid is set when the photos field is present but not a list.
	photosInvalid bool
}

// decodeIssue returns the entry and an empty reason, or a reason the entry
// must be skipped.
func decodeIssue(raw json.RawMessage) (decodedIssue, string) {
	var w issueWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return decodedIssue{}, "invalid issue entry"
	}

	e := decodedIssue{
		IssueEntry: IssueEntry{
			ID:           strings.TrimSpace(string(w.ID)),
			Code:         string(w.Code),
			RoomSlug:     strings.TrimSpace(string(w.RoomSlug)),
			AssigneeSlug: strings.TrimSpace(string(w.AssigneeSlug)),
			Type:         model.NormalizeType(string(w.Type)),
			Status:       model.NormalizeStatus(string(w.Status)),
			Title:        string(w.Title),
			Description:  string(w.Description),
			CreatedAt:    w.CreatedAt.Time,
			UpdatedAt:    w.UpdatedAt.Time,
			Photos:       []PhotoEntry{},
		},
	}
	switch firstByte(w.Photos) {
	case 0, 'n':
	case '[':
		if json.Unmarshal(w.Photos, &e.rawPhotos) != nil {
			e.photosInvalid = true
		}
	default:
		e.photosInvalid = true
	}

	switch {
	case e.ID == "":
		return e, "missing id"
	case e.RoomSlug == "":
		return e, "missing roomSlug"
	case strings.TrimSpace(e.Title) == "":
		return e, "missing title"
	}
	return e, ""
}

// photoWire is the structured photo entry.
type photoWire struct {
	Path          looseString `json:"path"`
	ID            looseString `json:"id"`
	MIMEType      looseString `json:"mimeType"`
	Width         looseInt    `json:"width"`
	Height        looseInt    `json:"height"`
	ThumbnailPath looseString `json:"thumbnailPath"`
	CreatedAt     flexTime    `json:"createdAt"`
}

// decodePhotoEntry discriminates on the JSON kind: a string is the legacy
// bare path, an object is the current structured entry.
func decodePhotoEntry(raw json.RawMessage) (PhotoEntry, error) {
	switch firstByte(raw) {
	case '"':
		var p string
		if err := json.Unmarshal(raw, &p); err != nil {
			return PhotoEntry{}, errors.New("invalid photo path")
		}
		if strings.TrimSpace(p) == "" {
			return PhotoEntry{}, errors.New("empty photo path")
		}
		return PhotoEntry{Legacy: true, Path: p}, nil

	case '{':
		var w photoWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return PhotoEntry{}, errors.New("invalid photo entry")
		}
		if strings.TrimSpace(string(w.Path)) == "" {
			return PhotoEntry{}, errors.New("photo entry has no path")
		}
		return PhotoEntry{
			Path:          string(w.Path),
			ThumbnailPath: string(w.ThumbnailPath),
			ID:            strings.TrimSpace(string(w.ID)),
			MIMEType:      string(w.MIMEType),
			Width:         max(int(w.Width), 0),
			Height:        max(int(w.Height), 0),
			CreatedAt:     w.CreatedAt.Time,
		}, nil

	default:
		return PhotoEntry{}, errors.New("photo entry is neither a path nor an object")
	}
}

// Materialize loads the assets of an issue entry and builds the records to
// store. Photos whose path is unsafe, whose extension is not allowed or
// whose asset is missing are dropped and reported. Missing ids are minted,
// missing timestamps become now and missing dimensions stay 0.
func (b *Bundle) Materialize(e IssueEntry, now time.Time) (*model.Issue, []*model.Photo, []Outcome) {
	now = now.UTC().Truncate(time.Millisecond)

	issue := &model.Issue{
		ID:           e.ID,
		Code:         e.Code,
		RoomSlug:     e.RoomSlug,
		AssigneeSlug: e.AssigneeSlug,
		Type:         e.Type,
		Title:        e.Title,
		Description:  e.Description,
		Status:       e.Status,
		CreatedAt:    orNow(e.CreatedAt, now),
		UpdatedAt:    orNow(e.UpdatedAt, now),
		Photos:       []string{},
	}

	var outcomes []Outcome
	photos := make([]*model.Photo, 0, len(e.Photos))
	ids := make(map[string]bool)

	for i, pe := range e.Photos {
		ref := pe.ID
		if ref == "" {
			ref = fmt.Sprintf("%s#%d", e.ID, i+1)
		}

		full, reason := b.loadAsset(pe.Path)
		if reason != "" {
			outcomes = append(outcomes, skipped(KindPhoto, ref, reason))
			continue
		}

		thumb := full
		if pe.ThumbnailPath != "" {
			if data, reason := b.loadAsset(pe.ThumbnailPath); reason == "" {
				thumb = data
			}
		}

		id := pe.ID
		if pe.Legacy || id == "" || ids[id] {
			id = model.NewID()
		}
		ids[id] = true

		mimeType := strings.TrimSpace(pe.MIMEType)
		if mimeType == "" {
			mimeType = mimeForPath(pe.Path)
		}

		photos = append(photos, &model.Photo{
			ID:        id,
			IssueID:   issue.ID,
			MIMEType:  mimeType,
			Width:     pe.Width,
			Height:    pe.Height,
			CreatedAt: orNow(pe.CreatedAt, now),
			Blob:      full,
			Thumbnail: thumb,
		})
		issue.Photos = append(issue.Photos, id)
	}

	return issue, photos, outcomes
}

// loadAsset returns the bytes of an archive asset, or the reason it cannot
// be used.
func (b *Bundle) loadAsset(name string) ([]byte, string) {
	clean, ok := cleanAssetPath(name)
	if !ok {
		return nil, "unsafe path " + strconv.Quote(name)
	}
	if !AllowedExtension(clean) {
		return nil, "extension not allowed: " + strconv.Quote(name)
	}
	f, ok := b.files[clean]
	if !ok {
		return nil, "asset missing: " + strconv.Quote(name)
	}
	data, err := readZipFile(f, b.maxAsset)
	if err != nil {
		return nil, "asset unreadable: " + err.Error()
	}
	return data, ""
}

// cleanAssetPath normalizes an archive-relative path and rejects absolute
// paths and paths escaping the archive root.
func cleanAssetPath(name string) (string, bool) {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func entryRef(id string, index int) string {
	if id != "" {
		return id
	}
	return "#" + strconv.Itoa(index+1)
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isArray(raw json.RawMessage) bool {
	return firstByte(raw) == '['
}

// flexTime accepts an ISO-8601 string or a millisecond epoch number. Null,
// absent or unparseable values leave it zero.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if parsed, err := model.ParseTime(strings.TrimSpace(s)); err == nil {
			t.Time = parsed
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var ms float64
		if err := json.Unmarshal(data, &ms); err == nil {
			t.Time = time.UnixMilli(int64(ms)).UTC()
		}
	}
	return nil
}

// looseString accepts a string or a number and ignores anything else.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = looseString(bytes.TrimSpace(data))
	}
	return nil
}

// looseInt accepts a number or a numeric string and ignores anything else.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var f float64
	switch firstByte(data) {
	case '"':
		var s string
		if json.Unmarshal(data, &s) != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = v
	default:
		if json.Unmarshal(data, &f) != nil {
			return nil
		}
	}
	*n = looseInt(f)
	return nil
}
