package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// Source is the read side of the entity store that an export needs.
type Source interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListAssignees(ctx context.Context) ([]model.Assignee, error)
	ListIssues(ctx context.Context) ([]*model.Issue, error)
	GetPhotosForIssue(ctx context.Context, issueID string) ([]*model.Photo, error)
}

// ExportOptions configures Export and Snapshot.
type ExportOptions struct {
	// Now stamps the export. Zero means time.Now.
	Now time.Time
	// Logger receives per-issue photo failures. Nil means slog.Default.
	Logger *slog.Logger
}

// ExportSummary describes a finished export.
type ExportSummary struct {
	Issues    int `json:"issues"`
	Photos    int `json:"photos"`
	Rooms     int `json:"rooms"`
	Assignees int `json:"assignees"`
	// Degraded lists issues whose photos could not be loaded and were
	// exported without them.
	Degraded []string `json:"degraded"`
}

// asset is one file of the img/ folder.
type asset struct {
	name string
	data []byte
}

// Snapshot is a named, ordered view of the whole store: the manifest plus
// the asset payloads it refers to.
type Snapshot struct {
	Manifest *model.Manifest
	// LoadErrors holds the ids of issues whose photos failed to load.
	LoadErrors map[string]bool

	assets []asset
}

// TakeSnapshot reads everything from src and assigns archive paths. Failing
// to list rooms, assignees or issues is fatal; failing to load one issue's
// photos only empties that issue's photo list.
func TakeSnapshot(ctx context.Context, src Source, opts ExportOptions) (*Snapshot, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	rooms, err := src.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	assignees, err := src.ListAssignees(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assignees: %w", err)
	}
	issues, err := src.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}

	m := &model.Manifest{
		ExportDate: model.FormatTime(now),
		Rooms:      nonNilRooms(rooms),
		Assignees:  nonNilAssignees(assignees),
		Issues:     make([]model.IssueExport, 0, len(issues)),
	}
	snap := &Snapshot{Manifest: m, LoadErrors: map[string]bool{}}

	roomIdx := model.RoomIndex(rooms)
	names := newNamer()

	for _, issue := range groupByRoom(issues, rooms) {
		m.TotalIssues++
		if issue.Status == model.StatusDone {
			m.DoneIssues++
		} else {
			m.OpenIssues++
		}

		entry := model.IssueExport{
			ID:           issue.ID,
			Code:         issue.Code,
			RoomSlug:     issue.RoomSlug,
			RoomName:     model.RoomName(roomIdx, issue.RoomSlug),
			AssigneeSlug: issue.AssigneeSlug,
			Type:         string(model.NormalizeType(string(issue.Type))),
			Title:        issue.Title,
			Description:  issue.Description,
			Status:       string(model.NormalizeStatus(string(issue.Status))),
			CreatedAt:    model.FormatTime(issue.CreatedAt),
			UpdatedAt:    model.FormatTime(issue.UpdatedAt),
			Photos:       []model.PhotoDetail{},
		}

		photos, err := src.GetPhotosForIssue(ctx, issue.ID)
		if err != nil {
			log.Warn("exporting issue without photos", "issue_id", issue.ID, "err", err)
			snap.LoadErrors[issue.ID] = true
			m.Issues = append(m.Issues, entry)
			continue
		}

		for i, p := range photos {
			ext := ExtensionForMIME(p.MIMEType)
			full := names.claim(AssetName(issue.ID, i+1, false, ext))
			thumb := names.claim(AssetName(issue.ID, i+1, true, ext))

			thumbData := p.Thumbnail
			if len(thumbData) == 0 {
				thumbData = p.Blob
			}
			snap.assets = append(snap.assets, asset{name: full, data: p.Blob}, asset{name: thumb, data: thumbData})

			entry.Photos = append(entry.Photos, model.PhotoDetail{
				Path:          full,
				ID:            p.ID,
				MIMEType:      p.MIMEType,
				Width:         p.Width,
				Height:        p.Height,
				ThumbnailPath: thumb,
				CreatedAt:     model.FormatTime(p.CreatedAt),
			})
		}
		entry.PhotoCount = len(entry.Photos)
		m.Issues = append(m.Issues, entry)
	}

	return snap, nil
}

// Export writes the archive for src to w.
func Export(ctx context.Context, w io.Writer, src Source, opts ExportOptions) (*ExportSummary, error) {
	snap, err := TakeSnapshot(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := snap.WriteArchive(w, opts.Now); err != nil {
		return nil, err
	}
	return snap.Summary(), nil
}

// Summary counts what the snapshot contains.
func (s *Snapshot) Summary() *ExportSummary {
	sum := &ExportSummary{
		Issues:    len(s.Manifest.Issues),
		Rooms:     len(s.Manifest.Rooms),
		Assignees: len(s.Manifest.Assignees),
		Degraded:  []string{},
	}
	for _, e := range s.Manifest.Issues {
		sum.Photos += e.PhotoCount
		if s.LoadErrors[e.ID] {
			sum.Degraded = append(sum.Degraded, e.ID)
		}
	}
	return sum
}

// WriteArchive writes the snapshot as a ZIP archive. Image payloads are stored
// uncompressed; the manifest and report are deflated.
func (s *Snapshot) WriteArchive(w io.Writer, modified time.Time) error {
	if modified.IsZero() {
		modified = time.Now()
	}

	manifest, err := json.MarshalIndent(s.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	report := RenderReport(s.Manifest, s.LoadErrors)

	zw := zip.NewWriter(w)
	put := func(name string, method uint16, data []byte) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
		if err != nil {
			return fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return nil
	}

	if err := put(ManifestName, zip.Deflate, append(manifest, '\n')); err != nil {
		return err
	}
	if err := put(ReportName, zip.Deflate, []byte(report)); err != nil {
		return err
	}
	if err := put(AssetDir+"/", zip.Store, nil); err != nil {
		return err
	}
	for _, a := range s.assets {
		if err := put(a.name, zip.Store, a.data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

// groupByRoom orders issues by room: known rooms in SortRooms order, then
// rooms the list does not know, by slug. Issues keep their input order
// within a room.
func groupByRoom(issues []*model.Issue, rooms []model.Room) []*model.Issue {
	rank := make(map[string]int)
	for i, r := range model.SortRooms(model.DedupeRooms(rooms)) {
		rank[r.Slug] = i
	}

	var unknown []string
	seen := make(map[string]bool)
	for _, issue := range issues {
		if _, ok := rank[issue.RoomSlug]; !ok && !seen[issue.RoomSlug] {
			seen[issue.RoomSlug] = true
			unknown = append(unknown, issue.RoomSlug)
		}
	}
	sort.Strings(unknown)
	for _, slug := range unknown {
		rank[slug] = len(rank)
	}

	out := make([]*model.Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].RoomSlug] < rank[out[j].RoomSlug]
	})
	return out
}

func nonNilRooms(rooms []model.Room) []model.Room {
	if rooms == nil {
		return []model.Room{}
	}
	return rooms
}

func nonNilAssignees(assignees []model.Assignee) []model.Assignee {
	if assignees == nil {
		return []model.Assignee{}
	}
	return assignees
}
