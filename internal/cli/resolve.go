package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ALT-F4-LLC/pasfini/internal/blob"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

// resolveIssue finds an issue by exact id, by code (case-insensitive) or by
// a unique id prefix.
func resolveIssue(ctx context.Context, st *store.Store, ref string) (*model.Issue, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, cmdErr(fmt.Errorf("issue reference is required"), output.ErrValidation)
	}

	issue, err := st.GetIssue(ctx, ref)
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr(err, "fetching issue")
	}

	issues, err := st.ListIssues(ctx)
	if err != nil {
		return nil, storeErr(err, "listing issues")
	}

	var matches []*model.Issue
	for _, i := range issues {
		if i.Code != "" && strings.EqualFold(i.Code, ref) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		for _, i := range issues {
			if strings.HasPrefix(i.ID, ref) {
				matches = append(matches, i)
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, cmdErr(fmt.Errorf("issue %s not found", ref), output.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		refs := make([]string, len(matches))
		for i, m := range matches {
			refs[i] = model.ShortID(m.ID)
		}
		return nil, cmdErr(fmt.Errorf("issue reference %q is ambiguous: matches %s", ref, strings.Join(refs, ", ")), output.ErrConflict)
	}
}

// resolveRoom returns the room with the given slug, or the last selected
// room when slug is empty.
func resolveRoom(ctx context.Context, st *store.Store, slug string) (model.Room, error) {
	if slug == "" {
		last, err := st.LastSelectedRoom(ctx)
		if err != nil {
			return model.Room{}, storeErr(err, "reading last room")
		}
		if last == "" {
			return model.Room{}, cmdErr(fmt.Errorf("--room is required (no room selected yet, see 'pasfini room use')"), output.ErrValidation)
		}
		slug = last
	}

	rooms, err := st.ListRooms(ctx)
	if err != nil {
		return model.Room{}, storeErr(err, "listing rooms")
	}
	for _, r := range rooms {
		if r.Slug == slug {
			return r, nil
		}
	}
	return model.Room{}, cmdErr(fmt.Errorf("room %q not found", slug), output.ErrNotFound)
}

// checkAssignee verifies slug names a known assignee. Empty is allowed.
func checkAssignee(ctx context.Context, st *store.Store, slug string) error {
	if slug == "" {
		return nil
	}
	assignees, err := st.ListAssignees(ctx)
	if err != nil {
		return storeErr(err, "listing assignees")
	}
	for _, a := range assignees {
		if a.Slug == slug {
			return nil
		}
	}
	return cmdErr(fmt.Errorf("assignee %q not found", slug), output.ErrNotFound)
}

func loadLookup(ctx context.Context, st *store.Store) (render.Lookup, error) {
	rooms, err := st.ListRooms(ctx)
	if err != nil {
		return render.Lookup{}, storeErr(err, "listing rooms")
	}
	assignees, err := st.ListAssignees(ctx)
	if err != nil {
		return render.Lookup{}, storeErr(err, "listing assignees")
	}
	return render.NewLookup(rooms, assignees), nil
}

// readDescription reads the description from stdin when value is "-".
func readDescription(value string, stdin io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}
	const maxStdinSize = 1 << 20 // 1 MiB
	data, err := io.ReadAll(io.LimitReader(stdin, maxStdinSize))
	if err != nil {
		return "", cmdErr(fmt.Errorf("reading description from stdin: %w", err), output.ErrGeneral)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// photoRejection reports a file that could not be attached.
type photoRejection struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// processPhotos turns image files into photo records for issueID. A file
// that cannot be read or decoded is reported and skipped; the rest of the
// batch still goes through.
func processPhotos(w *output.Writer, st *store.Store, issueID string, paths []string) ([]*model.Photo, []photoRejection) {
	proc := blob.NewProcessor()
	photos := make([]*model.Photo, 0, len(paths))
	var rejected []photoRejection

	for _, path := range paths {
		res, err := processFile(proc, path)
		if err != nil {
			w.Warn("skipping %s: %v", filepath.Base(path), err)
			rejected = append(rejected, photoRejection{Path: path, Reason: err.Error()})
			continue
		}
		photos = append(photos, &model.Photo{
			ID:        model.NewID(),
			IssueID:   issueID,
			MIMEType:  res.MIMEType,
			Width:     res.Width,
			Height:    res.Height,
			CreatedAt: st.Now(),
			Blob:      res.Full,
			Thumbnail: res.Thumbnail,
		})
	}
	return photos, rejected
}

func processFile(proc *blob.Processor, path string) (*blob.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return proc.Process(f)
}

func photoIDs(photos []*model.Photo) []string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}
