// Package reconcile applies a parsed archive to an entity store under
// replace or merge policy.
//
// Issues are written first, each together with its photos in one
// transaction; rooms and assignees follow. The config tier is written
// separately, so a failure after the issues leaves rooms as they were, and
// applying the same archive again is safe.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ALT-F4-LLC/pasfini/internal/archive"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/store"
)

// Mode selects how an archive meets existing data.
type Mode string

const (
	// Replace erases everything before applying the archive.
	Replace Mode = "replace"
	// Merge keeps existing data. Issues and photos are written by id,
	// overwriting any existing record with the same id; rooms and
	// assignees are added only when their slug is new.
	Merge Mode = "merge"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Replace, Merge:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid import mode %q: must be one of replace, merge", s)
}

// Target is the write side of the entity store an import needs.
type Target interface {
	ClearAll(ctx context.Context) error
	GetIssue(ctx context.Context, id string) (*model.Issue, error)
	SaveIssueWithPhotos(ctx context.Context, issue *model.Issue, photos []*model.Photo) error
	IssueIDsWithPhoto(ctx context.Context, photoID string) ([]string, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	SaveRooms(ctx context.Context, rooms []model.Room) error
	ListAssignees(ctx context.Context) ([]model.Assignee, error)
	SaveAssignees(ctx context.Context, assignees []model.Assignee) error
}

// Options configures Apply.
type Options struct {
	// Now stamps records whose archive entry carried no timestamp. Zero
	// means time.Now.
	Now    time.Time
	Logger *slog.Logger
}

// Result reports what an import did, by count.
type Result struct {
	Mode      Mode              `json:"mode"`
	Issues    int               `json:"issues"`
	Photos    int               `json:"photos"`
	Rooms     int               `json:"rooms"`
	Assignees int               `json:"assignees"`
	Outcomes  []archive.Outcome `json:"outcomes"`
}

// Skipped returns how many items were left out.
func (r *Result) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == archive.OutcomeSkipped {
			n++
		}
	}
	return n
}

// Apply writes bundle into t. Per-item problems become outcomes; a storage
// failure stops the import and is returned along with the partial result.
func Apply(ctx context.Context, t Target, bundle *archive.Bundle, mode Mode, opts Options) (*Result, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	res := &Result{Mode: mode, Outcomes: []archive.Outcome{}}
	res.Outcomes = append(res.Outcomes, bundle.Outcomes...)

	if mode == Replace {
		if err := t.ClearAll(ctx); err != nil {
			return res, fmt.Errorf("clearing store: %w", err)
		}
	}

	for _, entry := range bundle.Issues {
		issue, photos, outcomes := bundle.Materialize(entry, now)
		res.Outcomes = append(res.Outcomes, outcomes...)

		if mode == Merge {
			overwrite, err := existingIssue(ctx, t, issue.ID)
			if err != nil {
				return res, err
			}
			if overwrite {
				res.Outcomes = append(res.Outcomes, archive.Outcome{
					Kind:   archive.KindIssue,
					Ref:    issue.ID,
					Status: archive.OutcomeOverwritten,
					Reason: "replaced the existing issue with the same id",
				})
			}
		}

		reassigned, err := claimPhotoIDs(ctx, t, issue, photos)
		if err != nil {
			return res, err
		}
		res.Outcomes = append(res.Outcomes, reassigned...)

		if err := t.SaveIssueWithPhotos(ctx, issue, photos); err != nil {
			return res, fmt.Errorf("saving issue %s: %w", issue.ID, err)
		}
		res.Issues++
		res.Photos += len(photos)
	}

	var err error
	if res.Rooms, err = applyRooms(ctx, t, bundle.Rooms, mode); err != nil {
		return res, err
	}
	if res.Assignees, err = applyAssignees(ctx, t, bundle.Assignees, mode); err != nil {
		return res, err
	}

	for _, o := range res.Outcomes {
		log.Debug("import item not applied as-is", "kind", o.Kind, "ref", o.Ref, "status", o.Status, "reason", o.Reason)
	}
	log.Info("import applied",
		"mode", mode,
		"issues", res.Issues,
		"photos", res.Photos,
		"rooms", res.Rooms,
		"assignees", res.Assignees,
		"skipped", res.Skipped(),
	)
	return res, nil
}

func existingIssue(ctx context.Context, t Target, id string) (bool, error) {
	_, err := t.GetIssue(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("checking issue %s: %w", id, err)
	}
}

// claimPhotoIDs gives a fresh id to any photo whose id already belongs to a
// different issue, so that a photo is never shared between issues.
func claimPhotoIDs(ctx context.Context, t Target, issue *model.Issue, photos []*model.Photo) ([]archive.Outcome, error) {
	var outcomes []archive.Outcome
	for i, p := range photos {
		owners, err := t.IssueIDsWithPhoto(ctx, p.ID)
		if err != nil {
			return outcomes, fmt.Errorf("checking photo %s: %w", p.ID, err)
		}
		if !ownedElsewhere(owners, issue.ID) {
			continue
		}
		old := p.ID
		p.ID = model.NewID()
		issue.Photos[i] = p.ID
		outcomes = append(outcomes, archive.Outcome{
			Kind:   archive.KindPhoto,
			Ref:    old,
			Status: archive.OutcomeReassigned,
			Reason: "id already used by another issue; stored as " + p.ID,
		})
	}
	return outcomes, nil
}

func ownedElsewhere(owners []string, issueID string) bool {
	for _, o := range owners {
		if o != issueID {
			return true
		}
	}
	return false
}

func applyRooms(ctx context.Context, t Target, imported []model.Room, mode Mode) (int, error) {
	if len(imported) == 0 {
		return 0, nil
	}
	if mode == Replace {
		if err := t.SaveRooms(ctx, imported); err != nil {
			return 0, fmt.Errorf("saving rooms: %w", err)
		}
		return len(imported), nil
	}

	existing, err := t.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rooms: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.Slug] = true
	}
	merged := existing
	added := 0
	for _, r := range imported {
		if known[r.Slug] {
			continue
		}
		known[r.Slug] = true
		merged = append(merged, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := t.SaveRooms(ctx, merged); err != nil {
		return 0, fmt.Errorf("saving rooms: %w", err)
	}
	return added, nil
}

func applyAssignees(ctx context.Context, t Target, imported []model.Assignee, mode Mode) (int, error) {
	if len(imported) == 0 {
		return 0, nil
	}
	if mode == Replace {
		if err := t.SaveAssignees(ctx, imported); err != nil {
			return 0, fmt.Errorf("saving assignees: %w", err)
		}
		return len(imported), nil
	}

	existing, err := t.ListAssignees(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing assignees: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, a := range existing {
		known[a.Slug] = true
	}
	merged := existing
	added := 0
	for _, a := range imported {
		if known[a.Slug] {
			continue
		}
		known[a.Slug] = true
		merged = append(merged, a)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := t.SaveAssignees(ctx, merged); err != nil {
		return 0, fmt.Errorf("saving assignees: %w", err)
	}
	return added, nil
}
