package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

const issueColumns = `id, code, room_slug, assignee_slug, type, title, description, status, photos, created_at, updated_at`

// PutIssue inserts or replaces an issue keyed by its ID. Every column is
// overwritten from the supplied record; no fields are merged.
//
// An upsert rather than INSERT OR REPLACE keeps the row in place so the
// photos foreign key cascade does not fire on replace.
func PutIssue(ctx context.Context, q querier, issue *model.Issue) error {
	photos, err := encodePhotoList(issue.Photos)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO issues (`+issueColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			room_slug = excluded.room_slug,
			assignee_slug = excluded.assignee_slug,
			type = excluded.type,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			photos = excluded.photos,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		issue.ID,
		issue.Code,
		issue.RoomSlug,
		issue.AssigneeSlug,
		string(issue.Type),
		issue.Title,
		issue.Description,
		string(issue.Status),
		photos,
		issue.CreatedAt.UnixMilli(),
		issue.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s: %w", issue.ID, err)
	}
	return nil
}

// GetIssue retrieves an issue by ID.
func GetIssue(ctx context.Context, q querier, id string) (*model.Issue, error) {
	row := q.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning issue: %w", err)
	}
	return issue, nil
}

// ListIssues returns every issue. Rows come back in creation order so that
// callers which do not sort still see a stable order.
func ListIssues(ctx context.Context, q querier) ([]*model.Issue, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*model.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue rows: %w", err)
	}
	return issues, nil
}

// CountIssues returns the total number of issues in the database.
func CountIssues(ctx context.Context, q querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting issues: %w", err)
	}
	return count, nil
}

// DeleteIssue removes an issue and every photo whose issue_id references it
// in a single transaction. Photos are deleted explicitly first; the foreign
// key cascade only backs this up.
func DeleteIssue(ctx context.Context, db *sql.DB, id string) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking issue existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE issue_id = ?`, id); err != nil {
			return fmt.Errorf("deleting photos of issue %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting issue %s: %w", id, err)
		}
		return nil
	})
}

// SaveIssueWithPhotos writes an issue together with its photo records in one
// transaction. Photos previously stored under the issue but absent from
// photos are deleted so that the issue's photo list and the photo records
// never disagree.
func SaveIssueWithPhotos(ctx context.Context, db *sql.DB, issue *model.Issue, photos []*model.Photo) error {
	for _, p := range photos {
		if p.IssueID != issue.ID {
			return fmt.Errorf("photo %s belongs to issue %s, not %s", p.ID, p.IssueID, issue.ID)
		}
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		if err := PutIssue(ctx, tx, issue); err != nil {
			return err
		}

		keep := make(map[string]struct{}, len(photos))
		for _, p := range photos {
			keep[p.ID] = struct{}{}
		}
		existing, err := photoIDsForIssue(ctx, tx, issue.ID)
		if err != nil {
			return err
		}
		for _, id := range existing {
			if _, ok := keep[id]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
				return fmt.Errorf("pruning photo %s: %w", id, err)
			}
		}

		for _, p := range photos {
			if err := PutPhoto(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// AttachPhoto stores a photo record and appends it to its issue's photo list
// in the same transaction. Storing a photo the issue already lists only
// updates the record. A photo claimed by another issue is refused.
func AttachPhoto(ctx context.Context, db *sql.DB, p *model.Photo, now time.Time) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		issue, err := GetIssue(ctx, tx, p.IssueID)
		if err != nil {
			return err
		}
		owners, err := IssueIDsWithPhoto(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if owner != p.IssueID {
				return fmt.Errorf("photo %s belongs to issue %s, not %s", p.ID, owner, p.IssueID)
			}
		}

		if err := PutPhoto(ctx, tx, p); err != nil {
			return err
		}
		if issue.HasPhoto(p.ID) {
			return nil
		}
		issue.Photos = append(issue.Photos, p.ID)
		issue.UpdatedAt = now
		return PutIssue(ctx, tx, issue)
	})
}

// RemovePhoto deletes one photo of an issue and drops it from the issue's
// photo list in the same transaction.
func RemovePhoto(ctx context.Context, db *sql.DB, issueID, photoID string, now time.Time) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		return removePhoto(ctx, tx, issueID, photoID, now)
	})
}

// DetachPhoto deletes a photo record and drops it from the list of the issue
// that owns it, in one transaction.
func DetachPhoto(ctx context.Context, db *sql.DB, photoID string, now time.Time) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		var issueID string
		err := tx.QueryRowContext(ctx, `SELECT issue_id FROM photos WHERE id = ?`, photoID).Scan(&issueID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("finding owner of photo %s: %w", photoID, err)
		}
		return removePhoto(ctx, tx, issueID, photoID, now)
	})
}

func removePhoto(ctx context.Context, tx *sql.Tx, issueID, photoID string, now time.Time) error {
	issue, err := GetIssue(ctx, tx, issueID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ? AND issue_id = ?`, photoID, issueID)
	if err != nil {
		return fmt.Errorf("deleting photo %s: %w", photoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 && !issue.HasPhoto(photoID) {
		return ErrNotFound
	}

	issue.Photos = issue.WithoutPhoto(photoID)
	issue.UpdatedAt = now
	return PutIssue(ctx, tx, issue)
}

// ClearAll deletes every photo and issue in one transaction. The schema and
// meta table are preserved.
func ClearAll(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		for _, table := range []string{"photos", "issues"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}

// --- helpers ---

// scanIssueFrom scans a single issue from any scanner (*sql.Row or *sql.Rows).
func scanIssueFrom(s scanner) (*model.Issue, error) {
	var i model.Issue
	var kind, status, photos string
	var createdAt, updatedAt int64

	err := s.Scan(
		&i.ID, &i.Code, &i.RoomSlug, &i.AssigneeSlug,
		&kind, &i.Title, &i.Description, &status,
		&photos, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.Type = model.NormalizeType(kind)
	i.Status = model.NormalizeStatus(status)
	i.CreatedAt = time.UnixMilli(createdAt).UTC()
	i.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if i.Photos, err = decodePhotoList(photos); err != nil {
		return nil, fmt.Errorf("decoding photo list of issue %s: %w", i.ID, err)
	}
	return &i, nil
}

func encodePhotoList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encoding photo list: %w", err)
	}
	return string(b), nil
}

func decodePhotoList(s string) ([]string, error) {
	ids := []string{}
	if s == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
